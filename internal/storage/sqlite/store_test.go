package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demeter/internal/attribute"
	"demeter/internal/idgen"
	"demeter/internal/models"
)

const testCreator = models.ID(1)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ids, err := idgen.New(1, 1)
	require.NoError(t, err)
	store, err := Open(filepath.Join(t.TempDir(), "demeter.db"), ids, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func mustDateTime(t *testing.T, raw string) models.DateTime {
	t.Helper()
	d, err := models.ParseDateTime(raw)
	require.NoError(t, err)
	return d
}

func createProject(t *testing.T, s *Store, name string) models.Project {
	t.Helper()
	p, err := s.CreateProject(context.Background(), models.CreateProjectParams{
		ProjectName:   name,
		StartDateTime: mustDateTime(t, "2024-01-01T00:00:00"),
	}, testCreator)
	require.NoError(t, err)
	return p
}

func createTask(t *testing.T, s *Store, projectID models.ID, name string, parent *models.ID) models.ProjectTask {
	t.Helper()
	task, err := s.CreateTask(context.Background(), projectID, models.CreateTaskParams{TaskName: name, ParentID: parent}, testCreator)
	require.NoError(t, err)
	return task
}

func TestProjectLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := createProject(t, s, "Apollo")
	assert.Equal(t, models.ProjectPlanning, p.ProjectStatus)
	assert.Equal(t, testCreator, p.CreatorID)
	assert.Nil(t, p.UpdateDateTime)

	_, err := s.CreateProject(ctx, models.CreateProjectParams{ProjectName: "Apollo", StartDateTime: p.StartDateTime}, testCreator)
	assert.ErrorIs(t, err, ErrConflict)

	desc := "moon"
	updated, err := s.UpdateProject(ctx, p.ID, models.UpdateProjectParams{
		Description:   models.Some(desc),
		ProjectStatus: models.Some(models.ProjectInProgress),
	}, 2)
	require.NoError(t, err)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "moon", *updated.Description)
	assert.Equal(t, models.ProjectInProgress, updated.ProjectStatus)
	require.NotNil(t, updated.UpdaterID)
	assert.Equal(t, models.ID(2), *updated.UpdaterID)

	cleared, err := s.UpdateProject(ctx, p.ID, models.UpdateProjectParams{Description: models.Null[string]()}, 2)
	require.NoError(t, err)
	assert.Nil(t, cleared.Description)
	assert.Equal(t, models.ProjectInProgress, cleared.ProjectStatus)

	byName, err := s.GetProjectByName(ctx, "Apollo")
	require.NoError(t, err)
	assert.Equal(t, p.ID, byName.ID)

	require.NoError(t, s.DeleteProject(ctx, p.ID))
	_, err = s.GetProject(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteProject(ctx, p.ID), ErrNotFound)
}

func TestListProjectsFiltersAndPaging(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, name := range []string{"alpha", "beta", "alphabet"} {
		createProject(t, s, name)
	}
	_, err := s.CreateProject(ctx, models.CreateProjectParams{ProjectName: "mine", StartDateTime: mustDateTime(t, "2024-01-01T00:00:00")}, 99)
	require.NoError(t, err)

	page, err := s.ListProjects(ctx, models.ProjectQuery{ProjectName: "ALPHA"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.PageSize)

	page, err = s.ListProjects(ctx, models.ProjectQuery{PageQuery: models.PageQuery{Page: 2, PageSize: 3}})
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total)
	assert.Len(t, page.List, 1)

	creator := models.ID(99)
	mine, err := s.AllProjects(ctx, &creator)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "mine", mine[0].ProjectName)
}

func TestTaskDeleteCascadesSubtree(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := createProject(t, s, "tree")

	root := createTask(t, s, p.ID, "root", nil)
	child := createTask(t, s, p.ID, "child", &root.ID)
	createTask(t, s, p.ID, "grandchild", &child.ID)
	other := createTask(t, s, p.ID, "other", nil)

	require.NoError(t, s.DeleteTask(ctx, p.ID, root.ID))

	all, err := s.AllTasks(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, other.ID, all[0].ID)

	assert.ErrorIs(t, s.DeleteTask(ctx, p.ID, root.ID), ErrNotFound)
}

func TestTaskOrderingAndChildren(t *testing.T) {
	s := newTestStore(t)
	p := createProject(t, s, "order")

	a := createTask(t, s, p.ID, "a", nil)
	b := createTask(t, s, p.ID, "b", nil)
	require.NotNil(t, a.Order)
	require.NotNil(t, b.Order)
	assert.Equal(t, 1.0, *a.Order)
	assert.Equal(t, 2.0, *b.Order)

	c := createTask(t, s, p.ID, "c", &a.ID)
	assert.Equal(t, 1.0, *c.Order)

	roots, err := s.TaskChildren(context.Background(), p.ID, nil)
	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.Equal(t, a.ID, roots[0].ID)

	require.NoError(t, s.SetTaskOrders(context.Background(), p.ID, map[models.ID]float64{a.ID: 3}, testCreator))
	roots, err = s.TaskChildren(context.Background(), p.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, b.ID, roots[0].ID)
}

func TestUpdateTaskThreeStates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := createProject(t, s, "states")
	parent := createTask(t, s, p.ID, "parent", nil)

	start := mustDateTime(t, "2024-02-01T09:00:00")
	task, err := s.CreateTask(ctx, p.ID, models.CreateTaskParams{
		TaskName:         "work",
		ParentID:         &parent.ID,
		StartDateTime:    &start,
		CustomAttributes: attribute.Bag{"f_a": strPtr("x"), "f_legacy": strPtr("kept")},
	}, testCreator)
	require.NoError(t, err)

	updated, err := s.UpdateTask(ctx, p.ID, task.ID, models.UpdateTaskParams{TaskName: models.Some("renamed")}, testCreator)
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.TaskName)
	require.NotNil(t, updated.ParentID)
	require.NotNil(t, updated.StartDateTime)
	assert.Equal(t, "2024-02-01T09:00:00", updated.StartDateTime.String())
	v, ok := updated.CustomAttributes.Get("f_legacy")
	require.True(t, ok)
	assert.Equal(t, "kept", v)

	updated, err = s.UpdateTask(ctx, p.ID, task.ID, models.UpdateTaskParams{
		ParentID:      models.Null[models.ID](),
		StartDateTime: models.Null[models.DateTime](),
	}, testCreator)
	require.NoError(t, err)
	assert.Nil(t, updated.ParentID)
	assert.Nil(t, updated.StartDateTime)
	assert.Equal(t, "renamed", updated.TaskName)
}

func TestUpdateTaskRejectsCycles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := createProject(t, s, "cycles")
	root := createTask(t, s, p.ID, "root", nil)
	child := createTask(t, s, p.ID, "child", &root.ID)

	_, err := s.UpdateTask(ctx, p.ID, root.ID, models.UpdateTaskParams{ParentID: models.Some(child.ID)}, testCreator)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = s.UpdateTask(ctx, p.ID, root.ID, models.UpdateTaskParams{ParentID: models.Some(root.ID)}, testCreator)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestListTasksFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := createProject(t, s, "filters")
	root := createTask(t, s, p.ID, "Design", nil)
	createTask(t, s, p.ID, "design review", &root.ID)
	createTask(t, s, p.ID, "build", &root.ID)

	page, err := s.ListTasks(ctx, p.ID, models.TaskQuery{TaskName: "design"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	page, err = s.ListTasks(ctx, p.ID, models.TaskQuery{ParentID: root.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	_, err = s.ListTasks(ctx, p.ID, models.TaskQuery{ParentID: "nope"})
	assert.ErrorIs(t, err, ErrInvalid)
}

func strPtr(s string) *string { return &s }

func TestAttributeConfigLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := createProject(t, s, "schema")

	cfg, err := s.CreateAttributeConfig(ctx, p.ID, models.CreateAttributeConfigParams{
		AttributeLabel: "Priority",
		AttributeType:  attribute.TypeSelect,
		Options:        attribute.Options{{Label: "Low", Value: "low"}, {Label: "High", Value: "high"}},
		ValueColorMap:  attribute.ColorMap{"high": "#ff0000"},
	}, testCreator)
	require.NoError(t, err)
	assert.Regexp(t, `^f_[0-9a-f]{8}$`, cfg.AttributeName)
	assert.Equal(t, attribute.ColorMap{"high": "#ff0000"}, cfg.ValueColorMap)

	_, err = s.CreateAttributeConfig(ctx, p.ID, models.CreateAttributeConfigParams{
		AttributeLabel: "Bad",
		AttributeType:  attribute.TypeSelect,
		Options:        attribute.Options{{Label: "A", Value: "a"}},
		ValueColorMap:  attribute.ColorMap{"b": "#000"},
	}, testCreator)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.ErrorIs(t, err, attribute.ErrColorKeyNotInOptions)

	_, err = s.UpdateAttributeConfig(ctx, p.ID, cfg.ID, models.UpdateAttributeConfigParams{
		AttributeType: models.Some(attribute.TypeText),
	}, testCreator)
	assert.ErrorIs(t, err, attribute.ErrImmutable)

	echoed, err := s.UpdateAttributeConfig(ctx, p.ID, cfg.ID, models.UpdateAttributeConfigParams{
		AttributeName:  models.Some(cfg.AttributeName),
		AttributeType:  models.Some(attribute.TypeSelect),
		AttributeLabel: models.Some("Urgency"),
	}, testCreator)
	require.NoError(t, err)
	assert.Equal(t, "Urgency", echoed.AttributeLabel)
	assert.Equal(t, cfg.ValueColorMap, echoed.ValueColorMap)

	_, err = s.UpdateAttributeConfig(ctx, p.ID, cfg.ID, models.UpdateAttributeConfigParams{
		Options: models.Some(attribute.Options{{Label: "Low", Value: "low"}}),
	}, testCreator)
	assert.ErrorIs(t, err, attribute.ErrColorKeyNotInOptions)

	cleared, err := s.UpdateAttributeConfig(ctx, p.ID, cfg.ID, models.UpdateAttributeConfigParams{
		ValueColorMap: models.Null[attribute.ColorMap](),
	}, testCreator)
	require.NoError(t, err)
	assert.Nil(t, cleared.ValueColorMap)

	order := 0.5
	second, err := s.CreateAttributeConfig(ctx, p.ID, models.CreateAttributeConfigParams{
		AttributeName:  "estimate",
		AttributeLabel: "Estimate",
		AttributeType:  attribute.TypeNumber,
		Order:          &order,
	}, testCreator)
	require.NoError(t, err)

	_, err = s.CreateAttributeConfig(ctx, p.ID, models.CreateAttributeConfigParams{
		AttributeName:  "estimate",
		AttributeLabel: "Again",
		AttributeType:  attribute.TypeNumber,
	}, testCreator)
	assert.ErrorIs(t, err, ErrConflict)

	list, err := s.ListAttributeConfigs(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	n, err := s.BatchDeleteAttributeConfigs(ctx, p.ID, []models.ID{cfg.ID, second.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestRefreshTokenRotation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u, err := s.CreateUser(ctx, models.CreateUserParams{Username: "ann", Password: "hash", FullName: "Ann", Email: "ann@example.com"}, 0)
	require.NoError(t, err)
	assert.Equal(t, u.ID, u.CreatorID)

	exp := time.Now().Add(time.Hour)
	require.NoError(t, s.SaveRefreshToken(ctx, u.ID, "old", exp))
	require.NoError(t, s.RotateRefreshToken(ctx, "old", u.ID, "new", exp))

	_, err = s.GetRefreshToken(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)
	rt, err := s.GetRefreshToken(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, u.ID, rt.UserID)

	assert.ErrorIs(t, s.RotateRefreshToken(ctx, "old", u.ID, "again", exp), ErrNotFound)

	require.NoError(t, s.SaveRefreshToken(ctx, u.ID, "stale", time.Now().Add(-time.Minute)))
	_, err = s.GetRefreshToken(ctx, "stale")
	assert.ErrorIs(t, err, ErrNotFound)
	n, err := s.PurgeExpiredRefreshTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUserUniqueness(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.CreateUser(ctx, models.CreateUserParams{Username: "ann", Password: "h", FullName: "Ann", Email: "ann@example.com"}, 0)
	require.NoError(t, err)

	taken, emailTaken, err := s.UsernameOrEmailTaken(ctx, "ann", "other@example.com")
	require.NoError(t, err)
	assert.True(t, taken)
	assert.False(t, emailTaken)

	_, err = s.CreateUser(ctx, models.CreateUserParams{Username: "bob", Password: "h", FullName: "Bob", Email: "ann@example.com"}, 0)
	assert.ErrorIs(t, err, ErrConflict)

	page, err := s.ListUsers(ctx, models.UserQuery{Keyword: "An"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
}

func TestHolidayBatches(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	day := func(raw string) models.Date {
		d, err := models.ParseDate(raw)
		require.NoError(t, err)
		return d
	}

	created, err := s.BatchCreateHolidays(ctx, []models.CreateHolidayParams{
		{HolidayName: "New Year", HolidayDate: day("2024-01-01"), HolidayType: 1},
		{HolidayName: "Labour Day", HolidayDate: day("2024-05-01"), HolidayType: 1},
	}, testCreator)
	require.NoError(t, err)
	require.Len(t, created, 2)

	_, err = s.BatchCreateHolidays(ctx, []models.CreateHolidayParams{
		{HolidayName: "ok", HolidayDate: day("2024-06-01")},
		{HolidayName: " ", HolidayDate: day("2024-06-02")},
	}, testCreator)
	assert.ErrorIs(t, err, ErrInvalid)

	all, err := s.AllHolidays(ctx, models.HolidayQuery{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Labour Day", all[0].HolidayName)

	n, err := s.BatchUpdateHolidays(ctx, models.BatchUpdateHolidays{
		IDs:         []models.ID{created[0].ID, created[1].ID},
		HolidayType: models.Some(2),
	}, testCreator)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	page, err := s.ListHolidays(ctx, models.HolidayQuery{HolidayType: intPtr(2), StartDate: "2024-02-01"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	n, err = s.BatchDeleteHolidays(ctx, []models.ID{created[0].ID, created[1].ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func intPtr(v int) *int { return &v }

func TestDepartmentsAndTeams(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	d, err := s.CreateDepartment(ctx, models.CreateDepartmentParams{DepartmentName: "Engineering"}, testCreator)
	require.NoError(t, err)
	_, err = s.CreateDepartment(ctx, models.CreateDepartmentParams{DepartmentName: "Engineering"}, testCreator)
	assert.ErrorIs(t, err, ErrConflict)

	desc := "builds things"
	d, err = s.UpdateDepartment(ctx, d.ID, models.UpdateDepartmentParams{Description: models.Some(desc)}, testCreator)
	require.NoError(t, err)
	require.NotNil(t, d.Description)

	found, err := s.GetDepartmentByName(ctx, "Engineering")
	require.NoError(t, err)
	assert.Equal(t, d.ID, found.ID)

	team, err := s.CreateTeam(ctx, models.CreateTeamParams{TeamName: "Platform"}, testCreator)
	require.NoError(t, err)
	page, err := s.ListTeams(ctx, models.NameQuery{Name: "plat"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	require.NoError(t, s.DeleteTeam(ctx, team.ID))
	_, err = s.GetTeam(ctx, team.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
