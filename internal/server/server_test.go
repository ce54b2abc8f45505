package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demeter/internal/auth"
	"demeter/internal/idgen"
	"demeter/internal/models"
	"demeter/internal/storage/sqlite"
)

type apiEnvelope struct {
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type testAPI struct {
	t      *testing.T
	base   string
	client *http.Client
}

func newTestAPI(t *testing.T, opts Options) *testAPI {
	t.Helper()
	ids, err := idgen.New(1, 1)
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "demeter.db"), ids, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	tokens, err := auth.NewManager("test-secret-0123456789", time.Minute, time.Hour)
	require.NoError(t, err)

	ts := httptest.NewServer(New(store, tokens, logger, opts).Engine())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testAPI{t: t, base: ts.URL, client: &http.Client{Jar: jar}}
}

func (a *testAPI) do(method, path string, body any) (int, apiEnvelope) {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, a.base+path, reader)
	require.NoError(a.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := a.client.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	var env apiEnvelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(a.t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, env apiEnvelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v), string(env.Data))
	return v
}

func (a *testAPI) signIn(username string) models.User {
	a.t.Helper()
	status, _ := a.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username": username, "password": "secret1", "fullName": "Test User", "email": username + "@example.com",
	})
	require.Equal(a.t, http.StatusCreated, status)
	status, env := a.do(http.MethodPost, "/api/auth/login", map[string]string{"username": username, "password": "secret1"})
	require.Equal(a.t, http.StatusOK, status, env.Message)
	return decode[struct{ User models.User }](a.t, env).User
}

func (a *testAPI) cookie(name string) string {
	req, _ := http.NewRequest(http.MethodGet, a.base+"/api/", nil)
	for _, c := range a.client.Jar.Cookies(req.URL) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func (a *testAPI) createProject(name string) models.Project {
	a.t.Helper()
	status, env := a.do(http.MethodPost, "/api/projects", map[string]any{
		"projectName": name, "startDateTime": "2024-01-01T00:00:00",
	})
	require.Equal(a.t, http.StatusCreated, status, env.Message)
	return decode[models.Project](a.t, env)
}

func (a *testAPI) createTask(projectID models.ID, body map[string]any) models.ProjectTask {
	a.t.Helper()
	status, env := a.do(http.MethodPost, "/api/projects/"+projectID.String()+"/tasks", body)
	require.Equal(a.t, http.StatusCreated, status, env.Message)
	return decode[models.ProjectTask](a.t, env)
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t, Options{})

	status, env := api.do(http.MethodGet, "/api/auth/session", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, http.StatusUnauthorized, env.Code)
	assert.Equal(t, "null", string(env.Data))

	status, env = api.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username": "ada", "password": "123", "email": "ada@example.com",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Message, "at least 6")

	user := api.signIn("ada")
	assert.Equal(t, "ada", user.Username)
	assert.NotEmpty(t, api.cookie(auth.AccessCookie))
	assert.NotEmpty(t, api.cookie(auth.RefreshCookie))

	status, env = api.do(http.MethodGet, "/api/auth/session", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, http.StatusOK, env.Code)
	assert.Equal(t, user.ID, decode[struct{ User models.User }](t, env).User.ID)

	status, _ = api.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username": "ada", "password": "secret1", "email": "other@example.com",
	})
	assert.Equal(t, http.StatusConflict, status)

	status, env = api.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "ada", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "incorrect username or password", env.Message)

	status, _ = api.do(http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = api.do(http.MethodGet, "/api/auth/session", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRefreshRotatesToken(t *testing.T) {
	api := newTestAPI(t, Options{})
	api.signIn("grace")
	old := api.cookie(auth.RefreshCookie)

	status, _ := api.do(http.MethodPost, "/api/auth/refresh", nil)
	require.Equal(t, http.StatusOK, status)
	rotated := api.cookie(auth.RefreshCookie)
	assert.NotEqual(t, old, rotated)

	replay, err := http.NewRequest(http.MethodPost, api.base+"/api/auth/refresh", nil)
	require.NoError(t, err)
	replay.AddCookie(&http.Cookie{Name: auth.RefreshCookie, Value: old})
	resp, err := http.DefaultClient.Do(replay)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBearerTokenAccepted(t *testing.T) {
	api := newTestAPI(t, Options{})
	api.signIn("linus")
	access := api.cookie(auth.AccessCookie)

	req, err := http.NewRequest(http.MethodGet, api.base+"/api/projects/all", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+access)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProjectEndpoints(t *testing.T) {
	api := newTestAPI(t, Options{})
	me := api.signIn("ken")

	project := api.createProject("Apollo")
	assert.Equal(t, me.ID, project.CreatorID)
	path := "/api/projects/" + project.ID.String()

	status, env := api.do(http.MethodPut, path, map[string]any{"description": "moon", "projectStatus": 2})
	require.Equal(t, http.StatusOK, status, env.Message)
	updated := decode[models.Project](t, env)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "moon", *updated.Description)
	assert.Equal(t, models.ProjectInProgress, updated.ProjectStatus)
	assert.Equal(t, "Apollo", updated.ProjectName)

	status, env = api.do(http.MethodPut, path, map[string]any{"description": nil})
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, decode[models.Project](t, env).Description)

	api.createProject("Gemini")
	status, env = api.do(http.MethodGet, "/api/projects?page=1&pageSize=1", nil)
	require.Equal(t, http.StatusOK, status)
	page := decode[models.Page[models.Project]](t, env)
	assert.Equal(t, int64(2), page.Total)
	assert.Len(t, page.List, 1)
	assert.Equal(t, 1, page.PageSize)

	status, _ = api.do(http.MethodPost, "/api/projects", map[string]any{"projectName": "Apollo", "startDateTime": "2024-01-01T00:00:00"})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = api.do(http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, env = api.do(http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, http.StatusNotFound, env.Code)

	status, _ = api.do(http.MethodGet, "/api/projects/not-a-number", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestTaskAttributesArePolicyChecked(t *testing.T) {
	api := newTestAPI(t, Options{})
	api.signIn("barbara")
	project := api.createProject("Apollo")
	base := "/api/projects/" + project.ID.String()

	status, env := api.do(http.MethodPost, base+"/task-attribute-configs", map[string]any{
		"attributeName": "f_points", "attributeLabel": "Points", "attributeType": "number",
	})
	require.Equal(t, http.StatusCreated, status, env.Message)

	status, env = api.do(http.MethodPost, base+"/tasks", map[string]any{
		"taskName": "Design", "customAttributes": map[string]any{"f_points": "lots"},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Message, "customAttributes.f_points")

	task := api.createTask(project.ID, map[string]any{
		"taskName": "Design", "customAttributes": map[string]any{"f_points": 8, "legacy": "kept"},
	})
	assert.Equal(t, "8", *task.CustomAttributes["f_points"])
	assert.Equal(t, "kept", *task.CustomAttributes["legacy"])

	lenient := newTestAPI(t, Options{Policy: "lenient"})
	lenient.signIn("barbara")
	other := lenient.createProject("Gemini")
	lbase := "/api/projects/" + other.ID.String()
	status, _ = lenient.do(http.MethodPost, lbase+"/task-attribute-configs", map[string]any{
		"attributeName": "f_points", "attributeLabel": "Points", "attributeType": "number",
	})
	require.Equal(t, http.StatusCreated, status)
	loose := lenient.createTask(other.ID, map[string]any{"taskName": "Design", "customAttributes": map[string]any{"f_points": "lots"}})
	assert.Equal(t, "lots", *loose.CustomAttributes["f_points"])
}

func TestMoveAndReorderTasks(t *testing.T) {
	api := newTestAPI(t, Options{})
	api.signIn("edsger")
	project := api.createProject("Apollo")
	base := "/api/projects/" + project.ID.String() + "/tasks"

	a := api.createTask(project.ID, map[string]any{"taskName": "A"})
	b := api.createTask(project.ID, map[string]any{"taskName": "B"})
	c := api.createTask(project.ID, map[string]any{"taskName": "C"})

	status, env := api.do(http.MethodPost, base+"/"+c.ID.String()+"/move", map[string]any{"targetId": a.ID, "position": "before"})
	require.Equal(t, http.StatusOK, status, env.Message)
	moved := decode[models.ProjectTask](t, env)
	require.NotNil(t, moved.Order)
	assert.Less(t, *moved.Order, *a.Order)

	status, env = api.do(http.MethodPost, base+"/"+b.ID.String()+"/move", map[string]any{"targetId": a.ID, "position": "child"})
	require.Equal(t, http.StatusOK, status, env.Message)
	child := decode[models.ProjectTask](t, env)
	require.NotNil(t, child.ParentID)
	assert.Equal(t, a.ID, *child.ParentID)

	status, _ = api.do(http.MethodPost, base+"/"+a.ID.String()+"/move", map[string]any{"targetId": b.ID, "position": "child"})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = api.do(http.MethodPost, base+"/"+a.ID.String()+"/move", map[string]any{"targetId": a.ID, "position": "after"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = api.do(http.MethodPost, base+"/reorder", map[string]any{"parentId": nil})
	require.Equal(t, http.StatusOK, status, env.Message)
	roots := decode[[]models.ProjectTask](t, env)
	require.Len(t, roots, 2)
	assert.Equal(t, c.ID, roots[0].ID)
	assert.Equal(t, 1.0, *roots[0].Order)
	assert.Equal(t, a.ID, roots[1].ID)
	assert.Equal(t, 2.0, *roots[1].Order)

	status, _ = api.do(http.MethodDelete, base+"/"+a.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = api.do(http.MethodGet, base+"/"+b.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestMoveBetweenTiedSiblingsKeepsDropPosition(t *testing.T) {
	api := newTestAPI(t, Options{})
	api.signIn("barbara")
	project := api.createProject("Gemini")
	base := "/api/projects/" + project.ID.String() + "/tasks"

	api.createTask(project.ID, map[string]any{"taskName": "A", "order": 1})
	api.createTask(project.ID, map[string]any{"taskName": "B", "order": 1})
	c := api.createTask(project.ID, map[string]any{"taskName": "C", "order": 2})

	names := func() []string {
		status, env := api.do(http.MethodGet, base+"/all", nil)
		require.Equal(t, http.StatusOK, status)
		var out []string
		for _, task := range decode[[]models.ProjectTask](t, env) {
			out = append(out, task.TaskName)
		}
		return out
	}
	before := names()
	require.Len(t, before, 3)
	require.Equal(t, "C", before[2])

	status, env := api.do(http.MethodGet, base+"/all", nil)
	require.Equal(t, http.StatusOK, status)
	second := decode[[]models.ProjectTask](t, env)[1]

	status, env = api.do(http.MethodPost, base+"/"+c.ID.String()+"/move", map[string]any{"targetId": second.ID, "position": "before"})
	require.Equal(t, http.StatusOK, status, env.Message)
	moved := decode[models.ProjectTask](t, env)
	require.NotNil(t, moved.Order)
	assert.Equal(t, 2.0, *moved.Order)

	assert.Equal(t, []string{before[0], "C", before[1]}, names())
}

func TestScheduleEndpoint(t *testing.T) {
	api := newTestAPI(t, Options{})
	api.signIn("margaret")
	project := api.createProject("Apollo")
	base := "/api/projects/" + project.ID.String()

	status, env := api.do(http.MethodPost, base+"/task-attribute-configs", map[string]any{
		"attributeName": "f_status", "attributeLabel": "Status", "attributeType": "select",
		"options":       []map[string]string{{"label": "Open", "value": "open"}},
		"valueColorMap": map[string]string{"open": "#ff0000"},
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	api.createTask(project.ID, map[string]any{
		"taskName": "Design", "startDateTime": "2024-01-01T00:00:00", "endDateTime": "2024-01-05T00:00:00",
		"customAttributes": map[string]any{"f_status": "open"},
	})

	status, env = api.do(http.MethodGet, base+"/schedule?colorAttribute=f_status&columns=title,ca.f_status", nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	var model struct {
		Events []struct {
			Color string `json:"color"`
		} `json:"events"`
		Columns []struct {
			Key string `json:"key"`
		} `json:"columns"`
		Legend []struct {
			Value string `json:"value"`
		} `json:"legend"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &model))
	require.Len(t, model.Events, 1)
	assert.Equal(t, "#ff0000", model.Events[0].Color)
	require.Len(t, model.Columns, 2)
	assert.Equal(t, "ca.f_status", model.Columns[1].Key)
	require.Len(t, model.Legend, 1)

	status, _ = api.do(http.MethodGet, base+"/schedule?colorAttribute=missing", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestBatchDeleteReportsCount(t *testing.T) {
	api := newTestAPI(t, Options{})
	api.signIn("alan")
	p1 := api.createProject("One")
	p2 := api.createProject("Two")

	status, env := api.do(http.MethodPost, "/api/projects/batch-delete", map[string]any{"ids": []models.ID{p1.ID, p2.ID}})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(2), decode[models.BatchResult](t, env).Count)
}

func TestDepartmentRoutes(t *testing.T) {
	api := newTestAPI(t, Options{})
	api.signIn("frances")

	status, env := api.do(http.MethodPost, "/api/departments", map[string]any{"departmentName": "Research"})
	require.Equal(t, http.StatusCreated, status, env.Message)
	dept := decode[models.Department](t, env)

	status, env = api.do(http.MethodGet, "/api/departments/name/Research", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, dept.ID, decode[models.Department](t, env).ID)

	status, _ = api.do(http.MethodPost, "/api/teams", map[string]any{"teamName": "Core"})
	assert.Equal(t, http.StatusCreated, status)
	status, env = api.do(http.MethodGet, "/api/teams/all", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Team](t, env), 1)
}

func TestUnknownAPIRoute(t *testing.T) {
	api := newTestAPI(t, Options{})
	status, env := api.do(http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, http.StatusNotFound, env.Code)
}

func TestLoginIsRateLimited(t *testing.T) {
	api := newTestAPI(t, Options{AuthRatePerMinute: 2})
	body := map[string]string{"username": "nobody", "password": "whatever"}
	for range 2 {
		status, _ := api.do(http.MethodPost, "/api/auth/login", body)
		assert.Equal(t, http.StatusUnauthorized, status)
	}
	status, env := api.do(http.MethodPost, "/api/auth/login", body)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, http.StatusTooManyRequests, env.Code)
}

func TestIdleRateLimitersExpire(t *testing.T) {
	l := newIPLimiter(1, 50*time.Millisecond)
	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.2"))
	assert.Equal(t, 2, l.limiters.ItemCount())

	assert.Eventually(t, func() bool { return l.limiters.ItemCount() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, l.allow("10.0.0.1"), "an expired address starts with a full bucket")
}

func TestMetricsEndpoint(t *testing.T) {
	api := newTestAPI(t, Options{})
	api.do(http.MethodGet, "/api/healthz", nil)

	resp, err := http.Get(api.base + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "demeter_http_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	api := newTestAPI(t, Options{CORSOrigins: []string{"http://localhost:5173"}})
	req, err := http.NewRequest(http.MethodOptions, api.base+"/api/projects", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}
