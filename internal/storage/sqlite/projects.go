package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"demeter/internal/models"
)

const projectColumns = `id, project_name, description, start_date_time, end_date_time, project_status, version, "order", ` + auditColumns

func scanProject(row rowScanner) (models.Project, error) {
	var (
		p           models.Project
		description sql.NullString
		end         sql.NullString
		version     sql.NullString
		order       sql.NullFloat64
		a           auditScan
	)
	dest := append([]any{&p.ID, &p.ProjectName, &description, &p.StartDateTime, &end, &p.ProjectStatus, &version, &order}, a.dest()...)
	if err := row.Scan(dest...); err != nil {
		return models.Project{}, err
	}
	endAt, err := dateTimePtr(end)
	if err != nil {
		return models.Project{}, err
	}
	audit, err := a.audit()
	if err != nil {
		return models.Project{}, err
	}
	p.Description = stringPtr(description)
	p.EndDateTime = endAt
	p.Version = stringPtr(version)
	p.Order = floatPtr(order)
	p.Audit = audit
	return p, nil
}

// CreateProject persists a new project; the status defaults to planning.
func (s *Store) CreateProject(ctx context.Context, p models.CreateProjectParams, creator models.ID) (models.Project, error) {
	name := strings.TrimSpace(p.ProjectName)
	if name == "" {
		return models.Project{}, fmt.Errorf("project name must not be empty: %w", ErrInvalid)
	}
	status := models.ProjectPlanning
	if p.ProjectStatus != nil {
		status = *p.ProjectStatus
	}
	if !status.Valid() {
		return models.Project{}, fmt.Errorf("project status %d: %w", status, ErrInvalid)
	}
	if p.EndDateTime != nil && p.EndDateTime.Before(p.StartDateTime.Time) {
		return models.Project{}, fmt.Errorf("project ends before it starts: %w", ErrInvalid)
	}

	id := s.ids.Next()
	_, err := s.db.ExecContext(ctx, `INSERT INTO projects(id, project_name, description, start_date_time, end_date_time, project_status, version, "order", creator_id, create_date_time)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, name, nullString(p.Description), p.StartDateTime, p.EndDateTime, status, nullString(p.Version), p.Order, creator, s.timestamp())
	if err != nil {
		return models.Project{}, classify(err, "insert project")
	}
	return s.GetProject(ctx, id)
}

// GetProject fetches a single project by id.
func (s *Store) GetProject(ctx context.Context, id models.ID) (models.Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
	if err != nil {
		return models.Project{}, classify(err, "get project")
	}
	return p, nil
}

func (s *Store) GetProjectByName(ctx context.Context, name string) (models.Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE project_name = ?`, strings.TrimSpace(name)))
	if err != nil {
		return models.Project{}, classify(err, "get project by name")
	}
	return p, nil
}

func projectFilters(q models.ProjectQuery) (*filters, error) {
	f := &filters{}
	f.like("project_name", q.ProjectName)
	if q.ProjectStatus != nil {
		f.add("project_status = ?", *q.ProjectStatus)
	}
	if raw := strings.TrimSpace(q.StartDateTime); raw != "" {
		start, err := models.ParseDateTime(raw)
		if err != nil {
			return nil, fmt.Errorf("startDateTime: %w", ErrInvalid)
		}
		f.add("start_date_time >= ?", start)
	}
	if raw := strings.TrimSpace(q.EndDateTime); raw != "" {
		end, err := models.ParseDateTime(raw)
		if err != nil {
			return nil, fmt.Errorf("endDateTime: %w", ErrInvalid)
		}
		f.add("end_date_time <= ?", end)
	}
	if q.CreatorID != nil {
		f.add("creator_id = ?", *q.CreatorID)
	}
	return f, nil
}

const projectOrder = ` ORDER BY "order" ASC NULLS LAST, create_date_time DESC, id DESC`

// ListProjects returns one page of projects matching q.
func (s *Store) ListProjects(ctx context.Context, q models.ProjectQuery) (models.Page[models.Project], error) {
	page := q.PageQuery.Normalize()
	f, err := projectFilters(q)
	if err != nil {
		return models.Page[models.Project]{}, err
	}
	total, err := s.count(ctx, "projects", f)
	if err != nil {
		return models.Page[models.Project]{}, err
	}
	projects, err := s.queryProjects(ctx, `SELECT `+projectColumns+` FROM projects`+f.where()+projectOrder+` LIMIT ? OFFSET ?`,
		append(f.args, page.PageSize, page.Offset())...)
	if err != nil {
		return models.Page[models.Project]{}, err
	}
	return models.Page[models.Project]{List: projects, Total: total, Page: page.Page, PageSize: page.PageSize}, nil
}

// AllProjects lists every project, or only those created by creator when set.
func (s *Store) AllProjects(ctx context.Context, creator *models.ID) ([]models.Project, error) {
	f, _ := projectFilters(models.ProjectQuery{CreatorID: creator})
	return s.queryProjects(ctx, `SELECT `+projectColumns+` FROM projects`+f.where()+projectOrder, f.args...)
}

func (s *Store) queryProjects(ctx context.Context, query string, args ...any) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// UpdateProject applies a partial update.
func (s *Store) UpdateProject(ctx context.Context, id models.ID, p models.UpdateProjectParams, updater models.ID) (models.Project, error) {
	c := &changes{}
	if p.ProjectName.Set && p.ProjectName.Valid {
		name := strings.TrimSpace(p.ProjectName.Value)
		if name == "" {
			return models.Project{}, fmt.Errorf("project name must not be empty: %w", ErrInvalid)
		}
		c.set("project_name", name)
	}
	if p.ProjectStatus.Set && p.ProjectStatus.Valid && !p.ProjectStatus.Value.Valid() {
		return models.Project{}, fmt.Errorf("project status %d: %w", p.ProjectStatus.Value, ErrInvalid)
	}
	optional(c, "description", p.Description)
	required(c, "start_date_time", p.StartDateTime)
	optional(c, "end_date_time", p.EndDateTime)
	required(c, "project_status", p.ProjectStatus)
	optional(c, "version", p.Version)
	optional(c, `"order"`, p.Order)
	if c.empty() {
		return s.GetProject(ctx, id)
	}
	if err := s.execUpdate(ctx, "projects", id, updater, c, "update project"); err != nil {
		return models.Project{}, err
	}
	return s.GetProject(ctx, id)
}

// DeleteProject removes a project along with its tasks and attribute configs.
func (s *Store) DeleteProject(ctx context.Context, id models.ID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return classify(err, "delete project")
	}
	return expectAffected(res, "delete project")
}

func (s *Store) BatchDeleteProjects(ctx context.Context, ids []models.ID) (int64, error) {
	return s.batchDelete(ctx, "projects", ids, "")
}
