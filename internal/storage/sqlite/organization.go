package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"demeter/internal/models"
)

// namedTable describes the shared shape of departments and teams:
// an id, a unique name, an optional description and the audit columns.
type namedTable struct {
	table   string
	nameCol string
	what    string
}

var (
	departmentTable = namedTable{table: "departments", nameCol: "department_name", what: "department"}
	teamTable       = namedTable{table: "teams", nameCol: "team_name", what: "team"}
)

type namedRow struct {
	id          models.ID
	name        string
	description *string
	audit       models.Audit
}

func (t namedTable) columns() string {
	return `id, ` + t.nameCol + `, description, ` + auditColumns
}

func scanNamed(row rowScanner) (namedRow, error) {
	var (
		r    namedRow
		desc sql.NullString
		a    auditScan
	)
	if err := row.Scan(append([]any{&r.id, &r.name, &desc}, a.dest()...)...); err != nil {
		return namedRow{}, err
	}
	audit, err := a.audit()
	if err != nil {
		return namedRow{}, err
	}
	r.description = stringPtr(desc)
	r.audit = audit
	return r, nil
}

func (s *Store) createNamed(ctx context.Context, t namedTable, name string, description *string, creator models.ID) (models.ID, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("%s name: %w", t.what, ErrInvalid)
	}
	id := s.ids.Next()
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s(id, %s, description, creator_id, create_date_time) VALUES(?, ?, ?, ?, ?)`, t.table, t.nameCol),
		id, name, nullString(description), creator, s.timestamp())
	if err != nil {
		return 0, classify(err, "insert "+t.what)
	}
	return id, nil
}

func (s *Store) getNamed(ctx context.Context, t namedTable, col string, v any) (namedRow, error) {
	r, err := scanNamed(s.db.QueryRowContext(ctx, `SELECT `+t.columns()+` FROM `+t.table+` WHERE `+col+` = ?`, v))
	if err != nil {
		return namedRow{}, classify(err, "get "+t.what)
	}
	return r, nil
}

func (s *Store) listNamed(ctx context.Context, t namedTable, q models.NameQuery) ([]namedRow, int64, models.PageQuery, error) {
	page := q.PageQuery.Normalize()
	f := &filters{}
	f.like(t.nameCol, q.Name)
	total, err := s.count(ctx, t.table, f)
	if err != nil {
		return nil, 0, page, err
	}
	rows, err := s.queryNamed(ctx, t, `SELECT `+t.columns()+` FROM `+t.table+f.where()+` ORDER BY create_date_time DESC, id DESC LIMIT ? OFFSET ?`,
		append(f.args, page.PageSize, page.Offset())...)
	return rows, total, page, err
}

func (s *Store) queryNamed(ctx context.Context, t namedTable, query string, args ...any) ([]namedRow, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.table, err)
	}
	defer rows.Close()

	var out []namedRow
	for rows.Next() {
		r, err := scanNamed(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.what, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) updateNamed(ctx context.Context, t namedTable, id models.ID, name, description models.Optional[string], updater models.ID) error {
	c := &changes{}
	if name.Set && name.Valid {
		trimmed := strings.TrimSpace(name.Value)
		if trimmed == "" {
			return fmt.Errorf("%s name: %w", t.what, ErrInvalid)
		}
		c.set(t.nameCol, trimmed)
	}
	optional(c, "description", description)
	if c.empty() {
		_, err := s.getNamed(ctx, t, "id", id)
		return err
	}
	return s.execUpdate(ctx, t.table, id, updater, c, "update "+t.what)
}

func (s *Store) deleteNamed(ctx context.Context, t namedTable, id models.ID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+t.table+` WHERE id = ?`, id)
	if err != nil {
		return classify(err, "delete "+t.what)
	}
	return expectAffected(res, "delete "+t.what)
}

func toDepartment(r namedRow) models.Department {
	return models.Department{ID: r.id, DepartmentName: r.name, Description: r.description, Audit: r.audit}
}

func toTeam(r namedRow) models.Team {
	return models.Team{ID: r.id, TeamName: r.name, Description: r.description, Audit: r.audit}
}

func mapRows[T any](rows []namedRow, conv func(namedRow) T) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		out = append(out, conv(r))
	}
	return out
}

func (s *Store) CreateDepartment(ctx context.Context, p models.CreateDepartmentParams, creator models.ID) (models.Department, error) {
	id, err := s.createNamed(ctx, departmentTable, p.DepartmentName, p.Description, creator)
	if err != nil {
		return models.Department{}, err
	}
	return s.GetDepartment(ctx, id)
}

func (s *Store) GetDepartment(ctx context.Context, id models.ID) (models.Department, error) {
	r, err := s.getNamed(ctx, departmentTable, "id", id)
	return toDepartment(r), err
}

func (s *Store) GetDepartmentByName(ctx context.Context, name string) (models.Department, error) {
	r, err := s.getNamed(ctx, departmentTable, "department_name", strings.TrimSpace(name))
	return toDepartment(r), err
}

func (s *Store) ListDepartments(ctx context.Context, q models.NameQuery) (models.Page[models.Department], error) {
	rows, total, page, err := s.listNamed(ctx, departmentTable, q)
	if err != nil {
		return models.Page[models.Department]{}, err
	}
	return models.Page[models.Department]{List: mapRows(rows, toDepartment), Total: total, Page: page.Page, PageSize: page.PageSize}, nil
}

func (s *Store) AllDepartments(ctx context.Context) ([]models.Department, error) {
	rows, err := s.queryNamed(ctx, departmentTable, `SELECT `+departmentTable.columns()+` FROM departments ORDER BY department_name ASC`)
	if err != nil {
		return nil, err
	}
	return mapRows(rows, toDepartment), nil
}

func (s *Store) UpdateDepartment(ctx context.Context, id models.ID, p models.UpdateDepartmentParams, updater models.ID) (models.Department, error) {
	if err := s.updateNamed(ctx, departmentTable, id, p.DepartmentName, p.Description, updater); err != nil {
		return models.Department{}, err
	}
	return s.GetDepartment(ctx, id)
}

func (s *Store) DeleteDepartment(ctx context.Context, id models.ID) error {
	return s.deleteNamed(ctx, departmentTable, id)
}

func (s *Store) BatchDeleteDepartments(ctx context.Context, ids []models.ID) (int64, error) {
	return s.batchDelete(ctx, departmentTable.table, ids, "")
}

func (s *Store) CreateTeam(ctx context.Context, p models.CreateTeamParams, creator models.ID) (models.Team, error) {
	id, err := s.createNamed(ctx, teamTable, p.TeamName, p.Description, creator)
	if err != nil {
		return models.Team{}, err
	}
	return s.GetTeam(ctx, id)
}

func (s *Store) GetTeam(ctx context.Context, id models.ID) (models.Team, error) {
	r, err := s.getNamed(ctx, teamTable, "id", id)
	return toTeam(r), err
}

func (s *Store) GetTeamByName(ctx context.Context, name string) (models.Team, error) {
	r, err := s.getNamed(ctx, teamTable, "team_name", strings.TrimSpace(name))
	return toTeam(r), err
}

func (s *Store) ListTeams(ctx context.Context, q models.NameQuery) (models.Page[models.Team], error) {
	rows, total, page, err := s.listNamed(ctx, teamTable, q)
	if err != nil {
		return models.Page[models.Team]{}, err
	}
	return models.Page[models.Team]{List: mapRows(rows, toTeam), Total: total, Page: page.Page, PageSize: page.PageSize}, nil
}

func (s *Store) AllTeams(ctx context.Context) ([]models.Team, error) {
	rows, err := s.queryNamed(ctx, teamTable, `SELECT `+teamTable.columns()+` FROM teams ORDER BY team_name ASC`)
	if err != nil {
		return nil, err
	}
	return mapRows(rows, toTeam), nil
}

func (s *Store) UpdateTeam(ctx context.Context, id models.ID, p models.UpdateTeamParams, updater models.ID) (models.Team, error) {
	if err := s.updateNamed(ctx, teamTable, id, p.TeamName, p.Description, updater); err != nil {
		return models.Team{}, err
	}
	return s.GetTeam(ctx, id)
}

func (s *Store) DeleteTeam(ctx context.Context, id models.ID) error {
	return s.deleteNamed(ctx, teamTable, id)
}

func (s *Store) BatchDeleteTeams(ctx context.Context, ids []models.ID) (int64, error) {
	return s.batchDelete(ctx, teamTable.table, ids, "")
}
