package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"demeter/internal/idgen"
	"demeter/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
	ErrInvalid  = errors.New("invalid input")
)

// Store wraps access to the SQLite database and exposes high level helpers.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	ids    *idgen.Generator
	now    func() time.Time
}

// Open initializes a new SQLite store and runs the required migrations.
func Open(dbPath string, ids *idgen.Generator, logger *slog.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}
	if ids == nil {
		return nil, fmt.Errorf("nil id generator")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=ON", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{db: conn, logger: logger, ids: ids, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks the connection for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func ensureDir(dbPath string) error {
	if strings.HasPrefix(dbPath, ":memory:") {
		return nil
	}
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY,
            username TEXT NOT NULL UNIQUE,
            password TEXT NOT NULL,
            full_name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            phone TEXT,
            is_active INTEGER NOT NULL DEFAULT 1,
            creator_id INTEGER NOT NULL,
            updater_id INTEGER,
            create_date_time TEXT NOT NULL,
            update_date_time TEXT
        );`,
		`CREATE TABLE IF NOT EXISTS refresh_tokens (
            id INTEGER PRIMARY KEY,
            user_id INTEGER NOT NULL,
            token TEXT NOT NULL UNIQUE,
            expires_at TEXT NOT NULL,
            created_at TEXT NOT NULL,
            FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
        );`,
		`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user ON refresh_tokens(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_expires ON refresh_tokens(expires_at);`,
		`CREATE TABLE IF NOT EXISTS departments (
            id INTEGER PRIMARY KEY,
            department_name TEXT NOT NULL UNIQUE,
            description TEXT,
            creator_id INTEGER NOT NULL,
            updater_id INTEGER,
            create_date_time TEXT NOT NULL,
            update_date_time TEXT
        );`,
		`CREATE TABLE IF NOT EXISTS teams (
            id INTEGER PRIMARY KEY,
            team_name TEXT NOT NULL UNIQUE,
            description TEXT,
            creator_id INTEGER NOT NULL,
            updater_id INTEGER,
            create_date_time TEXT NOT NULL,
            update_date_time TEXT
        );`,
		`CREATE TABLE IF NOT EXISTS projects (
            id INTEGER PRIMARY KEY,
            project_name TEXT NOT NULL UNIQUE,
            description TEXT,
            start_date_time TEXT NOT NULL,
            end_date_time TEXT,
            project_status INTEGER NOT NULL DEFAULT 1,
            version TEXT,
            "order" REAL,
            creator_id INTEGER NOT NULL,
            updater_id INTEGER,
            create_date_time TEXT NOT NULL,
            update_date_time TEXT
        );`,
		`CREATE INDEX IF NOT EXISTS idx_projects_creator ON projects(creator_id);`,
		`CREATE TABLE IF NOT EXISTS project_task_attribute_configs (
            id INTEGER PRIMARY KEY,
            project_id INTEGER NOT NULL,
            attribute_name TEXT NOT NULL,
            attribute_label TEXT NOT NULL,
            attribute_type TEXT NOT NULL,
            is_required INTEGER NOT NULL DEFAULT 0,
            default_value TEXT,
            options TEXT,
            value_color_map TEXT,
            "order" REAL,
            creator_id INTEGER NOT NULL,
            updater_id INTEGER,
            create_date_time TEXT NOT NULL,
            update_date_time TEXT,
            UNIQUE(project_id, attribute_name),
            FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
        );`,
		`CREATE TABLE IF NOT EXISTS project_tasks (
            id INTEGER PRIMARY KEY,
            task_name TEXT NOT NULL,
            parent_id INTEGER,
            project_id INTEGER NOT NULL,
            "order" REAL,
            custom_attributes TEXT NOT NULL DEFAULT '{}',
            start_date_time TEXT,
            end_date_time TEXT,
            task_type INTEGER NOT NULL DEFAULT 1,
            creator_id INTEGER NOT NULL,
            updater_id INTEGER,
            create_date_time TEXT NOT NULL,
            update_date_time TEXT,
            FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
        );`,
		`CREATE INDEX IF NOT EXISTS idx_project_tasks_project ON project_tasks(project_id);`,
		`CREATE INDEX IF NOT EXISTS idx_project_tasks_parent ON project_tasks(project_id, parent_id);`,
		`CREATE TABLE IF NOT EXISTS holidays (
            id INTEGER PRIMARY KEY,
            holiday_name TEXT NOT NULL,
            description TEXT,
            holiday_date TEXT NOT NULL,
            holiday_type INTEGER NOT NULL DEFAULT 0,
            creator_id INTEGER NOT NULL,
            updater_id INTEGER,
            create_date_time TEXT NOT NULL,
            update_date_time TEXT
        );`,
		`CREATE INDEX IF NOT EXISTS idx_holidays_date ON holidays(holiday_date);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func (s *Store) timestamp() models.DateTime {
	return models.NewDateTime(s.now())
}

// classify maps driver errors onto the store's sentinels.
func classify(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%s: %w", what, ErrConflict)
		case sqlite3.ErrConstraintForeignKey, sqlite3.ErrConstraintNotNull, sqlite3.ErrConstraintCheck:
			return fmt.Errorf("%s: %w: %v", what, ErrInvalid, err)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}

func expectAffected(res sql.Result, what string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// changes collects the SET clause of a partial update.
type changes struct {
	cols []string
	args []any
}

func (c *changes) set(col string, v any) {
	c.cols = append(c.cols, col+" = ?")
	c.args = append(c.args, v)
}

// optional applies a three-state field to a nullable column.
func optional[T any](c *changes, col string, o models.Optional[T]) {
	if !o.Set {
		return
	}
	if !o.Valid {
		c.set(col, nil)
		return
	}
	c.set(col, o.Value)
}

// required applies a three-state field to a NOT NULL column; null means no change.
func required[T any](c *changes, col string, o models.Optional[T]) {
	if o.Set && o.Valid {
		c.set(col, o.Value)
	}
}

func (c *changes) empty() bool {
	return len(c.cols) == 0
}

// execUpdate runs UPDATE table SET ... WHERE id = ? with audit columns appended.
func (s *Store) execUpdate(ctx context.Context, table string, id, updater models.ID, c *changes, what string) error {
	c.set("updater_id", updater)
	c.set("update_date_time", s.timestamp())
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = ?`, table, strings.Join(c.cols, ", "))
	res, err := s.db.ExecContext(ctx, query, append(c.args, id)...)
	if err != nil {
		return classify(err, what)
	}
	return expectAffected(res, what)
}

// filters collects a WHERE clause.
type filters struct {
	conds []string
	args  []any
}

func (f *filters) add(cond string, args ...any) {
	f.conds = append(f.conds, cond)
	f.args = append(f.args, args...)
}

func (f *filters) like(col, fragment string) {
	if fragment = strings.TrimSpace(fragment); fragment != "" {
		f.add(col+` LIKE ? ESCAPE '\'`, "%"+escapeLike(fragment)+"%")
	}
}

func (f *filters) where() string {
	if len(f.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.conds, " AND ")
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (s *Store) count(ctx context.Context, table string, f *filters) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+f.where(), f.args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return total, nil
}

// batchDelete removes the listed ids from table and reports the count.
func (s *Store) batchDelete(ctx context.Context, table string, ids []models.ID, extra string, extraArgs ...any) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id IN (%s)%s`, table, placeholders(len(ids)), extra)
	args := make([]any, 0, len(ids)+len(extraArgs))
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, extraArgs...)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classify(err, "batch delete "+table)
	}
	return res.RowsAffected()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	v := nf.Float64
	return &v
}

func idPtr(ni sql.NullInt64) *models.ID {
	if !ni.Valid {
		return nil
	}
	v := models.ID(ni.Int64)
	return &v
}

func dateTimePtr(ns sql.NullString) (*models.DateTime, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	d, err := models.ParseDateTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// auditColumns is appended to every entity SELECT list.
const auditColumns = `creator_id, updater_id, create_date_time, update_date_time`

type auditScan struct {
	creator   int64
	updater   sql.NullInt64
	createdAt models.DateTime
	updatedAt sql.NullString
}

func (a *auditScan) dest() []any {
	return []any{&a.creator, &a.updater, &a.createdAt, &a.updatedAt}
}

func (a *auditScan) audit() (models.Audit, error) {
	updated, err := dateTimePtr(a.updatedAt)
	if err != nil {
		return models.Audit{}, err
	}
	return models.Audit{
		CreatorID:      models.ID(a.creator),
		UpdaterID:      idPtr(a.updater),
		CreateDateTime: a.createdAt,
		UpdateDateTime: updated,
	}, nil
}
