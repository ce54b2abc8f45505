package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"demeter/internal/models"
)

const holidayColumns = `id, holiday_name, description, holiday_date, holiday_type, ` + auditColumns

func scanHoliday(row rowScanner) (models.Holiday, error) {
	var (
		h    models.Holiday
		desc sql.NullString
		a    auditScan
	)
	if err := row.Scan(append([]any{&h.ID, &h.HolidayName, &desc, &h.HolidayDate, &h.HolidayType}, a.dest()...)...); err != nil {
		return models.Holiday{}, err
	}
	audit, err := a.audit()
	if err != nil {
		return models.Holiday{}, err
	}
	h.Description = stringPtr(desc)
	h.Audit = audit
	return h, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) insertHoliday(ctx context.Context, db execer, p models.CreateHolidayParams, creator models.ID) (models.ID, error) {
	name := strings.TrimSpace(p.HolidayName)
	if name == "" {
		return 0, fmt.Errorf("holiday name must not be empty: %w", ErrInvalid)
	}
	if p.HolidayDate.IsZero() {
		return 0, fmt.Errorf("holiday date is required: %w", ErrInvalid)
	}
	id := s.ids.Next()
	_, err := db.ExecContext(ctx, `INSERT INTO holidays(id, holiday_name, description, holiday_date, holiday_type, creator_id, create_date_time)
        VALUES(?, ?, ?, ?, ?, ?, ?)`, id, name, nullString(p.Description), p.HolidayDate, p.HolidayType, creator, s.timestamp())
	if err != nil {
		return 0, classify(err, "insert holiday")
	}
	return id, nil
}

func (s *Store) CreateHoliday(ctx context.Context, p models.CreateHolidayParams, creator models.ID) (models.Holiday, error) {
	id, err := s.insertHoliday(ctx, s.db, p, creator)
	if err != nil {
		return models.Holiday{}, err
	}
	return s.GetHoliday(ctx, id)
}

// BatchCreateHolidays inserts all holidays or none.
func (s *Store) BatchCreateHolidays(ctx context.Context, items []models.CreateHolidayParams, creator models.ID) ([]models.Holiday, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin batch create: %w", err)
	}
	defer tx.Rollback()

	ids := make([]models.ID, 0, len(items))
	for i, item := range items {
		id, err := s.insertHoliday(ctx, tx, item, creator)
		if err != nil {
			return nil, fmt.Errorf("holiday %d: %w", i, err)
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch create: %w", err)
	}

	out := make([]models.Holiday, 0, len(ids))
	for _, id := range ids {
		h, err := s.GetHoliday(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

func (s *Store) GetHoliday(ctx context.Context, id models.ID) (models.Holiday, error) {
	h, err := scanHoliday(s.db.QueryRowContext(ctx, `SELECT `+holidayColumns+` FROM holidays WHERE id = ?`, id))
	if err != nil {
		return models.Holiday{}, classify(err, "get holiday")
	}
	return h, nil
}

func holidayFilters(q models.HolidayQuery) (*filters, error) {
	f := &filters{}
	f.like("holiday_name", q.HolidayName)
	if q.HolidayType != nil {
		f.add("holiday_type = ?", *q.HolidayType)
	}
	if raw := strings.TrimSpace(q.StartDate); raw != "" {
		d, err := models.ParseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("startDate: %w", ErrInvalid)
		}
		f.add("holiday_date >= ?", d)
	}
	if raw := strings.TrimSpace(q.EndDate); raw != "" {
		d, err := models.ParseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("endDate: %w", ErrInvalid)
		}
		f.add("holiday_date <= ?", d)
	}
	return f, nil
}

// ListHolidays returns one page of holidays, latest date first.
func (s *Store) ListHolidays(ctx context.Context, q models.HolidayQuery) (models.Page[models.Holiday], error) {
	page := q.PageQuery.Normalize()
	f, err := holidayFilters(q)
	if err != nil {
		return models.Page[models.Holiday]{}, err
	}
	total, err := s.count(ctx, "holidays", f)
	if err != nil {
		return models.Page[models.Holiday]{}, err
	}
	list, err := s.queryHolidays(ctx, `SELECT `+holidayColumns+` FROM holidays`+f.where()+` ORDER BY holiday_date DESC, id DESC LIMIT ? OFFSET ?`,
		append(f.args, page.PageSize, page.Offset())...)
	if err != nil {
		return models.Page[models.Holiday]{}, err
	}
	return models.Page[models.Holiday]{List: list, Total: total, Page: page.Page, PageSize: page.PageSize}, nil
}

// AllHolidays lists holidays matching q without paging.
func (s *Store) AllHolidays(ctx context.Context, q models.HolidayQuery) ([]models.Holiday, error) {
	f, err := holidayFilters(q)
	if err != nil {
		return nil, err
	}
	return s.queryHolidays(ctx, `SELECT `+holidayColumns+` FROM holidays`+f.where()+` ORDER BY holiday_date DESC, id DESC`, f.args...)
}

func (s *Store) queryHolidays(ctx context.Context, query string, args ...any) ([]models.Holiday, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	defer rows.Close()

	list := []models.Holiday{}
	for rows.Next() {
		h, err := scanHoliday(rows)
		if err != nil {
			return nil, fmt.Errorf("scan holiday: %w", err)
		}
		list = append(list, h)
	}
	return list, rows.Err()
}

func holidayChanges(name, description models.Optional[string], date models.Optional[models.Date], holidayType models.Optional[int]) (*changes, error) {
	c := &changes{}
	if name.Set && name.Valid {
		trimmed := strings.TrimSpace(name.Value)
		if trimmed == "" {
			return nil, fmt.Errorf("holiday name must not be empty: %w", ErrInvalid)
		}
		c.set("holiday_name", trimmed)
	}
	optional(c, "description", description)
	required(c, "holiday_date", date)
	required(c, "holiday_type", holidayType)
	return c, nil
}

func (s *Store) UpdateHoliday(ctx context.Context, id models.ID, p models.UpdateHolidayParams, updater models.ID) (models.Holiday, error) {
	c, err := holidayChanges(p.HolidayName, p.Description, p.HolidayDate, p.HolidayType)
	if err != nil {
		return models.Holiday{}, err
	}
	if !c.empty() {
		if err := s.execUpdate(ctx, "holidays", id, updater, c, "update holiday"); err != nil {
			return models.Holiday{}, err
		}
	}
	return s.GetHoliday(ctx, id)
}

// BatchUpdateHolidays applies the same changes to every listed holiday.
func (s *Store) BatchUpdateHolidays(ctx context.Context, p models.BatchUpdateHolidays, updater models.ID) (int64, error) {
	if len(p.IDs) == 0 {
		return 0, nil
	}
	c, err := holidayChanges(p.HolidayName, p.Description, models.Optional[models.Date]{}, p.HolidayType)
	if err != nil {
		return 0, err
	}
	if c.empty() {
		return 0, nil
	}
	c.set("updater_id", updater)
	c.set("update_date_time", s.timestamp())
	args := c.args
	for _, id := range p.IDs {
		args = append(args, id)
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`UPDATE holidays SET %s WHERE id IN (%s)`, strings.Join(c.cols, ", "), placeholders(len(p.IDs))), args...)
	if err != nil {
		return 0, classify(err, "batch update holidays")
	}
	return res.RowsAffected()
}

func (s *Store) DeleteHoliday(ctx context.Context, id models.ID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM holidays WHERE id = ?`, id)
	if err != nil {
		return classify(err, "delete holiday")
	}
	return expectAffected(res, "delete holiday")
}

func (s *Store) BatchDeleteHolidays(ctx context.Context, ids []models.ID) (int64, error) {
	return s.batchDelete(ctx, "holidays", ids, "")
}
