package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"demeter/internal/attribute"
	"demeter/internal/models"
)

const taskColumns = `id, task_name, parent_id, project_id, "order", custom_attributes, start_date_time, end_date_time, task_type, ` + auditColumns

// taskOrder puts ordered tasks first; unordered ones follow, newest first.
const taskOrder = ` ORDER BY "order" ASC NULLS LAST, create_date_time DESC, id DESC`

func scanTask(row rowScanner) (models.ProjectTask, error) {
	var (
		t      models.ProjectTask
		parent sql.NullInt64
		order  sql.NullFloat64
		attrs  string
		start  sql.NullString
		end    sql.NullString
		a      auditScan
	)
	dest := append([]any{&t.ID, &t.TaskName, &parent, &t.ProjectID, &order, &attrs, &start, &end, &t.TaskType}, a.dest()...)
	if err := row.Scan(dest...); err != nil {
		return models.ProjectTask{}, err
	}
	t.CustomAttributes = attribute.Bag{}
	if attrs != "" {
		if err := json.Unmarshal([]byte(attrs), &t.CustomAttributes); err != nil {
			return models.ProjectTask{}, fmt.Errorf("decode custom attributes: %w", err)
		}
		if t.CustomAttributes == nil {
			t.CustomAttributes = attribute.Bag{}
		}
	}
	var err error
	if t.StartDateTime, err = dateTimePtr(start); err != nil {
		return models.ProjectTask{}, err
	}
	if t.EndDateTime, err = dateTimePtr(end); err != nil {
		return models.ProjectTask{}, err
	}
	audit, err := a.audit()
	if err != nil {
		return models.ProjectTask{}, err
	}
	t.ParentID = idPtr(parent)
	t.Order = floatPtr(order)
	t.Audit = audit
	return t, nil
}

func encodeBag(bag attribute.Bag) (string, error) {
	if bag == nil {
		bag = attribute.Bag{}
	}
	data, err := json.Marshal(bag)
	if err != nil {
		return "", fmt.Errorf("encode custom attributes: %w", err)
	}
	return string(data), nil
}

// CreateTask inserts a task. Without an explicit order it is appended after
// its siblings.
func (s *Store) CreateTask(ctx context.Context, projectID models.ID, p models.CreateTaskParams, creator models.ID) (models.ProjectTask, error) {
	name := strings.TrimSpace(p.TaskName)
	if name == "" {
		return models.ProjectTask{}, fmt.Errorf("task name must not be empty: %w", ErrInvalid)
	}
	taskType := models.TaskTypeDefault
	if p.TaskType != nil {
		taskType = *p.TaskType
	}
	if !taskType.Valid() {
		return models.ProjectTask{}, fmt.Errorf("task type %d: %w", taskType, ErrInvalid)
	}
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return models.ProjectTask{}, err
	}
	if p.ParentID != nil {
		if _, err := s.GetTask(ctx, projectID, *p.ParentID); err != nil {
			return models.ProjectTask{}, fmt.Errorf("parent task: %w", err)
		}
	}

	order := p.Order
	if order == nil {
		next, err := s.nextOrder(ctx, projectID, p.ParentID)
		if err != nil {
			return models.ProjectTask{}, err
		}
		order = &next
	}
	attrs, err := encodeBag(p.CustomAttributes)
	if err != nil {
		return models.ProjectTask{}, err
	}

	id := s.ids.Next()
	_, err = s.db.ExecContext(ctx, `INSERT INTO project_tasks(id, task_name, parent_id, project_id, "order", custom_attributes, start_date_time, end_date_time, task_type, creator_id, create_date_time)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, name, p.ParentID, projectID, order, attrs, p.StartDateTime, p.EndDateTime, taskType, creator, s.timestamp())
	if err != nil {
		return models.ProjectTask{}, classify(err, "insert task")
	}
	return s.GetTask(ctx, projectID, id)
}

// GetTask retrieves a task of a project by id.
func (s *Store) GetTask(ctx context.Context, projectID, id models.ID) (models.ProjectTask, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM project_tasks WHERE project_id = ? AND id = ?`, projectID, id))
	if err != nil {
		return models.ProjectTask{}, classify(err, "get task")
	}
	return t, nil
}

// ListTasks returns one page of a project's tasks.
func (s *Store) ListTasks(ctx context.Context, projectID models.ID, q models.TaskQuery) (models.Page[models.ProjectTask], error) {
	page := q.PageQuery.Normalize()
	f := &filters{}
	f.add("project_id = ?", projectID)
	f.like("task_name", q.TaskName)
	if raw := strings.TrimSpace(q.ParentID); raw != "" {
		parent, err := models.ParseID(raw)
		if err != nil {
			return models.Page[models.ProjectTask]{}, fmt.Errorf("parentId: %w", ErrInvalid)
		}
		f.add("parent_id = ?", parent)
	}
	total, err := s.count(ctx, "project_tasks", f)
	if err != nil {
		return models.Page[models.ProjectTask]{}, err
	}
	tasks, err := s.queryTasks(ctx, `SELECT `+taskColumns+` FROM project_tasks`+f.where()+taskOrder+` LIMIT ? OFFSET ?`,
		append(f.args, page.PageSize, page.Offset())...)
	if err != nil {
		return models.Page[models.ProjectTask]{}, err
	}
	return models.Page[models.ProjectTask]{List: tasks, Total: total, Page: page.Page, PageSize: page.PageSize}, nil
}

// AllTasks returns every task of a project.
func (s *Store) AllTasks(ctx context.Context, projectID models.ID) ([]models.ProjectTask, error) {
	return s.queryTasks(ctx, `SELECT `+taskColumns+` FROM project_tasks WHERE project_id = ?`+taskOrder, projectID)
}

// TaskChildren lists the direct children of parentID, or the roots when nil.
func (s *Store) TaskChildren(ctx context.Context, projectID models.ID, parentID *models.ID) ([]models.ProjectTask, error) {
	if parentID == nil {
		return s.queryTasks(ctx, `SELECT `+taskColumns+` FROM project_tasks WHERE project_id = ? AND parent_id IS NULL`+taskOrder, projectID)
	}
	return s.queryTasks(ctx, `SELECT `+taskColumns+` FROM project_tasks WHERE project_id = ? AND parent_id = ?`+taskOrder, projectID, *parentID)
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]models.ProjectTask, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.ProjectTask{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// UpdateTask applies a partial update. Moving a task under itself or one of
// its descendants is rejected.
func (s *Store) UpdateTask(ctx context.Context, projectID, id models.ID, p models.UpdateTaskParams, updater models.ID) (models.ProjectTask, error) {
	if _, err := s.GetTask(ctx, projectID, id); err != nil {
		return models.ProjectTask{}, err
	}

	c := &changes{}
	if p.TaskName.Set && p.TaskName.Valid {
		name := strings.TrimSpace(p.TaskName.Value)
		if name == "" {
			return models.ProjectTask{}, fmt.Errorf("task name must not be empty: %w", ErrInvalid)
		}
		c.set("task_name", name)
	}
	if p.ParentID.Set && p.ParentID.Valid {
		if err := s.checkParent(ctx, projectID, id, p.ParentID.Value); err != nil {
			return models.ProjectTask{}, err
		}
	}
	optional(c, "parent_id", p.ParentID)
	optional(c, `"order"`, p.Order)
	if p.CustomAttributes.Set {
		attrs, err := encodeBag(p.CustomAttributes.Value)
		if err != nil {
			return models.ProjectTask{}, err
		}
		c.set("custom_attributes", attrs)
	}
	optional(c, "start_date_time", p.StartDateTime)
	optional(c, "end_date_time", p.EndDateTime)
	if p.TaskType.Set && p.TaskType.Valid && !p.TaskType.Value.Valid() {
		return models.ProjectTask{}, fmt.Errorf("task type %d: %w", p.TaskType.Value, ErrInvalid)
	}
	required(c, "task_type", p.TaskType)

	if !c.empty() {
		if err := s.execUpdate(ctx, "project_tasks", id, updater, c, "update task"); err != nil {
			return models.ProjectTask{}, err
		}
	}
	return s.GetTask(ctx, projectID, id)
}

func (s *Store) checkParent(ctx context.Context, projectID, id, parentID models.ID) error {
	if parentID == id {
		return fmt.Errorf("task cannot be its own parent: %w", ErrInvalid)
	}
	if _, err := s.GetTask(ctx, projectID, parentID); err != nil {
		return fmt.Errorf("parent task: %w", err)
	}
	var cyclic bool
	err := s.db.QueryRowContext(ctx, `WITH RECURSIVE subtree(id) AS (
            SELECT id FROM project_tasks WHERE id = ?
            UNION
            SELECT t.id FROM project_tasks t JOIN subtree st ON t.parent_id = st.id
        )
        SELECT EXISTS(SELECT 1 FROM subtree WHERE id = ?)`, id, parentID).Scan(&cyclic)
	if err != nil {
		return fmt.Errorf("check task ancestry: %w", err)
	}
	if cyclic {
		return fmt.Errorf("task cannot move under its own descendant: %w", ErrInvalid)
	}
	return nil
}

// SetTaskOrders writes several order values in one transaction.
func (s *Store) SetTaskOrders(ctx context.Context, projectID models.ID, orders map[models.ID]float64, updater models.ID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reorder: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `UPDATE project_tasks SET "order" = ?, updater_id = ?, update_date_time = ? WHERE project_id = ? AND id = ?`)
	if err != nil {
		return fmt.Errorf("prepare reorder: %w", err)
	}
	defer stmt.Close()

	now := s.timestamp()
	for id, order := range orders {
		res, err := stmt.ExecContext(ctx, order, updater, now, projectID, id)
		if err != nil {
			return classify(err, "reorder task")
		}
		if err := expectAffected(res, "reorder task"); err != nil {
			return err
		}
	}
	return tx.Commit()
}

const subtreeCTE = `WITH RECURSIVE subtree(id) AS (
            SELECT id FROM project_tasks WHERE project_id = ? AND id IN (%s)
            UNION
            SELECT t.id FROM project_tasks t JOIN subtree st ON t.parent_id = st.id WHERE t.project_id = ?
        )
        DELETE FROM project_tasks WHERE id IN (SELECT id FROM subtree)`

// DeleteTask removes a task together with all of its descendants.
func (s *Store) DeleteTask(ctx context.Context, projectID, id models.ID) error {
	n, err := s.deleteSubtrees(ctx, projectID, []models.ID{id})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("delete task: %w", ErrNotFound)
	}
	return nil
}

// BatchDeleteTasks removes the listed tasks and their descendants.
func (s *Store) BatchDeleteTasks(ctx context.Context, projectID models.ID, ids []models.ID) (int64, error) {
	return s.deleteSubtrees(ctx, projectID, ids)
}

func (s *Store) deleteSubtrees(ctx context.Context, projectID models.ID, ids []models.ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := []any{projectID}
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, projectID)
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(subtreeCTE, placeholders(len(ids))), args...)
	if err != nil {
		return 0, classify(err, "delete tasks")
	}
	return res.RowsAffected()
}

func (s *Store) nextOrder(ctx context.Context, projectID models.ID, parentID *models.ID) (float64, error) {
	var order sql.NullFloat64
	var err error
	if parentID == nil {
		err = s.db.QueryRowContext(ctx, `SELECT MAX("order") FROM project_tasks WHERE project_id = ? AND parent_id IS NULL`, projectID).Scan(&order)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT MAX("order") FROM project_tasks WHERE project_id = ? AND parent_id = ?`, projectID, *parentID).Scan(&order)
	}
	if err != nil {
		return 0, fmt.Errorf("select order: %w", err)
	}
	if order.Valid {
		return order.Float64 + 1, nil
	}
	return 1, nil
}
