package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"demeter/internal/models"
)

const userColumns = `id, username, password, full_name, email, phone, is_active, ` + auditColumns

func scanUser(row rowScanner) (models.User, error) {
	var (
		u     models.User
		phone sql.NullString
		a     auditScan
	)
	dest := append([]any{&u.ID, &u.Username, &u.Password, &u.FullName, &u.Email, &phone, &u.IsActive}, a.dest()...)
	if err := row.Scan(dest...); err != nil {
		return models.User{}, err
	}
	audit, err := a.audit()
	if err != nil {
		return models.User{}, err
	}
	u.Phone = stringPtr(phone)
	u.Audit = audit
	return u, nil
}

// CreateUser inserts a user whose password is already hashed. A zero
// creator marks a self registration.
func (s *Store) CreateUser(ctx context.Context, p models.CreateUserParams, creator models.ID) (models.User, error) {
	username := strings.TrimSpace(p.Username)
	if username == "" {
		return models.User{}, fmt.Errorf("username: %w", ErrInvalid)
	}
	id := s.ids.Next()
	if creator == 0 {
		creator = id
	}
	active := true
	if p.IsActive != nil {
		active = *p.IsActive
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO users(id, username, password, full_name, email, phone, is_active, creator_id, create_date_time)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, username, p.Password, strings.TrimSpace(p.FullName), strings.TrimSpace(p.Email), nullString(p.Phone), active, creator, s.timestamp())
	if err != nil {
		return models.User{}, classify(err, "insert user")
	}
	return s.GetUser(ctx, id)
}

func (s *Store) GetUser(ctx context.Context, id models.ID) (models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return models.User{}, classify(err, "get user")
	}
	return u, nil
}

// GetUserByUsername returns the user including its password hash.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, strings.TrimSpace(username)))
	if err != nil {
		return models.User{}, classify(err, "get user by username")
	}
	return u, nil
}

// UsernameOrEmailTaken reports which of the two unique fields is in use.
func (s *Store) UsernameOrEmailTaken(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT
            EXISTS(SELECT 1 FROM users WHERE username = ?),
            EXISTS(SELECT 1 FROM users WHERE email = ?)`,
		strings.TrimSpace(username), strings.TrimSpace(email)).Scan(&usernameTaken, &emailTaken)
	if err != nil {
		return false, false, fmt.Errorf("check user uniqueness: %w", err)
	}
	return usernameTaken, emailTaken, nil
}

func userFilters(q models.UserQuery) *filters {
	f := &filters{}
	if kw := strings.TrimSpace(q.Keyword); kw != "" {
		pattern := "%" + escapeLike(kw) + "%"
		f.add(`(username LIKE ? ESCAPE '\' OR full_name LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	f.like("username", q.Username)
	f.like("full_name", q.FullName)
	f.like("email", q.Email)
	if q.IsActive != nil {
		f.add("is_active = ?", *q.IsActive)
	}
	return f
}

// ListUsers returns one page of users, newest first.
func (s *Store) ListUsers(ctx context.Context, q models.UserQuery) (models.Page[models.User], error) {
	page := q.PageQuery.Normalize()
	f := userFilters(q)
	total, err := s.count(ctx, "users", f)
	if err != nil {
		return models.Page[models.User]{}, err
	}
	users, err := s.queryUsers(ctx, `SELECT `+userColumns+` FROM users`+f.where()+` ORDER BY create_date_time DESC, id DESC LIMIT ? OFFSET ?`,
		append(f.args, page.PageSize, page.Offset())...)
	if err != nil {
		return models.Page[models.User]{}, err
	}
	return models.Page[models.User]{List: users, Total: total, Page: page.Page, PageSize: page.PageSize}, nil
}

func (s *Store) AllUsers(ctx context.Context) ([]models.User, error) {
	return s.queryUsers(ctx, `SELECT `+userColumns+` FROM users ORDER BY username ASC`)
}

func (s *Store) queryUsers(ctx context.Context, query string, args ...any) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUser applies a partial update. A set password must already be hashed.
func (s *Store) UpdateUser(ctx context.Context, id models.ID, p models.UpdateUserParams, updater models.ID) (models.User, error) {
	c := &changes{}
	required(c, "full_name", p.FullName)
	required(c, "email", p.Email)
	optional(c, "phone", p.Phone)
	required(c, "is_active", p.IsActive)
	required(c, "password", p.Password)
	if c.empty() {
		return s.GetUser(ctx, id)
	}
	if err := s.execUpdate(ctx, "users", id, updater, c, "update user"); err != nil {
		return models.User{}, err
	}
	return s.GetUser(ctx, id)
}

func (s *Store) SetUserActive(ctx context.Context, id models.ID, active bool, updater models.ID) (models.User, error) {
	return s.UpdateUser(ctx, id, models.UpdateUserParams{IsActive: models.Some(active)}, updater)
}

func (s *Store) DeleteUser(ctx context.Context, id models.ID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return classify(err, "delete user")
	}
	return expectAffected(res, "delete user")
}

func (s *Store) BatchDeleteUsers(ctx context.Context, ids []models.ID) (int64, error) {
	return s.batchDelete(ctx, "users", ids, "")
}
