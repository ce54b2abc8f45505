package client

import (
	"context"
	"net/url"

	"demeter/internal/attribute"
	"demeter/internal/models"
)

const usersKey = "users:all"

func userPath(id models.ID) string {
	return "/users/" + id.String()
}

func (c *Client) ListUsers(ctx context.Context, q models.UserQuery) (models.Page[models.User], error) {
	var page models.Page[models.User]
	err := c.get(ctx, "/users", userQuery(q), &page)
	return page, err
}

// AllUsers is read through the cache; user-typed attributes pick from it.
func (c *Client) AllUsers(ctx context.Context) ([]models.User, error) {
	return cached(ctx, c, usersKey, func(ctx context.Context) ([]models.User, error) {
		var users []models.User
		err := c.get(ctx, "/users/all", nil, &users)
		return users, err
	})
}

// UserOptions lists every user as a select option valued by id.
func (c *Client) UserOptions(ctx context.Context) (attribute.Options, error) {
	users, err := c.AllUsers(ctx)
	if err != nil {
		return nil, err
	}
	opts := make(attribute.Options, 0, len(users))
	for _, u := range users {
		label := u.FullName
		if label == "" {
			label = u.Username
		}
		opts = append(opts, attribute.Option{Label: label, Value: u.ID.String()})
	}
	return opts, nil
}

func (c *Client) GetUser(ctx context.Context, id models.ID) (models.User, error) {
	var u models.User
	err := c.get(ctx, userPath(id), nil, &u)
	return u, err
}

func (c *Client) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	var u models.User
	err := c.get(ctx, "/users/username/"+url.PathEscape(username), nil, &u)
	return u, err
}

func (c *Client) CreateUser(ctx context.Context, p models.CreateUserParams) (models.User, error) {
	defer c.invalidate(usersKey)
	var u models.User
	err := c.post(ctx, "/users", p, &u)
	return u, err
}

func (c *Client) UpdateUser(ctx context.Context, id models.ID, p models.UpdateUserParams) (models.User, error) {
	defer c.invalidate(usersKey)
	var u models.User
	err := c.put(ctx, userPath(id), p, &u)
	return u, err
}

func (c *Client) SetUserActive(ctx context.Context, id models.ID, active bool) (models.User, error) {
	defer c.invalidate(usersKey)
	var u models.User
	err := c.put(ctx, userPath(id)+"/status", map[string]bool{"isActive": active}, &u)
	return u, err
}

func (c *Client) DeleteUser(ctx context.Context, id models.ID) error {
	defer c.invalidate(usersKey)
	return c.delete(ctx, userPath(id))
}

func (c *Client) BatchDeleteUsers(ctx context.Context, ids []models.ID) (int64, error) {
	defer c.invalidate(usersKey)
	return c.batchDelete(ctx, "/users/batch-delete", ids)
}
