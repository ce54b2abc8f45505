package client

import (
	"context"
	"errors"
	"net/http"

	"demeter/internal/models"
)

type RegisterParams struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	FullName string  `json:"fullName,omitempty"`
	Email    string  `json:"email"`
	Phone    *string `json:"phone,omitempty"`
}

type sessionPayload struct {
	User models.User `json:"user"`
}

// Login signs in; the session cookies land in the client's jar.
func (c *Client) Login(ctx context.Context, username, password string) (models.User, error) {
	var out sessionPayload
	err := c.call(ctx, request{
		method:    http.MethodPost,
		path:      "/auth/login",
		body:      map[string]string{"username": username, "password": password},
		noRefresh: true,
	}, &out)
	if err == nil {
		c.InvalidateCache()
	}
	return out.User, err
}

// Register creates an account without signing in.
func (c *Client) Register(ctx context.Context, p RegisterParams) (models.User, error) {
	var user models.User
	err := c.call(ctx, request{method: http.MethodPost, path: "/auth/register", body: p, noRefresh: true}, &user)
	return user, err
}

// Logout revokes the session. 401s during the call are not refreshed.
func (c *Client) Logout(ctx context.Context) error {
	c.session.BeginLogout()
	defer c.session.EndLogout()
	defer c.InvalidateCache()

	err := c.call(ctx, request{method: http.MethodPost, path: "/auth/logout"}, nil)
	if errors.Is(err, ErrLoggingOut) {
		// already signed out server side
		return nil
	}
	return err
}

// CurrentUser returns the signed-in user.
func (c *Client) CurrentUser(ctx context.Context) (models.User, error) {
	var out sessionPayload
	err := c.get(ctx, "/auth/session", nil, &out)
	return out.User, err
}
