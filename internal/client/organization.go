package client

import (
	"context"
	"net/url"

	"demeter/internal/models"
)

// Named is the shared CRUD surface of departments and teams.
type Named[T, C, U any] struct {
	c    *Client
	base string
}

// Departments returns the department endpoints.
func (c *Client) Departments() Named[models.Department, models.CreateDepartmentParams, models.UpdateDepartmentParams] {
	return Named[models.Department, models.CreateDepartmentParams, models.UpdateDepartmentParams]{c: c, base: "/departments"}
}

// Teams returns the team endpoints.
func (c *Client) Teams() Named[models.Team, models.CreateTeamParams, models.UpdateTeamParams] {
	return Named[models.Team, models.CreateTeamParams, models.UpdateTeamParams]{c: c, base: "/teams"}
}

func (n Named[T, C, U]) List(ctx context.Context, q models.NameQuery) (models.Page[T], error) {
	var page models.Page[T]
	err := n.c.get(ctx, n.base, nameQuery(q), &page)
	return page, err
}

func (n Named[T, C, U]) All(ctx context.Context) ([]T, error) {
	var items []T
	err := n.c.get(ctx, n.base+"/all", nil, &items)
	return items, err
}

func (n Named[T, C, U]) Get(ctx context.Context, id models.ID) (T, error) {
	var item T
	err := n.c.get(ctx, n.base+"/"+id.String(), nil, &item)
	return item, err
}

func (n Named[T, C, U]) GetByName(ctx context.Context, name string) (T, error) {
	var item T
	err := n.c.get(ctx, n.base+"/name/"+url.PathEscape(name), nil, &item)
	return item, err
}

func (n Named[T, C, U]) Create(ctx context.Context, p C) (T, error) {
	var item T
	err := n.c.post(ctx, n.base, p, &item)
	return item, err
}

func (n Named[T, C, U]) Update(ctx context.Context, id models.ID, p U) (T, error) {
	var item T
	err := n.c.put(ctx, n.base+"/"+id.String(), p, &item)
	return item, err
}

func (n Named[T, C, U]) Delete(ctx context.Context, id models.ID) error {
	return n.c.delete(ctx, n.base+"/"+id.String())
}

func (n Named[T, C, U]) BatchDelete(ctx context.Context, ids []models.ID) (int64, error) {
	return n.c.batchDelete(ctx, n.base+"/batch-delete", ids)
}
