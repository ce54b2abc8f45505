package client

import (
	"context"
	"net/url"

	"demeter/internal/models"
)

func projectPath(id models.ID) string {
	return "/projects/" + id.String()
}

func (c *Client) ListProjects(ctx context.Context, q models.ProjectQuery) (models.Page[models.Project], error) {
	var page models.Page[models.Project]
	err := c.get(ctx, "/projects", projectQuery(q), &page)
	return page, err
}

// ListMyProjects lists projects created by the signed-in user.
func (c *Client) ListMyProjects(ctx context.Context, q models.ProjectQuery) (models.Page[models.Project], error) {
	var page models.Page[models.Project]
	err := c.get(ctx, "/projects/my", projectQuery(q), &page)
	return page, err
}

func (c *Client) AllProjects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	err := c.get(ctx, "/projects/all", nil, &projects)
	return projects, err
}

func (c *Client) AllMyProjects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	err := c.get(ctx, "/projects/my/all", nil, &projects)
	return projects, err
}

func (c *Client) GetProject(ctx context.Context, id models.ID) (models.Project, error) {
	var p models.Project
	err := c.get(ctx, projectPath(id), nil, &p)
	return p, err
}

func (c *Client) GetProjectByName(ctx context.Context, name string) (models.Project, error) {
	var p models.Project
	err := c.get(ctx, "/projects/name/"+url.PathEscape(name), nil, &p)
	return p, err
}

func (c *Client) CreateProject(ctx context.Context, p models.CreateProjectParams) (models.Project, error) {
	var out models.Project
	err := c.post(ctx, "/projects", p, &out)
	return out, err
}

func (c *Client) UpdateProject(ctx context.Context, id models.ID, p models.UpdateProjectParams) (models.Project, error) {
	var out models.Project
	err := c.put(ctx, projectPath(id), p, &out)
	return out, err
}

// DeleteProject removes the project and drops its cached configs and tasks.
func (c *Client) DeleteProject(ctx context.Context, id models.ID) error {
	defer c.invalidateProject(id)
	return c.delete(ctx, projectPath(id))
}

func (c *Client) BatchDeleteProjects(ctx context.Context, ids []models.ID) (int64, error) {
	defer func() {
		for _, id := range ids {
			c.invalidateProject(id)
		}
	}()
	return c.batchDelete(ctx, "/projects/batch-delete", ids)
}

func (c *Client) batchDelete(ctx context.Context, path string, ids []models.ID) (int64, error) {
	var out models.BatchResult
	err := c.post(ctx, path, models.BatchDelete{IDs: ids}, &out)
	return out.Count, err
}

func (c *Client) invalidateProject(id models.ID) {
	c.invalidate(attributeConfigsKey(id), tasksKey(id))
}
