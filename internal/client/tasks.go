package client

import (
	"context"
	"fmt"

	"demeter/internal/attribute"
	"demeter/internal/models"
	"demeter/internal/schedule"
)

func tasksKey(projectID models.ID) string {
	return "tasks:" + projectID.String()
}

func tasksPath(projectID models.ID) string {
	return projectPath(projectID) + "/tasks"
}

func taskPath(projectID, id models.ID) string {
	return tasksPath(projectID) + "/" + id.String()
}

// Tasks returns the whole task tree of a project, read through the cache.
func (c *Client) Tasks(ctx context.Context, projectID models.ID) ([]models.ProjectTask, error) {
	return cached(ctx, c, tasksKey(projectID), func(ctx context.Context) ([]models.ProjectTask, error) {
		var tasks []models.ProjectTask
		err := c.get(ctx, tasksPath(projectID)+"/all", nil, &tasks)
		return tasks, err
	})
}

func (c *Client) ListTasks(ctx context.Context, projectID models.ID, q models.TaskQuery) (models.Page[models.ProjectTask], error) {
	var page models.Page[models.ProjectTask]
	err := c.get(ctx, tasksPath(projectID), taskQuery(q), &page)
	return page, err
}

func (c *Client) GetTask(ctx context.Context, projectID, id models.ID) (models.ProjectTask, error) {
	var t models.ProjectTask
	err := c.get(ctx, taskPath(projectID, id), nil, &t)
	return t, err
}

func (c *Client) CreateTask(ctx context.Context, projectID models.ID, p models.CreateTaskParams) (models.ProjectTask, error) {
	defer c.invalidate(tasksKey(projectID))
	var t models.ProjectTask
	err := c.post(ctx, tasksPath(projectID), p, &t)
	return t, err
}

func (c *Client) UpdateTask(ctx context.Context, projectID, id models.ID, p models.UpdateTaskParams) (models.ProjectTask, error) {
	defer c.invalidate(tasksKey(projectID))
	var t models.ProjectTask
	err := c.put(ctx, taskPath(projectID, id), p, &t)
	return t, err
}

// DeleteTask removes the task and its subtree.
func (c *Client) DeleteTask(ctx context.Context, projectID, id models.ID) error {
	defer c.invalidate(tasksKey(projectID))
	return c.delete(ctx, taskPath(projectID, id))
}

func (c *Client) BatchDeleteTasks(ctx context.Context, projectID models.ID, ids []models.ID) (int64, error) {
	defer c.invalidate(tasksKey(projectID))
	return c.batchDelete(ctx, tasksPath(projectID)+"/batch-delete", ids)
}

// MoveTask drops a task before, after or under target.
func (c *Client) MoveTask(ctx context.Context, projectID, id, target models.ID, pos schedule.Position) (models.ProjectTask, error) {
	defer c.invalidate(tasksKey(projectID))
	var t models.ProjectTask
	err := c.post(ctx, taskPath(projectID, id)+"/move", map[string]any{"targetId": target, "position": pos}, &t)
	return t, err
}

// ReorderTasks renumbers the children of parent, the roots when nil, to 1..n.
func (c *Client) ReorderTasks(ctx context.Context, projectID models.ID, parent *models.ID) ([]models.ProjectTask, error) {
	defer c.invalidate(tasksKey(projectID))
	var tasks []models.ProjectTask
	err := c.post(ctx, tasksPath(projectID)+"/reorder", models.ReorderTasksParams{ParentID: parent}, &tasks)
	return tasks, err
}

// EncodeAttributes turns form values into a bag for a task write, checking
// them against the project's schema first. Failures never reach the network.
func (c *Client) EncodeAttributes(ctx context.Context, projectID models.ID, form attribute.Form) (attribute.Bag, error) {
	configs, err := c.AttributeConfigs(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return attribute.EncodeAll(form, models.Definitions(configs))
}

// TaskForm decodes a task's custom attributes for editing. A nil task yields
// the configured defaults of a new task. Keys the schema does not describe
// land in ReadOnly and survive EncodeAttributes.
func (c *Client) TaskForm(ctx context.Context, projectID models.ID, task *models.ProjectTask) (attribute.Form, error) {
	configs, err := c.AttributeConfigs(ctx, projectID)
	if err != nil {
		return attribute.Form{}, err
	}
	defs := models.Definitions(configs)
	if task == nil {
		return attribute.Form{Values: attribute.Defaults(defs), ReadOnly: map[string]string{}}, nil
	}
	return attribute.DecodeAll(task.CustomAttributes, defs), nil
}

// Schedule builds the timeline of a project from cached tasks and configs.
// view is reconciled against the current configs first.
func (c *Client) Schedule(ctx context.Context, projectID models.ID, view *schedule.View) (schedule.Model, error) {
	configs, err := c.AttributeConfigs(ctx, projectID)
	if err != nil {
		return schedule.Model{}, fmt.Errorf("load attribute configs: %w", err)
	}
	tasks, err := c.Tasks(ctx, projectID)
	if err != nil {
		return schedule.Model{}, fmt.Errorf("load tasks: %w", err)
	}
	if view.Reconcile(configs) {
		c.logger.Info("color attribute cleared: its value color map is empty", "project_id", projectID)
	}
	return schedule.Build(tasks, configs, *view), nil
}
