package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"demeter/internal/attribute"
	"demeter/internal/models"
	"demeter/internal/schedule"
)

type moveTaskRequest struct {
	TargetID models.ID `json:"targetId"`
	Position string    `json:"position"`
}

// handleListTasks fetches one page of a project's tasks.
func (s *Server) handleListTasks(c *gin.Context) {
	projectID, ok := s.projectScope(c)
	if !ok {
		return
	}
	var q models.TaskQuery
	if !s.bindQuery(c, &q) {
		return
	}
	page, err := s.store.ListTasks(c.Request.Context(), projectID, q)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, page)
}

// handleAllTasks returns the whole task tree, siblings in display order.
func (s *Server) handleAllTasks(c *gin.Context) {
	projectID, ok := s.projectScope(c)
	if !ok {
		return
	}
	tasks, err := s.store.AllTasks(c.Request.Context(), projectID)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, tasks)
}

func (s *Server) handleGetTask(c *gin.Context) {
	projectID, taskID, ok := s.taskScope(c)
	if !ok {
		return
	}
	task, err := s.store.GetTask(c.Request.Context(), projectID, taskID)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, task)
}

// handleCreateTask inserts a task after checking its custom attributes.
func (s *Server) handleCreateTask(c *gin.Context) {
	projectID, ok := s.projectScope(c)
	if !ok {
		return
	}
	var req models.CreateTaskParams
	if !s.bind(c, &req) {
		return
	}
	ctx := c.Request.Context()
	if err := s.checkAttributes(ctx, projectID, req.CustomAttributes); err != nil {
		s.fail(c, err)
		return
	}
	task, err := s.store.CreateTask(ctx, projectID, req, currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, task)
}

// handleUpdateTask applies a partial update. customAttributes, when sent,
// replaces the whole bag.
func (s *Server) handleUpdateTask(c *gin.Context) {
	projectID, taskID, ok := s.taskScope(c)
	if !ok {
		return
	}
	var req models.UpdateTaskParams
	if !s.bind(c, &req) {
		return
	}
	ctx := c.Request.Context()
	if req.CustomAttributes.Valid {
		if err := s.checkAttributes(ctx, projectID, req.CustomAttributes.Value); err != nil {
			s.fail(c, err)
			return
		}
	}
	task, err := s.store.UpdateTask(ctx, projectID, taskID, req, currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, task)
}

// handleDeleteTask removes a task and its whole subtree.
func (s *Server) handleDeleteTask(c *gin.Context) {
	projectID, taskID, ok := s.taskScope(c)
	if !ok {
		return
	}
	if err := s.store.DeleteTask(c.Request.Context(), projectID, taskID); err != nil {
		s.fail(c, err)
		return
	}
	respondNoContent(c)
}

func (s *Server) handleBatchDeleteTasks(c *gin.Context) {
	projectID, ok := s.parseID(c, "projectId")
	if !ok {
		return
	}
	var req models.BatchDelete
	if !s.bind(c, &req) {
		return
	}
	n, err := s.store.BatchDeleteTasks(c.Request.Context(), projectID, req.IDs)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondBatch(c, n)
}

// handleReorderTasks renumbers the children of parentId to 1..n.
func (s *Server) handleReorderTasks(c *gin.Context) {
	projectID, ok := s.projectScope(c)
	if !ok {
		return
	}
	var req models.ReorderTasksParams
	if !s.bind(c, &req) {
		return
	}
	children, err := s.renormalize(c.Request.Context(), projectID, req.ParentID, currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, children)
}

// handleMoveTask drops a task before, after or under a target task.
func (s *Server) handleMoveTask(c *gin.Context) {
	projectID, taskID, ok := s.taskScope(c)
	if !ok {
		return
	}
	var req moveTaskRequest
	if !s.bind(c, &req) {
		return
	}
	pos, err := schedule.ParsePosition(req.Position)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	ctx := c.Request.Context()
	if _, err := s.store.GetTask(ctx, projectID, taskID); err != nil {
		s.fail(c, err)
		return
	}
	if _, err := s.store.GetTask(ctx, projectID, req.TargetID); err != nil {
		s.fail(c, err)
		return
	}
	tasks, err := s.store.AllTasks(ctx, projectID)
	if err != nil {
		s.fail(c, err)
		return
	}
	placement, err := schedule.Place(tasks, taskID, req.TargetID, pos)
	if err != nil {
		if errors.Is(err, schedule.ErrSelfDrop) || errors.Is(err, schedule.ErrCyclicDrop) {
			s.respondError(c, http.StatusBadRequest, err)
			return
		}
		s.fail(c, err)
		return
	}

	parent := models.Null[models.ID]()
	if placement.ParentID != nil {
		parent = models.Some(*placement.ParentID)
	}
	me := currentUser(c)
	task, err := s.store.UpdateTask(ctx, projectID, taskID, models.UpdateTaskParams{
		ParentID: parent,
		Order:    models.Some(placement.Order),
	}, me)
	if err != nil {
		s.fail(c, err)
		return
	}
	if placement.Renormalize {
		if err := s.store.SetTaskOrders(ctx, projectID, schedule.Sequential(placement.Sequence), me); err != nil {
			s.fail(c, err)
			return
		}
		if task, err = s.store.GetTask(ctx, projectID, taskID); err != nil {
			s.fail(c, err)
			return
		}
	}
	respondSuccess(c, http.StatusOK, task)
}

// handleSchedule renders the project's timeline model.
func (s *Server) handleSchedule(c *gin.Context) {
	projectID, ok := s.projectScope(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	tasks, err := s.store.AllTasks(ctx, projectID)
	if err != nil {
		s.fail(c, err)
		return
	}
	configs, err := s.store.ListAttributeConfigs(ctx, projectID)
	if err != nil {
		s.fail(c, err)
		return
	}

	var view schedule.View
	if err := view.SetColorAttribute(c.Query("colorAttribute"), configs); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	for _, raw := range c.QueryArray("columns") {
		for _, key := range strings.Split(raw, ",") {
			if key = strings.TrimSpace(key); key != "" {
				view.Columns = append(view.Columns, key)
			}
		}
	}
	respondSuccess(c, http.StatusOK, schedule.Build(tasks, configs, view))
}

func (s *Server) taskScope(c *gin.Context) (projectID, taskID models.ID, ok bool) {
	if projectID, ok = s.parseID(c, "projectId"); !ok {
		return
	}
	taskID, ok = s.parseID(c, "taskId")
	return
}

// checkAttributes validates bag against the project's attribute configs
// under the configured policy.
func (s *Server) checkAttributes(ctx context.Context, projectID models.ID, bag attribute.Bag) error {
	if s.opts.Policy == attribute.PolicyLenient || len(bag) == 0 {
		return nil
	}
	configs, err := s.store.ListAttributeConfigs(ctx, projectID)
	if err != nil {
		return err
	}
	return s.opts.Policy.Check(bag, models.Definitions(configs))
}

func (s *Server) renormalize(ctx context.Context, projectID models.ID, parentID *models.ID, updater models.ID) ([]models.ProjectTask, error) {
	children, err := s.store.TaskChildren(ctx, projectID, parentID)
	if err != nil {
		return nil, err
	}
	if len(children) == 0 {
		return children, nil
	}
	if err := s.store.SetTaskOrders(ctx, projectID, schedule.Renormalize(children), updater); err != nil {
		return nil, err
	}
	return s.store.TaskChildren(ctx, projectID, parentID)
}
