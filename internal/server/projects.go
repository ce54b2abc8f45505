package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"demeter/internal/models"
)

// handleListProjects returns one page of projects matching the filters.
func (s *Server) handleListProjects(c *gin.Context) {
	s.listProjects(c, nil)
}

// handleListMyProjects is handleListProjects restricted to the caller's projects.
func (s *Server) handleListMyProjects(c *gin.Context) {
	me := currentUser(c)
	s.listProjects(c, &me)
}

func (s *Server) listProjects(c *gin.Context, creator *models.ID) {
	var q models.ProjectQuery
	if !s.bindQuery(c, &q) {
		return
	}
	q.CreatorID = creator
	page, err := s.store.ListProjects(c.Request.Context(), q)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, page)
}

func (s *Server) handleAllProjects(c *gin.Context) {
	s.allProjects(c, nil)
}

func (s *Server) handleAllMyProjects(c *gin.Context) {
	me := currentUser(c)
	s.allProjects(c, &me)
}

func (s *Server) allProjects(c *gin.Context, creator *models.ID) {
	projects, err := s.store.AllProjects(c.Request.Context(), creator)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, projects)
}

func (s *Server) handleGetProject(c *gin.Context) {
	id, ok := s.parseID(c, "projectId")
	if !ok {
		return
	}
	project, err := s.store.GetProject(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, project)
}

func (s *Server) handleGetProjectByName(c *gin.Context) {
	project, err := s.store.GetProjectByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, project)
}

// handleCreateProject inserts a new project owned by the caller.
func (s *Server) handleCreateProject(c *gin.Context) {
	var req models.CreateProjectParams
	if !s.bind(c, &req) {
		return
	}
	project, err := s.store.CreateProject(c.Request.Context(), req, currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.logger.Info("project created", "project_id", project.ID, "user_id", currentUser(c))
	respondSuccess(c, http.StatusCreated, project)
}

// handleUpdateProject applies a partial update; absent fields are kept.
func (s *Server) handleUpdateProject(c *gin.Context) {
	id, ok := s.parseID(c, "projectId")
	if !ok {
		return
	}
	var req models.UpdateProjectParams
	if !s.bind(c, &req) {
		return
	}
	project, err := s.store.UpdateProject(c.Request.Context(), id, req, currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, project)
}

// handleDeleteProject removes a project with its tasks and attribute configs.
func (s *Server) handleDeleteProject(c *gin.Context) {
	id, ok := s.parseID(c, "projectId")
	if !ok {
		return
	}
	if err := s.store.DeleteProject(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	respondNoContent(c)
}

func (s *Server) handleBatchDeleteProjects(c *gin.Context) {
	var req models.BatchDelete
	if !s.bind(c, &req) {
		return
	}
	n, err := s.store.BatchDeleteProjects(c.Request.Context(), req.IDs)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondBatch(c, n)
}
