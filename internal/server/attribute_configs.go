package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"demeter/internal/models"
)

// projectScope parses :projectId and confirms the project exists.
func (s *Server) projectScope(c *gin.Context) (models.ID, bool) {
	projectID, ok := s.parseID(c, "projectId")
	if !ok {
		return 0, false
	}
	if _, err := s.store.GetProject(c.Request.Context(), projectID); err != nil {
		s.fail(c, err)
		return 0, false
	}
	return projectID, true
}

func (s *Server) handleListAttributeConfigs(c *gin.Context) {
	projectID, ok := s.projectScope(c)
	if !ok {
		return
	}
	configs, err := s.store.ListAttributeConfigs(c.Request.Context(), projectID)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, configs)
}

func (s *Server) handleGetAttributeConfig(c *gin.Context) {
	projectID, ok := s.parseID(c, "projectId")
	if !ok {
		return
	}
	id, ok := s.parseID(c, "configId")
	if !ok {
		return
	}
	cfg, err := s.store.GetAttributeConfig(c.Request.Context(), projectID, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, cfg)
}

// handleCreateAttributeConfig adds a custom attribute to the project's task
// schema. A blank attributeName is generated.
func (s *Server) handleCreateAttributeConfig(c *gin.Context) {
	projectID, ok := s.projectScope(c)
	if !ok {
		return
	}
	var req models.CreateAttributeConfigParams
	if !s.bind(c, &req) {
		return
	}
	cfg, err := s.store.CreateAttributeConfig(c.Request.Context(), projectID, req, currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, cfg)
}

// handleUpdateAttributeConfig edits label, options, colors and the rest;
// attributeName and attributeType are immutable.
func (s *Server) handleUpdateAttributeConfig(c *gin.Context) {
	projectID, ok := s.parseID(c, "projectId")
	if !ok {
		return
	}
	id, ok := s.parseID(c, "configId")
	if !ok {
		return
	}
	var req models.UpdateAttributeConfigParams
	if !s.bind(c, &req) {
		return
	}
	cfg, err := s.store.UpdateAttributeConfig(c.Request.Context(), projectID, id, req, currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, cfg)
}

func (s *Server) handleDeleteAttributeConfig(c *gin.Context) {
	projectID, ok := s.parseID(c, "projectId")
	if !ok {
		return
	}
	id, ok := s.parseID(c, "configId")
	if !ok {
		return
	}
	if err := s.store.DeleteAttributeConfig(c.Request.Context(), projectID, id); err != nil {
		s.fail(c, err)
		return
	}
	respondNoContent(c)
}

func (s *Server) handleBatchDeleteAttributeConfigs(c *gin.Context) {
	projectID, ok := s.parseID(c, "projectId")
	if !ok {
		return
	}
	var req models.BatchDelete
	if !s.bind(c, &req) {
		return
	}
	n, err := s.store.BatchDeleteAttributeConfigs(c.Request.Context(), projectID, req.IDs)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondBatch(c, n)
}
