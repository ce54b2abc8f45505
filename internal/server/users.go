package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"demeter/internal/auth"
	"demeter/internal/models"
)

type userStatusRequest struct {
	IsActive *bool `json:"isActive"`
}

func (s *Server) handleListUsers(c *gin.Context) {
	var q models.UserQuery
	if !s.bindQuery(c, &q) {
		return
	}
	page, err := s.store.ListUsers(c.Request.Context(), q)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, page)
}

func (s *Server) handleAllUsers(c *gin.Context) {
	users, err := s.store.AllUsers(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, users)
}

func (s *Server) handleGetUser(c *gin.Context) {
	id, ok := s.parseID(c, "id")
	if !ok {
		return
	}
	user, err := s.store.GetUser(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, user)
}

func (s *Server) handleGetUserByUsername(c *gin.Context) {
	user, err := s.store.GetUserByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, user)
}

// handleCreateUser adds an account on behalf of the caller.
func (s *Server) handleCreateUser(c *gin.Context) {
	var req models.CreateUserParams
	if !s.bind(c, &req) {
		return
	}
	hash, ok := s.hashPassword(c, req.Password)
	if !ok {
		return
	}
	req.Password = hash
	user, err := s.store.CreateUser(c.Request.Context(), req, currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, user)
}

func (s *Server) handleUpdateUser(c *gin.Context) {
	id, ok := s.parseID(c, "id")
	if !ok {
		return
	}
	var req models.UpdateUserParams
	if !s.bind(c, &req) {
		return
	}
	if req.Password.Set {
		hash, ok := s.hashPassword(c, req.Password.Value)
		if !ok {
			return
		}
		req.Password = models.Some(hash)
	}
	user, err := s.store.UpdateUser(c.Request.Context(), id, req, currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, user)
}

func (s *Server) handleSetUserStatus(c *gin.Context) {
	id, ok := s.parseID(c, "id")
	if !ok {
		return
	}
	var req userStatusRequest
	if !s.bind(c, &req) {
		return
	}
	if req.IsActive == nil {
		s.respondError(c, http.StatusBadRequest, errors.New("isActive is required"))
		return
	}
	if id == currentUser(c) && !*req.IsActive {
		s.respondError(c, http.StatusBadRequest, errors.New("you cannot disable your own account"))
		return
	}
	user, err := s.store.SetUserActive(c.Request.Context(), id, *req.IsActive, currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, user)
}

func (s *Server) handleDeleteUser(c *gin.Context) {
	id, ok := s.parseID(c, "id")
	if !ok {
		return
	}
	if id == currentUser(c) {
		s.respondError(c, http.StatusBadRequest, errors.New("you cannot delete your own account"))
		return
	}
	if err := s.store.DeleteUser(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	respondNoContent(c)
}

func (s *Server) handleBatchDeleteUsers(c *gin.Context) {
	var req models.BatchDelete
	if !s.bind(c, &req) {
		return
	}
	for _, id := range req.IDs {
		if id == currentUser(c) {
			s.respondError(c, http.StatusBadRequest, errors.New("you cannot delete your own account"))
			return
		}
	}
	n, err := s.store.BatchDeleteUsers(c.Request.Context(), req.IDs)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondBatch(c, n)
}

// hashPassword answers 400 for passwords below the minimum length.
func (s *Server) hashPassword(c *gin.Context, raw string) (string, bool) {
	hash, err := auth.HashPassword(raw)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, auth.ErrPasswordTooShort) {
			status = http.StatusBadRequest
		}
		s.respondError(c, status, err)
		return "", false
	}
	return hash, true
}
