package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"demeter/internal/auth"
	"demeter/internal/models"
	"demeter/internal/storage/sqlite"
)

// envelope is the body of every API response.
type envelope struct {
	Code    int    `json:"code"`
	Data    any    `json:"data"`
	Message string `json:"message"`
}

// parseID converts a path parameter to an identifier with error handling.
func (s *Server) parseID(c *gin.Context, name string) (models.ID, bool) {
	id, err := models.ParseID(c.Param(name))
	if err != nil {
		s.respondError(c, http.StatusBadRequest, errors.New("invalid identifier"))
		return 0, false
	}
	return id, true
}

// bind decodes the JSON body into dst, answering 400 on failure.
func (s *Server) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return false
	}
	return true
}

// bindQuery decodes query parameters into dst, answering 400 on failure.
func (s *Server) bindQuery(c *gin.Context, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return false
	}
	return true
}

// respondError logs the error and returns an enveloped JSON payload.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		} else {
			message = err.Error()
		}
		s.logger.Log(c.Request.Context(), level, "request failed",
			slog.String("path", c.FullPath()),
			slog.Int("status", status),
			slog.String("error", err.Error()))
	}
	c.AbortWithStatusJSON(status, envelope{Code: status, Message: message})
}

// fail maps a store or domain error onto its HTTP status.
func (s *Server) fail(c *gin.Context, err error) {
	s.respondError(c, statusFor(err), err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, sqlite.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sqlite.ErrConflict):
		return http.StatusConflict
	case sqlite.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrWrongType):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondSuccess wraps a payload in the response envelope.
func respondSuccess(c *gin.Context, status int, payload any) {
	c.JSON(status, envelope{Code: http.StatusOK, Data: payload, Message: "success"})
}

// respondNoContent answers a single-entity delete.
func respondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func respondBatch(c *gin.Context, n int64) {
	respondSuccess(c, http.StatusOK, models.BatchResult{Count: n})
}
