package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"demeter/internal/models"
)

func (s *Server) handleListHolidays(c *gin.Context) {
	var q models.HolidayQuery
	if !s.bindQuery(c, &q) {
		return
	}
	page, err := s.store.ListHolidays(c.Request.Context(), q)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, page)
}

// handleAllHolidays accepts the same filters as the paged list.
func (s *Server) handleAllHolidays(c *gin.Context) {
	var q models.HolidayQuery
	if !s.bindQuery(c, &q) {
		return
	}
	holidays, err := s.store.AllHolidays(c.Request.Context(), q)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, holidays)
}

func (s *Server) handleGetHoliday(c *gin.Context) {
	id, ok := s.parseID(c, "id")
	if !ok {
		return
	}
	holiday, err := s.store.GetHoliday(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, holiday)
}

func (s *Server) handleCreateHoliday(c *gin.Context) {
	var req models.CreateHolidayParams
	if !s.bind(c, &req) {
		return
	}
	holiday, err := s.store.CreateHoliday(c.Request.Context(), req, currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, holiday)
}

// handleBatchCreateHolidays inserts all holidays or none.
func (s *Server) handleBatchCreateHolidays(c *gin.Context) {
	var req models.BatchCreateHolidays
	if !s.bind(c, &req) {
		return
	}
	holidays, err := s.store.BatchCreateHolidays(c.Request.Context(), req.Holidays, currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, holidays)
}

func (s *Server) handleBatchUpdateHolidays(c *gin.Context) {
	var req models.BatchUpdateHolidays
	if !s.bind(c, &req) {
		return
	}
	n, err := s.store.BatchUpdateHolidays(c.Request.Context(), req, currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondBatch(c, n)
}

func (s *Server) handleUpdateHoliday(c *gin.Context) {
	id, ok := s.parseID(c, "id")
	if !ok {
		return
	}
	var req models.UpdateHolidayParams
	if !s.bind(c, &req) {
		return
	}
	holiday, err := s.store.UpdateHoliday(c.Request.Context(), id, req, currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, holiday)
}

func (s *Server) handleDeleteHoliday(c *gin.Context) {
	id, ok := s.parseID(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteHoliday(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	respondNoContent(c)
}

func (s *Server) handleBatchDeleteHolidays(c *gin.Context) {
	var req models.BatchDelete
	if !s.bind(c, &req) {
		return
	}
	n, err := s.store.BatchDeleteHolidays(c.Request.Context(), req.IDs)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondBatch(c, n)
}
