package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"demeter/internal/models"
)

// namedResource serves the identical CRUD surface of departments and teams.
type namedResource[T, C, U any] struct {
	s      *Server
	list   func(context.Context, models.NameQuery) (models.Page[T], error)
	all    func(context.Context) ([]T, error)
	get    func(context.Context, models.ID) (T, error)
	byName func(context.Context, string) (T, error)
	create func(context.Context, C, models.ID) (T, error)
	update func(context.Context, models.ID, U, models.ID) (T, error)
	remove func(context.Context, models.ID) error
	batch  func(context.Context, []models.ID) (int64, error)
}

func (s *Server) departments() namedResource[models.Department, models.CreateDepartmentParams, models.UpdateDepartmentParams] {
	return namedResource[models.Department, models.CreateDepartmentParams, models.UpdateDepartmentParams]{
		s:      s,
		list:   s.store.ListDepartments,
		all:    s.store.AllDepartments,
		get:    s.store.GetDepartment,
		byName: s.store.GetDepartmentByName,
		create: s.store.CreateDepartment,
		update: s.store.UpdateDepartment,
		remove: s.store.DeleteDepartment,
		batch:  s.store.BatchDeleteDepartments,
	}
}

func (s *Server) teams() namedResource[models.Team, models.CreateTeamParams, models.UpdateTeamParams] {
	return namedResource[models.Team, models.CreateTeamParams, models.UpdateTeamParams]{
		s:      s,
		list:   s.store.ListTeams,
		all:    s.store.AllTeams,
		get:    s.store.GetTeam,
		byName: s.store.GetTeamByName,
		create: s.store.CreateTeam,
		update: s.store.UpdateTeam,
		remove: s.store.DeleteTeam,
		batch:  s.store.BatchDeleteTeams,
	}
}

func (r namedResource[T, C, U]) register(g *gin.RouterGroup) {
	g.GET("", r.handleList)
	g.GET("/all", r.handleAll)
	g.GET("/name/:name", r.handleGetByName)
	g.GET("/:id", r.handleGet)
	g.POST("", r.handleCreate)
	g.POST("/batch-delete", r.handleBatchDelete)
	g.PUT("/:id", r.handleUpdate)
	g.DELETE("/:id", r.handleDelete)
}

func (r namedResource[T, C, U]) handleList(c *gin.Context) {
	var q models.NameQuery
	if !r.s.bindQuery(c, &q) {
		return
	}
	page, err := r.list(c.Request.Context(), q)
	if err != nil {
		r.s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, page)
}

func (r namedResource[T, C, U]) handleAll(c *gin.Context) {
	items, err := r.all(c.Request.Context())
	if err != nil {
		r.s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, items)
}

func (r namedResource[T, C, U]) handleGet(c *gin.Context) {
	id, ok := r.s.parseID(c, "id")
	if !ok {
		return
	}
	item, err := r.get(c.Request.Context(), id)
	if err != nil {
		r.s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, item)
}

func (r namedResource[T, C, U]) handleGetByName(c *gin.Context) {
	item, err := r.byName(c.Request.Context(), c.Param("name"))
	if err != nil {
		r.s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, item)
}

func (r namedResource[T, C, U]) handleCreate(c *gin.Context) {
	var req C
	if !r.s.bind(c, &req) {
		return
	}
	item, err := r.create(c.Request.Context(), req, currentUser(c))
	if err != nil {
		r.s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, item)
}

func (r namedResource[T, C, U]) handleUpdate(c *gin.Context) {
	id, ok := r.s.parseID(c, "id")
	if !ok {
		return
	}
	var req U
	if !r.s.bind(c, &req) {
		return
	}
	item, err := r.update(c.Request.Context(), id, req, currentUser(c))
	if err != nil {
		r.s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, item)
}

func (r namedResource[T, C, U]) handleDelete(c *gin.Context) {
	id, ok := r.s.parseID(c, "id")
	if !ok {
		return
	}
	if err := r.remove(c.Request.Context(), id); err != nil {
		r.s.fail(c, err)
		return
	}
	respondNoContent(c)
}

func (r namedResource[T, C, U]) handleBatchDelete(c *gin.Context) {
	var req models.BatchDelete
	if !r.s.bind(c, &req) {
		return
	}
	n, err := r.batch(c.Request.Context(), req.IDs)
	if err != nil {
		r.s.fail(c, err)
		return
	}
	respondBatch(c, n)
}
