package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
)

// crud serves the standard routes of one resource. Nil operations are not mounted.
type crud[T any, In any] struct {
	base
	create func(context.Context, In) (*T, error)
	get    func(context.Context, uuid.UUID) (*T, error)
	list   func(context.Context, models.ListQuery) (models.Page[T], error)
	update func(context.Context, uuid.UUID, In) (*T, error)
	remove func(context.Context, uuid.UUID) error
}

func (h crud[T, In]) mount(g *gin.RouterGroup) {
	if h.list != nil {
		g.GET("", h.handleList)
	}
	if h.create != nil {
		g.POST("", h.handleCreate)
	}
	if h.get != nil {
		g.GET("/:id", h.handleGet)
	}
	if h.update != nil {
		g.PUT("/:id", h.handleUpdate)
	}
	if h.remove != nil {
		g.DELETE("/:id", h.handleDelete)
	}
}

func (h crud[T, In]) handleList(c *gin.Context) {
	q, err := listQuery(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	page, err := h.list(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h crud[T, In]) handleCreate(c *gin.Context) {
	var in In
	if !h.bind(c, &in) {
		return
	}
	rec, err := h.create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h crud[T, In]) handleGet(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	rec, err := h.get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h crud[T, In]) handleUpdate(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var in In
	if !h.bind(c, &in) {
		return
	}
	rec, err := h.update(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h crud[T, In]) handleDelete(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.remove(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
