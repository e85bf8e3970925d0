package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfarm/internal/server/admin"
)

type Admin struct {
	base
	registry *admin.Registry
}

func NewAdmin(registry *admin.Registry, logger *zap.Logger) *Admin {
	return &Admin{base: newBase(logger, "admin"), registry: registry}
}

func (h *Admin) Mount(api *gin.RouterGroup) {
	g := api.Group("/admin/resources")
	g.GET("", h.resources)
	g.GET("/:name", h.browse)
	g.POST("/:name/actions/:action", h.run)
}

func (h *Admin) resources(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"resources": h.registry.Resources()})
}

func (h *Admin) browse(c *gin.Context) {
	q, err := listQuery(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	page, err := h.registry.Browse(c.Request.Context(), c.Param("name"), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

type actionRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

func (h *Admin) run(c *gin.Context) {
	var req actionRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.registry.Run(c.Request.Context(), c.Param("name"), c.Param("action"), req.IDs)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.logger.Info("admin action",
		zap.String("resource", c.Param("name")),
		zap.String("action", res.Action),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", len(res.Failed)))
	c.JSON(http.StatusOK, res)
}
