package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
	"github.com/mamadbah2/dairyfarm/internal/service/notifications"
)

type Notifications struct {
	base
	svc *notifications.Service
}

func NewNotifications(svc *notifications.Service, logger *zap.Logger) *Notifications {
	return &Notifications{base: newBase(logger, "notifications"), svc: svc}
}

func (h *Notifications) Mount(api *gin.RouterGroup) {
	g := api.Group("/notifications")
	g.GET("", h.list)
	g.GET("/ws", h.stream)
	crud[models.Notification, models.NotificationInput]{base: h.base,
		create: h.svc.Create, get: h.svc.Get, remove: h.svc.Delete,
	}.mount(g)
	g.POST("/:id/read", h.markRead)
}

// list narrows to one recipient when recipient_id is given; unread=true then
// keeps only unread ones.
func (h *Notifications) list(c *gin.Context) {
	recipient := c.Query("recipient_id")
	if recipient == "" {
		q, err := listQuery(c)
		if err != nil {
			h.fail(c, err)
			return
		}
		page, err := h.svc.List(c.Request.Context(), q)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, page)
		return
	}

	q, err := listQuery(c, "recipient_id", "unread")
	if err != nil {
		h.fail(c, err)
		return
	}
	unread := false
	if raw := c.Query("unread"); raw != "" {
		if unread, err = strconv.ParseBool(raw); err != nil {
			h.fail(c, models.FieldError("unread", "must be true or false"))
			return
		}
	}
	page, err := h.svc.ListForRecipient(c.Request.Context(), recipient, unread, q)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Notifications) markRead(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	n, err := h.svc.MarkRead(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *Notifications) stream(c *gin.Context) {
	recipient := c.Query("recipient_id")
	if recipient == "" {
		h.fail(c, models.FieldError("recipient_id", "this field is required"))
		return
	}
	if err := h.svc.ServeWS(c.Writer, c.Request, recipient); err != nil {
		h.logger.Warn("websocket stream ended", zap.String("recipient", recipient), zap.Error(err))
	}
}
