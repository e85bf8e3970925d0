package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
	service "github.com/mamadbah2/dairyfarm/internal/service/whatsapp"
)

// WebhookHandler handles inbound and outbound WhatsApp HTTP events.
type WebhookHandler struct {
	base
	svc service.MessagingService
}

func NewWebhookHandler(svc service.MessagingService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{base: newBase(logger, "webhook"), svc: svc}
}

func (h *WebhookHandler) Mount(r gin.IRoutes) {
	r.GET("/webhook", h.Verify)
	r.POST("/webhook", h.Receive)
	r.POST("/send-message", h.SendMessage)
}

// Verify responds to Meta's webhook verification challenge.
func (h *WebhookHandler) Verify(c *gin.Context) {
	resp, err := h.svc.VerifyWebhookToken(c.Query("hub.mode"), c.Query("hub.verify_token"), c.Query("hub.challenge"))
	if err != nil {
		h.logger.Warn("webhook verification failed", zap.Error(err))
		c.String(http.StatusForbidden, "verification failed")
		return
	}
	c.String(http.StatusOK, resp)
}

// Receive ingests webhook callbacks. A message whose reply could not be sent is
// already marked seen, so the callback is acknowledged anyway and Meta does not
// retry it.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var payload models.WebhookPayload
	if !h.bind(c, &payload) {
		return
	}
	if err := h.svc.HandleWebhook(c.Request.Context(), payload); err != nil {
		h.logger.Error("failed processing webhook", zap.Error(err))
	}
	c.Status(http.StatusOK)
}

// SendMessage sends a manual text through the business number.
func (h *WebhookHandler) SendMessage(c *gin.Context) {
	var req models.OutboundMessageRequest
	if !h.bind(c, &req) {
		return
	}
	err := h.svc.SendOutbound(c.Request.Context(), req)
	var verr *models.ValidationError
	switch {
	case err == nil:
		c.Status(http.StatusAccepted)
	case errors.As(err, &verr):
		h.fail(c, err)
	default:
		h.logger.Error("failed sending outbound", zap.Error(err))
		c.JSON(http.StatusBadGateway, ErrorResponse{Detail: "unable to send message"})
	}
}
