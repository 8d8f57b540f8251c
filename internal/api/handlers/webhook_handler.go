package handlers

import (
	"net/http"

	"example.com/dairydesk/services/billing/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// WebhookHandler receives delivery notifications from the WhatsApp
// gateway. Receipts are informational; bill status only tracks money.
type WebhookHandler struct {
	metrics *metrics.Metrics
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(metricsCollector *metrics.Metrics) *WebhookHandler {
	return &WebhookHandler{metrics: metricsCollector}
}

// WhatsAppWebhookRequest is the gateway's outgoing-message status event.
type WhatsAppWebhookRequest struct {
	TypeWebhook string `json:"typeWebhook"`
	IDMessage   string `json:"idMessage"`
	Status      string `json:"status"`
	Timestamp   int64  `json:"timestamp"`
}

// HandleWhatsAppWebhook records a delivery receipt from the gateway
func (h *WebhookHandler) HandleWhatsAppWebhook(c *gin.Context) {
	var req WhatsAppWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	log.Info().
		Str("type", req.TypeWebhook).
		Str("message_id", req.IDMessage).
		Str("status", req.Status).
		Msg("WhatsApp delivery receipt")
	h.metrics.IncrementCounter("whatsapp_receipts")

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// RegisterRoutes registers the handler's routes
func (h *WebhookHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/webhooks/whatsapp", h.HandleWhatsAppWebhook)
}
