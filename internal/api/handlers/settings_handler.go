package handlers

import (
	"net/http"

	"example.com/dairydesk/services/billing/internal/services"

	"github.com/gin-gonic/gin"
)

// SettingsHandler handles farm settings HTTP requests
type SettingsHandler struct {
	settingsService *services.SettingsService
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settingsService *services.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

// HandleGetSettings returns the settings singleton, creating defaults
// on first read
func (h *SettingsHandler) HandleGetSettings(c *gin.Context) {
	settings, err := h.settingsService.GetSettings(c)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, settings)
}

// UpdateSettingsRequest carries a partial settings update.
type UpdateSettingsRequest struct {
	FarmName            *string  `json:"farm_name"`
	FarmAddress         *string  `json:"farm_address"`
	FarmPhone           *string  `json:"farm_phone"`
	GlobalPricePerLiter *float64 `json:"global_price_per_liter"`
	EntryMode           *string  `json:"entry_mode"`
	WhatsAppInstanceID  *string  `json:"whatsapp_instance_id"`
	WhatsAppAPIToken    *string  `json:"whatsapp_api_token"`
}

// HandleUpdateSettings applies a partial settings update
func (h *SettingsHandler) HandleUpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settings, err := h.settingsService.UpdateSettings(c, services.UpdateSettingsInput{
		FarmName:            req.FarmName,
		FarmAddress:         req.FarmAddress,
		FarmPhone:           req.FarmPhone,
		GlobalPricePerLiter: req.GlobalPricePerLiter,
		EntryMode:           req.EntryMode,
		WhatsAppInstanceID:  req.WhatsAppInstanceID,
		WhatsAppAPIToken:    req.WhatsAppAPIToken,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, settings)
}

// RegisterRoutes registers the handler's routes
func (h *SettingsHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/settings", h.HandleGetSettings)
	router.PUT("/settings", h.HandleUpdateSettings)
}
