package handlers

import (
	"net/http"

	"example.com/dairydesk/services/billing/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DeliveryHandler handles daily delivery entry HTTP requests
type DeliveryHandler struct {
	deliveryService *services.DeliveryService
}

// NewDeliveryHandler creates a new delivery handler
func NewDeliveryHandler(deliveryService *services.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{deliveryService: deliveryService}
}

// DailyEntryRequest is one customer's quantities for the day.
type DailyEntryRequest struct {
	CustomerID    string   `json:"customer_id" binding:"required"`
	MorningLiters *float64 `json:"morning_liters"`
	EveningLiters *float64 `json:"evening_liters"`
	TotalLiters   float64  `json:"total_liters"`
	Notes         *string  `json:"notes"`
}

// SaveEntriesRequest is the day sheet submitted as one batch.
type SaveEntriesRequest struct {
	Entries []DailyEntryRequest `json:"entries" binding:"required"`
}

// HandleSaveEntries saves a day's delivery entries in one batch
func (h *DeliveryHandler) HandleSaveEntries(c *gin.Context) {
	date, err := parseDate(c.Param("date"))
	if err != nil {
		respondError(c, err)
		return
	}

	var req SaveEntriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inputs := make([]services.DailyEntryInput, 0, len(req.Entries))
	for _, entry := range req.Entries {
		customerID, err := uuid.Parse(entry.CustomerID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer_id"})
			return
		}
		inputs = append(inputs, services.DailyEntryInput{
			CustomerID:    customerID,
			MorningLiters: entry.MorningLiters,
			EveningLiters: entry.EveningLiters,
			TotalLiters:   entry.TotalLiters,
			Notes:         entry.Notes,
		})
	}

	saved, err := h.deliveryService.SaveDailyEntries(c, date, inputs)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": saved})
}

// HandleGetDaySheet returns the day sheet: every active customer with
// their entry for the date, if any
func (h *DeliveryHandler) HandleGetDaySheet(c *gin.Context) {
	date, err := parseDate(c.Param("date"))
	if err != nil {
		respondError(c, err)
		return
	}

	rows, err := h.deliveryService.GetDaySheet(c, date)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

// HandleCopyPreviousDay pre-fills a date from the previous day's entries
func (h *DeliveryHandler) HandleCopyPreviousDay(c *gin.Context) {
	date, err := parseDate(c.Param("date"))
	if err != nil {
		respondError(c, err)
		return
	}

	entries, err := h.deliveryService.CopyPreviousDay(c, date)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// HandleGetDailySummary returns total liters and customer count for a date
func (h *DeliveryHandler) HandleGetDailySummary(c *gin.Context) {
	date, err := parseDate(c.Param("date"))
	if err != nil {
		respondError(c, err)
		return
	}

	summary, err := h.deliveryService.GetDailySummary(c, date)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// RegisterRoutes registers the handler's routes
func (h *DeliveryHandler) RegisterRoutes(router *gin.RouterGroup) {
	deliveries := router.Group("/deliveries")
	{
		deliveries.GET("/:date", h.HandleGetDaySheet)
		deliveries.PUT("/:date", h.HandleSaveEntries)
		deliveries.POST("/:date/copy-previous", h.HandleCopyPreviousDay)
		deliveries.GET("/:date/summary", h.HandleGetDailySummary)
	}
}
