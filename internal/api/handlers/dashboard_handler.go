package handlers

import (
	"net/http"

	"example.com/dairydesk/services/billing/internal/services"

	"github.com/gin-gonic/gin"
)

// DashboardHandler serves the home screen summary
type DashboardHandler struct {
	dashboardService *services.DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// HandleGetDashboard returns today's and this month's summary figures
func (h *DashboardHandler) HandleGetDashboard(c *gin.Context) {
	stats, err := h.dashboardService.GetStats(c)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// RegisterRoutes registers the handler's routes
func (h *DashboardHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/dashboard", h.HandleGetDashboard)
}
