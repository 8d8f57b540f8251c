package handlers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"example.com/dairydesk/services/billing/internal/render"
	"example.com/dairydesk/services/billing/internal/repositories"
	"example.com/dairydesk/services/billing/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CustomerHandler handles customer-related HTTP requests
type CustomerHandler struct {
	customerService *services.CustomerService
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(customerService *services.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: customerService}
}

// CreateCustomerRequest carries a new customer record.
type CreateCustomerRequest struct {
	Name          string   `json:"name" binding:"required"`
	PhoneNumber   string   `json:"phone_number" binding:"required"`
	Address       *string  `json:"address"`
	PricePerLiter *float64 `json:"price_per_liter"`
	StartDate     string   `json:"start_date" binding:"required"`
}

// HandleCreateCustomer creates a new customer
func (h *CustomerHandler) HandleCreateCustomer(c *gin.Context) {
	var req CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		respondError(c, err)
		return
	}

	customer, err := h.customerService.CreateCustomer(c, services.CreateCustomerInput{
		Name:          req.Name,
		PhoneNumber:   req.PhoneNumber,
		Address:       req.Address,
		PricePerLiter: req.PricePerLiter,
		StartDate:     startDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, customer)
}

// UpdateCustomerRequest carries a partial customer update.
type UpdateCustomerRequest struct {
	Name          *string  `json:"name"`
	PhoneNumber   *string  `json:"phone_number"`
	Address       *string  `json:"address"`
	PricePerLiter *float64 `json:"price_per_liter"`
	StartDate     *string  `json:"start_date"`
}

// HandleUpdateCustomer applies a partial update to a customer
func (h *CustomerHandler) HandleUpdateCustomer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer id"})
		return
	}

	var req UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := services.UpdateCustomerInput{
		Name:          req.Name,
		PhoneNumber:   req.PhoneNumber,
		Address:       req.Address,
		PricePerLiter: req.PricePerLiter,
	}
	if req.StartDate != nil {
		startDate, err := parseDate(*req.StartDate)
		if err != nil {
			respondError(c, err)
			return
		}
		input.StartDate = &startDate
	}

	customer, err := h.customerService.UpdateCustomer(c, id, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, customer)
}

// HandleClearCustomRate removes a customer's rate override
func (h *CustomerHandler) HandleClearCustomRate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer id"})
		return
	}

	customer, err := h.customerService.ClearCustomRate(c, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, customer)
}

// HandleToggleActive flips a customer's active flag
func (h *CustomerHandler) HandleToggleActive(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer id"})
		return
	}

	customer, err := h.customerService.ToggleActive(c, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, customer)
}

// HandleDeleteCustomer removes a customer and all dependent records
func (h *CustomerHandler) HandleDeleteCustomer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer id"})
		return
	}

	if err := h.customerService.DeleteCustomer(c, id); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// HandleGetCustomer returns one customer
func (h *CustomerHandler) HandleGetCustomer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer id"})
		return
	}

	customer, err := h.customerService.GetCustomer(c, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, customer)
}

func listOptionsFromQuery(c *gin.Context) repositories.ListCustomersOptions {
	opts := repositories.ListCustomersOptions{Search: c.Query("search")}
	if activeParam := c.Query("active"); activeParam != "" {
		if active, err := strconv.ParseBool(activeParam); err == nil {
			opts.Active = &active
		}
	}
	return opts
}

// HandleListCustomers lists customers with optional filters
func (h *CustomerHandler) HandleListCustomers(c *gin.Context) {
	if c.Query("stats") == "true" {
		rows, err := h.customerService.ListCustomersWithStats(c, listOptionsFromQuery(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"customers": rows})
		return
	}

	customers, err := h.customerService.ListCustomers(c, listOptionsFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"customers": customers})
}

// HandleExportCustomers exports customer summaries as CSV or XLSX
func (h *CustomerHandler) HandleExportCustomers(c *gin.Context) {
	rows, err := h.customerService.ListCustomersWithStats(c, listOptionsFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}

	fileName := fmt.Sprintf("customers-%s", time.Now().UTC().Format(dateLayout))

	if c.Query("format") == "xlsx" {
		reportRows := make([]render.CustomerReportRow, 0, len(rows))
		for _, row := range rows {
			reportRows = append(reportRows, render.CustomerReportRow{
				Name:         row.Customer.Name,
				PhoneNumber:  row.Customer.PhoneNumber,
				Active:       row.Customer.IsActive,
				DeliveryDays: row.Stats.DeliveryDays,
				TotalLiters:  row.Stats.TotalLiters,
				TotalBilled:  row.Stats.TotalBilled,
				TotalPaid:    row.Stats.TotalPaid,
				Balance:      row.Stats.Balance,
			})
		}
		doc, err := render.RenderCustomerReport(reportRows)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName+".xlsx"))
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", doc)
		return
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"name", "phone", "active", "delivery_days", "total_liters", "total_billed", "total_paid", "balance"})
	for _, row := range rows {
		_ = w.Write([]string{
			row.Customer.Name,
			row.Customer.PhoneNumber,
			strconv.FormatBool(row.Customer.IsActive),
			strconv.Itoa(row.Stats.DeliveryDays),
			strconv.FormatFloat(row.Stats.TotalLiters, 'f', 2, 64),
			strconv.FormatFloat(row.Stats.TotalBilled, 'f', 2, 64),
			strconv.FormatFloat(row.Stats.TotalPaid, 'f', 2, 64),
			strconv.FormatFloat(row.Stats.Balance, 'f', 2, 64),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName+".csv"))
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

// RegisterRoutes registers the handler's routes
func (h *CustomerHandler) RegisterRoutes(router *gin.RouterGroup) {
	customers := router.Group("/customers")
	{
		customers.POST("", h.HandleCreateCustomer)
		customers.GET("", h.HandleListCustomers)
		customers.GET("/export", h.HandleExportCustomers)
		customers.GET("/:id", h.HandleGetCustomer)
		customers.PUT("/:id", h.HandleUpdateCustomer)
		customers.DELETE("/:id", h.HandleDeleteCustomer)
		customers.POST("/:id/toggle-active", h.HandleToggleActive)
		customers.DELETE("/:id/custom-rate", h.HandleClearCustomRate)
	}
}
