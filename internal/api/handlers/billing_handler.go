package handlers

import (
	"fmt"
	"net/http"

	"example.com/dairydesk/services/billing/internal/services"
	"example.com/dairydesk/services/billing/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// BillingHandler handles billing-related HTTP requests
type BillingHandler struct {
	billingService  *services.BillingService
	dispatchService *services.DispatchService
	tracer          tracing.Tracer
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(billingService *services.BillingService, dispatchService *services.DispatchService, tracer tracing.Tracer) *BillingHandler {
	return &BillingHandler{
		billingService:  billingService,
		dispatchService: dispatchService,
		tracer:          tracer,
	}
}

// GenerateBillsRequest asks for bill generation over a billing period,
// optionally limited to one customer.
type GenerateBillsRequest struct {
	PeriodStart string  `json:"period_start" binding:"required"`
	PeriodEnd   string  `json:"period_end" binding:"required"`
	CustomerID  *string `json:"customer_id"`
}

// HandleGenerateBills generates bills for a period
func (h *BillingHandler) HandleGenerateBills(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-generate-bills")
	defer h.tracer.EndTransaction(txn)

	var req GenerateBillsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	periodStart, err := parseDate(req.PeriodStart)
	if err != nil {
		respondError(c, err)
		return
	}
	periodEnd, err := parseDate(req.PeriodEnd)
	if err != nil {
		respondError(c, err)
		return
	}

	var customerID *uuid.UUID
	if req.CustomerID != nil {
		id, err := uuid.Parse(*req.CustomerID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer_id"})
			return
		}
		customerID = &id
	}

	h.tracer.AddAttribute(txn, "period_start", req.PeriodStart)
	h.tracer.AddAttribute(txn, "period_end", req.PeriodEnd)

	bills, failures, err := h.billingService.GenerateBillsForPeriod(c, periodStart, periodEnd, customerID)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bills":    bills,
		"failures": failures,
	})
}

// ManualBillRequest carries an operator-entered bill.
type ManualBillRequest struct {
	CustomerID    string  `json:"customer_id" binding:"required"`
	PeriodStart   string  `json:"period_start" binding:"required"`
	PeriodEnd     string  `json:"period_end" binding:"required"`
	TotalLiters   float64 `json:"total_liters" binding:"required"`
	PricePerLiter float64 `json:"price_per_liter" binding:"required"`
	Notes         *string `json:"notes"`
}

// HandleCreateManualBill creates a bill from operator-entered figures
func (h *BillingHandler) HandleCreateManualBill(c *gin.Context) {
	var req ManualBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer_id"})
		return
	}
	periodStart, err := parseDate(req.PeriodStart)
	if err != nil {
		respondError(c, err)
		return
	}
	periodEnd, err := parseDate(req.PeriodEnd)
	if err != nil {
		respondError(c, err)
		return
	}

	bill, err := h.billingService.CreateManualBill(c, customerID, periodStart, periodEnd, req.TotalLiters, req.PricePerLiter, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, bill)
}

// RecordPaymentRequest records a payment against a bill.
type RecordPaymentRequest struct {
	AmountPaid float64 `json:"amount_paid" binding:"required"`
	PaidOn     string  `json:"paid_on" binding:"required"`
	Note       *string `json:"note"`
}

// HandleRecordPayment records a payment against a bill
func (h *BillingHandler) HandleRecordPayment(c *gin.Context) {
	billID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bill id"})
		return
	}

	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	paidOn, err := parseDate(req.PaidOn)
	if err != nil {
		respondError(c, err)
		return
	}

	bill, err := h.billingService.RecordPayment(c, billID, req.AmountPaid, paidOn, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, bill)
}

// HandleSendBill renders and delivers a single bill
func (h *BillingHandler) HandleSendBill(c *gin.Context) {
	billID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bill id"})
		return
	}

	bill, err := h.dispatchService.SendBill(c, billID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, bill)
}

// SendAllRequest asks for delivery of every sendable bill in a period.
type SendAllRequest struct {
	PeriodStart string `json:"period_start" binding:"required"`
	PeriodEnd   string `json:"period_end" binding:"required"`
}

// HandleSendAllBills delivers every sendable bill of a period
func (h *BillingHandler) HandleSendAllBills(c *gin.Context) {
	var req SendAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	periodStart, err := parseDate(req.PeriodStart)
	if err != nil {
		respondError(c, err)
		return
	}
	periodEnd, err := parseDate(req.PeriodEnd)
	if err != nil {
		respondError(c, err)
		return
	}

	results, err := h.dispatchService.SendAllBills(c, periodStart, periodEnd)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// HandleListBills lists bills for a period
func (h *BillingHandler) HandleListBills(c *gin.Context) {
	periodStart, err := parseDate(c.Query("period_start"))
	if err != nil {
		respondError(c, err)
		return
	}
	periodEnd, err := parseDate(c.Query("period_end"))
	if err != nil {
		respondError(c, err)
		return
	}

	bills, err := h.billingService.BillsForPeriod(c, periodStart, periodEnd)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bills": bills})
}

// HandleListPendingBills lists bills with an outstanding balance
func (h *BillingHandler) HandleListPendingBills(c *gin.Context) {
	bills, err := h.billingService.PendingBills(c)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bills": bills})
}

// HandleSearchBills runs a free-text search over the bill index
func (h *BillingHandler) HandleSearchBills(c *gin.Context) {
	term := c.Query("q")
	if term == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
		return
	}

	hits, err := h.billingService.SearchBills(c, term)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": hits})
}

// HandleGetBill returns one bill with its customer and payments
func (h *BillingHandler) HandleGetBill(c *gin.Context) {
	billID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bill id"})
		return
	}

	bill, err := h.billingService.GetBill(c, billID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, bill)
}

// HandleGetBillDocument renders and downloads the invoice document
func (h *BillingHandler) HandleGetBillDocument(c *gin.Context) {
	billID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bill id"})
		return
	}

	doc, fileName, err := h.dispatchService.RenderBillDocument(c, billID)
	if err != nil {
		respondError(c, err)
		return
	}

	log.Debug().Str("bill_id", billID.String()).Str("file", fileName).Msg("Serving invoice document")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", doc)
}

// RegisterRoutes registers the handler's routes
func (h *BillingHandler) RegisterRoutes(router *gin.RouterGroup) {
	billing := router.Group("/billing")
	{
		billing.POST("/generate", h.HandleGenerateBills)
		billing.POST("/manual", h.HandleCreateManualBill)
		billing.POST("/send-all", h.HandleSendAllBills)
		billing.GET("", h.HandleListBills)
		billing.GET("/pending", h.HandleListPendingBills)
		billing.GET("/search", h.HandleSearchBills)
		billing.GET("/:id", h.HandleGetBill)
		billing.GET("/:id/document", h.HandleGetBillDocument)
		billing.POST("/:id/payments", h.HandleRecordPayment)
		billing.POST("/:id/send", h.HandleSendBill)
	}
}
