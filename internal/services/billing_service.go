package services

import (
	"context"
	"time"

	"example.com/dairydesk/services/billing/internal/billing"
	"example.com/dairydesk/services/billing/internal/cache"
	"example.com/dairydesk/services/billing/internal/metrics"
	"example.com/dairydesk/services/billing/internal/models"
	"example.com/dairydesk/services/billing/internal/repositories"
	"example.com/dairydesk/services/billing/internal/search"
	"example.com/dairydesk/services/billing/internal/tracing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// BillingService owns bill generation, payments and settlement status.
type BillingService struct {
	db           *gorm.DB
	customerRepo *repositories.CustomerRepository
	billRepo     *repositories.BillRepository
	settingsRepo *repositories.SettingsRepository
	deliveryRepo *repositories.DeliveryRepository
	cache        *cache.RedisCache
	searchClient *search.ElasticClient
	metrics      *metrics.Metrics
	tracer       tracing.Tracer
}

// NewBillingService creates a new billing service. The cache and search
// clients may be nil; both are best-effort collaborators.
func NewBillingService(
	db *gorm.DB,
	redisCache *cache.RedisCache,
	searchClient *search.ElasticClient,
	metricsCollector *metrics.Metrics,
	tracer tracing.Tracer,
) *BillingService {
	return &BillingService{
		db:           db,
		customerRepo: repositories.NewCustomerRepository(db),
		billRepo:     repositories.NewBillRepository(db),
		settingsRepo: repositories.NewSettingsRepository(db),
		deliveryRepo: repositories.NewDeliveryRepository(db),
		cache:        redisCache,
		searchClient: searchClient,
		metrics:      metricsCollector,
		tracer:       tracer,
	}
}

// GenerationFailure reports one customer whose bill could not be produced.
// A failed customer never blocks the rest of the batch.
type GenerationFailure struct {
	CustomerID   uuid.UUID `json:"customer_id"`
	CustomerName string    `json:"customer_name"`
	Error        string    `json:"error"`
}

// GenerateBillsForPeriod aggregates each customer's deliveries over the
// inclusive period into one bill row per (customer, period). Customers with
// zero delivered liters are skipped. Each customer runs in its own
// transaction; regeneration recalculates amounts, keeps the original
// invoice number and recomputes status from the payments on record.
func (s *BillingService) GenerateBillsForPeriod(ctx context.Context, periodStart, periodEnd time.Time, customerID *uuid.UUID) ([]models.Bill, []GenerationFailure, error) {
	if periodEnd.Before(periodStart) {
		return nil, nil, errors.Wrap(ErrValidation, "period end before period start")
	}

	txn := s.tracer.StartTransaction("generate-bills")
	defer s.tracer.EndTransaction(txn)
	started := time.Now()

	customers, err := s.customersForGeneration(ctx, customerID)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, nil, err
	}

	settings, err := s.settingsRepo.GetOrCreate(ctx)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, nil, err
	}

	bills := make([]models.Bill, 0, len(customers))
	var failures []GenerationFailure
	for i := range customers {
		customer := &customers[i]

		span := s.tracer.StartSpan("generate-customer-bill", txn)
		bill, err := s.generateBillForCustomer(ctx, customer, settings, periodStart, periodEnd)
		span.End()

		if err != nil {
			log.Error().
				Err(err).
				Str("customer_id", customer.ID.String()).
				Str("customer", customer.Name).
				Msg("Bill generation failed for customer")
			s.tracer.RecordError(txn, err)
			failures = append(failures, GenerationFailure{
				CustomerID:   customer.ID,
				CustomerName: customer.Name,
				Error:        err.Error(),
			})
			continue
		}
		if bill == nil {
			// No deliveries in the period, no bill.
			continue
		}

		bills = append(bills, *bill)
		s.metrics.IncrementCounter("bills_generated")
		s.indexBill(ctx, bill, customer)
	}

	s.metrics.RecordTimer("bill_generation", time.Since(started).Milliseconds())
	s.invalidateDashboard(ctx)

	log.Info().
		Int("bills", len(bills)).
		Int("failures", len(failures)).
		Time("period_start", periodStart).
		Time("period_end", periodEnd).
		Msg("Bill generation pass complete")

	return bills, failures, nil
}

func (s *BillingService) customersForGeneration(ctx context.Context, customerID *uuid.UUID) ([]models.Customer, error) {
	if customerID == nil {
		return s.customerRepo.ListActive(ctx)
	}

	customer, err := s.customerRepo.GetByID(ctx, *customerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(ErrNotFound, "customer does not exist")
	}
	if err != nil {
		return nil, err
	}
	if !customer.IsActive {
		return nil, nil
	}
	return []models.Customer{*customer}, nil
}

// generateBillForCustomer produces or refreshes one customer's bill inside
// a single transaction. Returns (nil, nil) when the customer had no
// deliveries in the period.
func (s *BillingService) generateBillForCustomer(ctx context.Context, customer *models.Customer, settings *models.Settings, periodStart, periodEnd time.Time) (*models.Bill, error) {
	var result *models.Bill

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deliveries := repositories.NewDeliveryRepository(tx)
		bills := repositories.NewBillRepository(tx)
		payments := repositories.NewPaymentRepository(tx)

		totalLiters, err := deliveries.SumForPeriod(ctx, customer.ID, periodStart, periodEnd)
		if err != nil {
			return err
		}
		if totalLiters == 0 {
			return nil
		}

		rate := billing.ResolveRate(customer, settings)
		totalAmount := billing.BillAmount(totalLiters, rate)

		existing, err := bills.GetByCustomerAndPeriod(ctx, customer.ID, periodStart, periodEnd)
		if err != nil {
			return err
		}

		if existing != nil {
			totalPaid, err := payments.SumForBill(ctx, existing.ID)
			if err != nil {
				return err
			}

			existing.TotalLiters = totalLiters
			existing.PricePerLiter = rate
			existing.TotalAmount = totalAmount
			existing.Status = billing.StatusForPayments(totalAmount, totalPaid)
			if err := tx.Save(existing).Error; err != nil {
				return errors.Wrap(err, "failed to update bill")
			}
			result = existing
			return nil
		}

		invoiceNumber, err := allocateInvoiceNumber(ctx, bills, periodStart)
		if err != nil {
			return err
		}

		bill := &models.Bill{
			ID:            uuid.New(),
			CustomerID:    customer.ID,
			PeriodStart:   periodStart,
			PeriodEnd:     periodEnd,
			TotalLiters:   totalLiters,
			PricePerLiter: rate,
			TotalAmount:   totalAmount,
			InvoiceNumber: invoiceNumber,
			Status:        models.BillStatusGenerated,
		}
		if err := tx.Create(bill).Error; err != nil {
			return errors.Wrap(err, "failed to create bill")
		}
		result = bill
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RecordPayment appends a payment against a bill and recomputes the bill's
// settlement status from the full payment history. Overpayment is accepted
// and stored; status stays PAID.
func (s *BillingService) RecordPayment(ctx context.Context, billID uuid.UUID, amountPaid float64, paidOn time.Time, note *string) (*models.Bill, error) {
	if amountPaid <= 0 {
		return nil, errors.Wrap(ErrValidation, "payment amount must be positive")
	}

	txn := s.tracer.StartTransaction("record-payment")
	defer s.tracer.EndTransaction(txn)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var bill models.Bill
		if err := tx.First(&bill, "id = ?", billID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.Wrap(ErrNotFound, "bill does not exist")
			}
			return errors.Wrap(err, "failed to load bill")
		}

		payment := &models.Payment{
			ID:         uuid.New(),
			BillID:     billID,
			AmountPaid: amountPaid,
			PaidOn:     paidOn,
			Note:       note,
		}
		if err := tx.Create(payment).Error; err != nil {
			return errors.Wrap(err, "failed to create payment")
		}

		totalPaid, err := repositories.NewPaymentRepository(tx).SumForBill(ctx, billID)
		if err != nil {
			return err
		}

		status := billing.StatusForPayments(bill.TotalAmount, totalPaid)
		if err := tx.Model(&bill).Update("status", status).Error; err != nil {
			return errors.Wrap(err, "failed to update bill status")
		}
		return nil
	})
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, err
	}

	s.metrics.IncrementCounter("payments_recorded")
	s.invalidateDashboard(ctx)

	log.Info().
		Str("bill_id", billID.String()).
		Float64("amount", amountPaid).
		Msg("Payment recorded")

	return s.GetBill(ctx, billID)
}

// MarkSent records a successful delivery over the messaging channel:
// status SENT, the external message id and the send timestamp.
func (s *BillingService) MarkSent(ctx context.Context, billID uuid.UUID, externalMessageID string) (*models.Bill, error) {
	now := time.Now()
	result := s.db.WithContext(ctx).
		Model(&models.Bill{}).
		Where("id = ?", billID).
		Updates(map[string]interface{}{
			"status":          models.BillStatusSent,
			"whatsapp_msg_id": externalMessageID,
			"sent_at":         now,
		})
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to mark bill sent")
	}
	if result.RowsAffected == 0 {
		return nil, errors.Wrap(ErrNotFound, "bill does not exist")
	}

	s.metrics.IncrementCounter("bills_marked_sent")
	return s.GetBill(ctx, billID)
}

// CreateManualBill inserts an operator-entered bill outside the generation
// flow. It still allocates a proper invoice number.
func (s *BillingService) CreateManualBill(ctx context.Context, customerID uuid.UUID, periodStart, periodEnd time.Time, totalLiters, pricePerLiter float64, notes *string) (*models.Bill, error) {
	if periodEnd.Before(periodStart) {
		return nil, errors.Wrap(ErrValidation, "period end before period start")
	}
	if totalLiters <= 0 || pricePerLiter <= 0 {
		return nil, errors.Wrap(ErrValidation, "liters and rate must be positive")
	}

	customer, err := s.customerRepo.GetByID(ctx, customerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(ErrNotFound, "customer does not exist")
	}
	if err != nil {
		return nil, err
	}

	var bill *models.Bill
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoiceNumber, err := allocateInvoiceNumber(ctx, repositories.NewBillRepository(tx), periodStart)
		if err != nil {
			return err
		}

		bill = &models.Bill{
			ID:            uuid.New(),
			CustomerID:    customer.ID,
			PeriodStart:   periodStart,
			PeriodEnd:     periodEnd,
			TotalLiters:   totalLiters,
			PricePerLiter: pricePerLiter,
			TotalAmount:   billing.BillAmount(totalLiters, pricePerLiter),
			InvoiceNumber: invoiceNumber,
			Status:        models.BillStatusGenerated,
			Notes:         notes,
		}
		if err := tx.Create(bill).Error; err != nil {
			return errors.Wrap(err, "failed to create manual bill")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementCounter("bills_generated")
	s.indexBill(ctx, bill, customer)
	return s.GetBill(ctx, bill.ID)
}

// GetBill returns a bill with its customer and payments
func (s *BillingService) GetBill(ctx context.Context, billID uuid.UUID) (*models.Bill, error) {
	bill, err := s.billRepo.GetByID(ctx, billID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(ErrNotFound, "bill does not exist")
	}
	if err != nil {
		return nil, err
	}
	return bill, nil
}

// BillsForPeriod returns all bills of one billing period
func (s *BillingService) BillsForPeriod(ctx context.Context, periodStart, periodEnd time.Time) ([]models.Bill, error) {
	return s.billRepo.ListForPeriod(ctx, periodStart, periodEnd)
}

// PendingBills returns bills with an outstanding balance
func (s *BillingService) PendingBills(ctx context.Context) ([]models.Bill, error) {
	return s.billRepo.ListPending(ctx)
}

// SearchBills runs a free-text query over the bill index, matching invoice
// numbers, customer names and phone numbers. Returns an empty result set
// when search is disabled.
func (s *BillingService) SearchBills(ctx context.Context, term string) ([]map[string]interface{}, error) {
	if s.searchClient == nil {
		log.Warn().Msg("Bill search requested but search is disabled")
		return []map[string]interface{}{}, nil
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  term,
				"fields": []string{"invoice_number", "customer_name", "customer_phone"},
			},
		},
	}

	hits, err := s.searchClient.SearchBills(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search bills")
	}
	return hits, nil
}

// ReconcileStatuses recomputes the status of every bill that has payments
// and fixes rows that drifted. Fallback guard run by the worker; the same
// rule the generator and payment path apply inline.
func (s *BillingService) ReconcileStatuses(ctx context.Context) error {
	txn := s.tracer.StartTransaction("reconcile-bill-statuses")
	defer s.tracer.EndTransaction(txn)

	bills, err := s.billRepo.ListWithPayments(ctx)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return err
	}

	fixed := 0
	for i := range bills {
		bill := &bills[i]
		totalPaid := 0.0
		for _, p := range bill.Payments {
			totalPaid += p.AmountPaid
		}

		status := billing.StatusForPayments(bill.TotalAmount, totalPaid)
		if status == bill.Status {
			continue
		}

		err := s.db.WithContext(ctx).
			Model(&models.Bill{}).
			Where("id = ?", bill.ID).
			Update("status", status).Error
		if err != nil {
			log.Error().
				Err(err).
				Str("bill_id", bill.ID.String()).
				Msg("Failed to reconcile bill status")
			s.tracer.RecordError(txn, err)
			continue
		}
		fixed++
		log.Warn().
			Str("bill_id", bill.ID.String()).
			Str("invoice_number", bill.InvoiceNumber).
			Str("from", string(bill.Status)).
			Str("to", string(status)).
			Msg("Reconciled drifted bill status")
	}

	if fixed > 0 {
		log.Info().Int("fixed", fixed).Msg("Bill status reconciliation complete")
	}
	return nil
}

// indexBill mirrors a bill into Elasticsearch, best effort. Generation
// never fails because search is down.
func (s *BillingService) indexBill(ctx context.Context, bill *models.Bill, customer *models.Customer) {
	if s.searchClient == nil {
		return
	}
	if err := s.searchClient.IndexBill(ctx, bill, customer.Name, customer.PhoneNumber); err != nil {
		log.Warn().
			Err(err).
			Str("bill_id", bill.ID.String()).
			Msg("Failed to index bill in Elasticsearch")
	}
}

func (s *BillingService) invalidateDashboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.DashboardStatsKey()); err != nil {
		log.Debug().Err(err).Msg("Failed to invalidate dashboard cache")
	}
}
