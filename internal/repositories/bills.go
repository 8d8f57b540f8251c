package repositories

import (
	"context"
	"time"

	"example.com/dairydesk/services/billing/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// BillRepository provides access to bill data
type BillRepository struct {
	db *gorm.DB
}

// NewBillRepository creates a new bill repository
func NewBillRepository(db *gorm.DB) *BillRepository {
	return &BillRepository{db: db}
}

// GetByID gets a bill with its customer and payments
func (r *BillRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Bill, error) {
	var bill models.Bill
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Payments").
		First(&bill, "id = ?", id).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to get bill by ID")
	}
	return &bill, nil
}

// GetByCustomerAndPeriod looks up the bill for a (customer, period) key.
// Returns (nil, nil) when no bill exists yet.
func (r *BillRepository) GetByCustomerAndPeriod(ctx context.Context, customerID uuid.UUID, periodStart, periodEnd time.Time) (*models.Bill, error) {
	var bill models.Bill
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND period_start = ? AND period_end = ?", customerID, periodStart, periodEnd).
		First(&bill).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get bill by customer and period")
	}
	return &bill, nil
}

// ListForPeriod returns all bills for one billing period
func (r *BillRepository) ListForPeriod(ctx context.Context, periodStart, periodEnd time.Time) ([]models.Bill, error) {
	var bills []models.Bill
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Payments").
		Where("period_start = ? AND period_end = ?", periodStart, periodEnd).
		Find(&bills).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list bills for period")
	}
	return bills, nil
}

// ListPending returns bills that still carry an outstanding balance,
// newest first.
func (r *BillRepository) ListPending(ctx context.Context) ([]models.Bill, error) {
	var bills []models.Bill
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Payments").
		Where("status IN ?", []models.BillStatus{
			models.BillStatusGenerated,
			models.BillStatusSent,
			models.BillStatusPartiallyPaid,
		}).
		Order("created_at desc").
		Find(&bills).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list pending bills")
	}
	return bills, nil
}

// ListSendable returns a period's bills eligible for delivery over the
// messaging channel: generated or partially paid, never already settled.
func (r *BillRepository) ListSendable(ctx context.Context, periodStart, periodEnd time.Time) ([]models.Bill, error) {
	var bills []models.Bill
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Where("period_start = ? AND period_end = ? AND status IN ?",
			periodStart, periodEnd,
			[]models.BillStatus{models.BillStatusGenerated, models.BillStatusPartiallyPaid}).
		Find(&bills).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sendable bills")
	}
	return bills, nil
}

// ListWithPayments returns bills that have at least one payment row.
// Used by the status reconciliation job.
func (r *BillRepository) ListWithPayments(ctx context.Context) ([]models.Bill, error) {
	var bills []models.Bill
	err := r.db.WithContext(ctx).
		Preload("Payments").
		Where("id IN (?)", r.db.Model(&models.Payment{}).Select("DISTINCT bill_id")).
		Find(&bills).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list bills with payments")
	}
	return bills, nil
}

// InvoiceNumbersForYear returns every invoice number carrying the year's
// prefix. The allocator scans these for the highest sequence.
func (r *BillRepository) InvoiceNumbersForYear(ctx context.Context, yearPrefix string) ([]string, error) {
	var numbers []string
	err := r.db.WithContext(ctx).
		Model(&models.Bill{}).
		Where("invoice_number LIKE ?", yearPrefix+"%").
		Pluck("invoice_number", &numbers).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list invoice numbers for year")
	}
	return numbers, nil
}

// InvoiceNumberExists reports whether an invoice number is already taken.
func (r *BillRepository) InvoiceNumberExists(ctx context.Context, invoiceNumber string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Bill{}).
		Where("invoice_number = ?", invoiceNumber).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "failed to check invoice number")
	}
	return count > 0, nil
}
