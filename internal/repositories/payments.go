package repositories

import (
	"context"
	"time"

	"example.com/dairydesk/services/billing/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// PaymentRepository provides access to payment data
type PaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create appends a payment row. Payments are never edited or deleted.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return errors.Wrap(err, "failed to create payment")
	}
	return nil
}

// SumForBill sums all payments recorded against a bill
func (r *PaymentRepository) SumForBill(ctx context.Context, billID uuid.UUID) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("bill_id = ?", billID).
		Select("COALESCE(SUM(amount_paid), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to sum payments for bill")
	}
	return total, nil
}

// SumForRange sums payments received in the date range [start, end]
func (r *PaymentRepository) SumForRange(ctx context.Context, start, end time.Time) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("paid_on >= ? AND paid_on <= ?", start, end).
		Select("COALESCE(SUM(amount_paid), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to sum payments for range")
	}
	return total, nil
}

// ListForBill returns a bill's payments in the order they were recorded
func (r *PaymentRepository) ListForBill(ctx context.Context, billID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("bill_id = ?", billID).
		Order("created_at asc").
		Find(&payments).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list payments for bill")
	}
	return payments, nil
}
