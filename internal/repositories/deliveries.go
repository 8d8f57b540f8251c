package repositories

import (
	"context"
	"time"

	"example.com/dairydesk/services/billing/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeliveryRepository provides access to the delivery ledger
type DeliveryRepository struct {
	db *gorm.DB
}

// NewDeliveryRepository creates a new delivery repository
func NewDeliveryRepository(db *gorm.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// Upsert creates or replaces the entry for the entry's (customer, date) key.
func (r *DeliveryRepository) Upsert(ctx context.Context, entry *models.DeliveryEntry) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "customer_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"morning_liters", "evening_liters", "total_liters", "notes", "updated_at",
		}),
	}).Create(entry).Error
	if err != nil {
		return errors.Wrap(err, "failed to upsert delivery entry")
	}
	return nil
}

// GetByCustomerAndDate returns the stored entry for a (customer, date) key.
func (r *DeliveryRepository) GetByCustomerAndDate(ctx context.Context, customerID uuid.UUID, date time.Time) (*models.DeliveryEntry, error) {
	var entry models.DeliveryEntry
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND date = ?", customerID, date).
		First(&entry).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to get delivery entry")
	}
	return &entry, nil
}

// DeleteByCustomerAndDate removes the entry for a (customer, date) key.
// Missing rows are not an error; saving an empty entry is how callers
// clear a day.
func (r *DeliveryRepository) DeleteByCustomerAndDate(ctx context.Context, customerID uuid.UUID, date time.Time) error {
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND date = ?", customerID, date).
		Delete(&models.DeliveryEntry{}).Error
	if err != nil {
		return errors.Wrap(err, "failed to delete delivery entry")
	}
	return nil
}

// GetByDate returns all entries recorded for a date
func (r *DeliveryRepository) GetByDate(ctx context.Context, date time.Time) ([]models.DeliveryEntry, error) {
	var entries []models.DeliveryEntry
	err := r.db.WithContext(ctx).
		Where("date = ?", date).
		Find(&entries).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to get delivery entries by date")
	}
	return entries, nil
}

// GetForPeriod returns one customer's entries in an inclusive date range,
// ordered by date.
func (r *DeliveryRepository) GetForPeriod(ctx context.Context, customerID uuid.UUID, start, end time.Time) ([]models.DeliveryEntry, error) {
	var entries []models.DeliveryEntry
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND date >= ? AND date <= ?", customerID, start, end).
		Order("date asc").
		Find(&entries).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to get delivery entries for period")
	}
	return entries, nil
}

// SumForPeriod sums totalLiters for one customer over an inclusive range.
func (r *DeliveryRepository) SumForPeriod(ctx context.Context, customerID uuid.UUID, start, end time.Time) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&models.DeliveryEntry{}).
		Where("customer_id = ? AND date >= ? AND date <= ?", customerID, start, end).
		Select("COALESCE(SUM(total_liters), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to sum deliveries for period")
	}
	return total, nil
}

// SumForRange sums totalLiters across all customers over an inclusive range.
func (r *DeliveryRepository) SumForRange(ctx context.Context, start, end time.Time) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&models.DeliveryEntry{}).
		Where("date >= ? AND date <= ?", start, end).
		Select("COALESCE(SUM(total_liters), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to sum deliveries for range")
	}
	return total, nil
}

// CountForDate counts entries recorded for a date
func (r *DeliveryRepository) CountForDate(ctx context.Context, date time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DeliveryEntry{}).
		Where("date = ?", date).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to count delivery entries")
	}
	return count, nil
}
