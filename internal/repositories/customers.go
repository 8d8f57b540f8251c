package repositories

import (
	"context"

	"example.com/dairydesk/services/billing/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// CustomerRepository provides access to customer data
type CustomerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// ListCustomersOptions filters customer listings.
type ListCustomersOptions struct {
	Active *bool
	Search string
}

// Create creates a new customer
func (r *CustomerRepository) Create(ctx context.Context, customer *models.Customer) error {
	if err := r.db.WithContext(ctx).Create(customer).Error; err != nil {
		return errors.Wrap(err, "failed to create customer")
	}
	return nil
}

// Save persists changes to an existing customer
func (r *CustomerRepository) Save(ctx context.Context, customer *models.Customer) error {
	if err := r.db.WithContext(ctx).Save(customer).Error; err != nil {
		return errors.Wrap(err, "failed to save customer")
	}
	return nil
}

// GetByID gets a customer by ID
func (r *CustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).First(&customer, "id = ?", id).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to get customer by ID")
	}
	return &customer, nil
}

// List lists customers ordered by name, optionally filtered by active flag
// and a name/phone search term.
func (r *CustomerRepository) List(ctx context.Context, opts ListCustomersOptions) ([]models.Customer, error) {
	q := r.db.WithContext(ctx).Model(&models.Customer{}).Order("name asc")
	if opts.Active != nil {
		q = q.Where("is_active = ?", *opts.Active)
	}
	if opts.Search != "" {
		pattern := "%" + opts.Search + "%"
		q = q.Where("name LIKE ? OR phone_number LIKE ?", pattern, pattern)
	}

	var customers []models.Customer
	if err := q.Find(&customers).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list customers")
	}
	return customers, nil
}

// ListActive lists active customers ordered by name
func (r *CustomerRepository) ListActive(ctx context.Context) ([]models.Customer, error) {
	active := true
	return r.List(ctx, ListCustomersOptions{Active: &active})
}

// DeleteCascade hard-deletes a customer together with every row that
// references it, in dependency order: payments, bills, deliveries, then
// the customer itself. Runs in one transaction so no orphans survive a
// partial failure.
func (r *CustomerRepository) DeleteCascade(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		billIDs := tx.Model(&models.Bill{}).Select("id").Where("customer_id = ?", id)
		if err := tx.Where("bill_id IN (?)", billIDs).Delete(&models.Payment{}).Error; err != nil {
			return errors.Wrap(err, "failed to delete payments")
		}
		if err := tx.Where("customer_id = ?", id).Delete(&models.Bill{}).Error; err != nil {
			return errors.Wrap(err, "failed to delete bills")
		}
		if err := tx.Where("customer_id = ?", id).Delete(&models.DeliveryEntry{}).Error; err != nil {
			return errors.Wrap(err, "failed to delete delivery entries")
		}
		result := tx.Where("id = ?", id).Delete(&models.Customer{})
		if result.Error != nil {
			return errors.Wrap(result.Error, "failed to delete customer")
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	return nil
}
