package services

import (
	"context"
	"time"

	"example.com/dairydesk/services/billing/internal/models"
	"example.com/dairydesk/services/billing/internal/phone"
	"example.com/dairydesk/services/billing/internal/repositories"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// CustomerService owns customer records and the cascade delete policy.
type CustomerService struct {
	db           *gorm.DB
	customerRepo *repositories.CustomerRepository
}

// NewCustomerService creates a new customer service
func NewCustomerService(db *gorm.DB) *CustomerService {
	return &CustomerService{
		db:           db,
		customerRepo: repositories.NewCustomerRepository(db),
	}
}

// CreateCustomerInput carries a new customer's fields.
type CreateCustomerInput struct {
	Name          string
	PhoneNumber   string
	Address       *string
	PricePerLiter *float64
	StartDate     time.Time
}

// UpdateCustomerInput carries partial updates; nil fields stay unchanged.
type UpdateCustomerInput struct {
	Name          *string
	PhoneNumber   *string
	Address       *string
	PricePerLiter *float64
	StartDate     *time.Time
}

// CreateCustomer validates and stores a new customer. Phone numbers are
// normalized to E.164 before storage.
func (s *CustomerService) CreateCustomer(ctx context.Context, input CreateCustomerInput) (*models.Customer, error) {
	if len(input.Name) < 2 {
		return nil, errors.Wrap(ErrValidation, "name must be at least 2 characters")
	}
	if !phone.Valid(input.PhoneNumber) {
		return nil, errors.Wrap(ErrValidation, "invalid phone number")
	}
	if input.PricePerLiter != nil && *input.PricePerLiter <= 0 {
		return nil, errors.Wrap(ErrValidation, "price per liter must be positive")
	}
	if input.StartDate.IsZero() {
		return nil, errors.Wrap(ErrValidation, "start date is required")
	}

	customer := &models.Customer{
		ID:            uuid.New(),
		Name:          input.Name,
		PhoneNumber:   phone.FormatE164(input.PhoneNumber),
		Address:       input.Address,
		PricePerLiter: input.PricePerLiter,
		IsActive:      true,
		StartDate:     NormalizeDate(input.StartDate),
	}
	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return nil, err
	}

	log.Info().
		Str("customer_id", customer.ID.String()).
		Str("name", customer.Name).
		Msg("Customer created")
	return customer, nil
}

// UpdateCustomer applies a partial update to an existing customer
func (s *CustomerService) UpdateCustomer(ctx context.Context, id uuid.UUID, input UpdateCustomerInput) (*models.Customer, error) {
	customer, err := s.getCustomer(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if len(*input.Name) < 2 {
			return nil, errors.Wrap(ErrValidation, "name must be at least 2 characters")
		}
		customer.Name = *input.Name
	}
	if input.PhoneNumber != nil {
		if !phone.Valid(*input.PhoneNumber) {
			return nil, errors.Wrap(ErrValidation, "invalid phone number")
		}
		customer.PhoneNumber = phone.FormatE164(*input.PhoneNumber)
	}
	if input.Address != nil {
		customer.Address = input.Address
	}
	if input.PricePerLiter != nil {
		if *input.PricePerLiter <= 0 {
			return nil, errors.Wrap(ErrValidation, "price per liter must be positive")
		}
		customer.PricePerLiter = input.PricePerLiter
	}
	if input.StartDate != nil {
		customer.StartDate = NormalizeDate(*input.StartDate)
	}

	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// ClearCustomRate removes a customer's price override so the global rate
// applies again.
func (s *CustomerService) ClearCustomRate(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	customer, err := s.getCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).
		Model(customer).
		Update("price_per_liter", nil).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to clear custom rate")
	}
	customer.PricePerLiter = nil
	return customer, nil
}

// ToggleActive flips a customer's active flag. Deactivation is the normal
// way a customer leaves; rows stay behind for history.
func (s *CustomerService) ToggleActive(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	customer, err := s.getCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	customer.IsActive = !customer.IsActive
	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// DeleteCustomer hard-deletes a customer and cascades to payments, bills
// and delivery entries in that order.
func (s *CustomerService) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	err := s.customerRepo.DeleteCascade(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Wrap(ErrNotFound, "customer does not exist")
	}
	if err != nil {
		return err
	}
	log.Info().Str("customer_id", id.String()).Msg("Customer deleted with cascade")
	return nil
}

// GetCustomer returns a customer by id
func (s *CustomerService) GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	return s.getCustomer(ctx, id)
}

func (s *CustomerService) getCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	customer, err := s.customerRepo.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(ErrNotFound, "customer does not exist")
	}
	if err != nil {
		return nil, err
	}
	return customer, nil
}

// ListCustomers lists customers with optional active filter and search term
func (s *CustomerService) ListCustomers(ctx context.Context, opts repositories.ListCustomersOptions) ([]models.Customer, error) {
	return s.customerRepo.List(ctx, opts)
}

// CustomerStats aggregates one customer's history.
type CustomerStats struct {
	TotalLiters  float64 `json:"total_liters"`
	DeliveryDays int     `json:"delivery_days"`
	TotalBilled  float64 `json:"total_billed"`
	TotalPaid    float64 `json:"total_paid"`
	Balance      float64 `json:"balance"`
}

// CustomerWithStats pairs a customer with their aggregate history.
type CustomerWithStats struct {
	Customer models.Customer `json:"customer"`
	Stats    CustomerStats   `json:"stats"`
}

// ListCustomersWithStats returns customers with lifetime totals: liters
// delivered, amount billed, amount paid and the outstanding balance.
func (s *CustomerService) ListCustomersWithStats(ctx context.Context, opts repositories.ListCustomersOptions) ([]CustomerWithStats, error) {
	q := s.db.WithContext(ctx).
		Preload("Bills.Payments").
		Preload("Deliveries").
		Order("name asc")
	if opts.Active != nil {
		q = q.Where("is_active = ?", *opts.Active)
	}
	if opts.Search != "" {
		pattern := "%" + opts.Search + "%"
		q = q.Where("name LIKE ? OR phone_number LIKE ?", pattern, pattern)
	}

	var customers []models.Customer
	if err := q.Find(&customers).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list customers with stats")
	}

	result := make([]CustomerWithStats, 0, len(customers))
	for _, customer := range customers {
		stats := CustomerStats{DeliveryDays: len(customer.Deliveries)}
		for _, entry := range customer.Deliveries {
			stats.TotalLiters += entry.TotalLiters
		}
		for _, bill := range customer.Bills {
			stats.TotalBilled += bill.TotalAmount
			for _, payment := range bill.Payments {
				stats.TotalPaid += payment.AmountPaid
			}
		}
		stats.Balance = stats.TotalBilled - stats.TotalPaid

		customer.Bills = nil
		customer.Deliveries = nil
		result = append(result, CustomerWithStats{Customer: customer, Stats: stats})
	}
	return result, nil
}
