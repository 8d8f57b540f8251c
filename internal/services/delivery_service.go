package services

import (
	"context"
	"time"

	"example.com/dairydesk/services/billing/internal/models"
	"example.com/dairydesk/services/billing/internal/repositories"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// DeliveryService owns the daily delivery ledger.
type DeliveryService struct {
	db           *gorm.DB
	customerRepo *repositories.CustomerRepository
	deliveryRepo *repositories.DeliveryRepository
}

// NewDeliveryService creates a new delivery service
func NewDeliveryService(db *gorm.DB) *DeliveryService {
	return &DeliveryService{
		db:           db,
		customerRepo: repositories.NewCustomerRepository(db),
		deliveryRepo: repositories.NewDeliveryRepository(db),
	}
}

// DailyEntryInput is one customer's quantities for one day. The total is
// what the ledger stores; when the split values are present the caller has
// already summed them.
type DailyEntryInput struct {
	CustomerID    uuid.UUID
	MorningLiters *float64
	EveningLiters *float64
	TotalLiters   float64
	Notes         *string
}

// empty reports whether the input clears the day. A zero split value counts
// the same as an absent one, so a day form resubmitting zeros deletes the row.
func (in *DailyEntryInput) empty() bool {
	if in.TotalLiters != 0 {
		return false
	}
	morningEmpty := in.MorningLiters == nil || *in.MorningLiters == 0
	eveningEmpty := in.EveningLiters == nil || *in.EveningLiters == 0
	return morningEmpty && eveningEmpty
}

func (in *DailyEntryInput) validate() error {
	if in.TotalLiters < 0 {
		return errors.Wrap(ErrValidation, "total liters must not be negative")
	}
	if in.MorningLiters != nil && *in.MorningLiters < 0 {
		return errors.Wrap(ErrValidation, "morning liters must not be negative")
	}
	if in.EveningLiters != nil && *in.EveningLiters < 0 {
		return errors.Wrap(ErrValidation, "evening liters must not be negative")
	}
	return nil
}

// SaveDailyEntries upserts one day's entries in a single transaction.
// An all-zero/empty entry deletes the (customer, date) row instead of
// storing a tombstone.
func (s *DeliveryService) SaveDailyEntries(ctx context.Context, date time.Time, inputs []DailyEntryInput) ([]models.DeliveryEntry, error) {
	date = NormalizeDate(date)
	for i := range inputs {
		if err := inputs[i].validate(); err != nil {
			return nil, err
		}
	}

	var saved []models.DeliveryEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deliveries := repositories.NewDeliveryRepository(tx)
		for i := range inputs {
			input := &inputs[i]
			if input.empty() {
				if err := deliveries.DeleteByCustomerAndDate(ctx, input.CustomerID, date); err != nil {
					return err
				}
				continue
			}

			entry := &models.DeliveryEntry{
				ID:            uuid.New(),
				CustomerID:    input.CustomerID,
				Date:          date,
				MorningLiters: input.MorningLiters,
				EveningLiters: input.EveningLiters,
				TotalLiters:   input.TotalLiters,
				Notes:         input.Notes,
			}
			if err := deliveries.Upsert(ctx, entry); err != nil {
				return err
			}
			// an upsert that hit the (customer, date) conflict kept the
			// stored row's id, not the one generated above
			stored, err := deliveries.GetByCustomerAndDate(ctx, input.CustomerID, date)
			if err != nil {
				return err
			}
			saved = append(saved, *stored)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Time("date", date).
		Int("entries", len(saved)).
		Msg("Daily entries saved")
	return saved, nil
}

// DaySheetRow pairs an active customer with their entry for a date, if any.
type DaySheetRow struct {
	Customer models.Customer       `json:"customer"`
	Entry    *models.DeliveryEntry `json:"entry"`
}

// GetDaySheet returns every active customer with their entry for a date.
// Customers without an entry appear with a nil entry so the day form can
// render a complete roster.
func (s *DeliveryService) GetDaySheet(ctx context.Context, date time.Time) ([]DaySheetRow, error) {
	date = NormalizeDate(date)

	customers, err := s.customerRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := s.deliveryRepo.GetByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	entryByCustomer := make(map[uuid.UUID]*models.DeliveryEntry, len(entries))
	for i := range entries {
		entryByCustomer[entries[i].CustomerID] = &entries[i]
	}

	rows := make([]DaySheetRow, 0, len(customers))
	for _, customer := range customers {
		rows = append(rows, DaySheetRow{
			Customer: customer,
			Entry:    entryByCustomer[customer.ID],
		})
	}
	return rows, nil
}

// CopyPreviousDay returns the prior day's entries as inputs for the target
// date, so the operator can prefill a typical day.
func (s *DeliveryService) CopyPreviousDay(ctx context.Context, targetDate time.Time) ([]models.DeliveryEntry, error) {
	prev := NormalizeDate(targetDate).AddDate(0, 0, -1)
	return s.deliveryRepo.GetByDate(ctx, prev)
}

// DailySummary aggregates one day's ledger.
type DailySummary struct {
	TotalLiters   float64 `json:"total_liters"`
	CustomerCount int64   `json:"customer_count"`
}

// GetDailySummary sums the day's deliveries
func (s *DeliveryService) GetDailySummary(ctx context.Context, date time.Time) (*DailySummary, error) {
	date = NormalizeDate(date)

	total, err := s.deliveryRepo.SumForRange(ctx, date, date)
	if err != nil {
		return nil, err
	}
	count, err := s.deliveryRepo.CountForDate(ctx, date)
	if err != nil {
		return nil, err
	}
	return &DailySummary{TotalLiters: total, CustomerCount: count}, nil
}

// EntriesForPeriod returns one customer's entries over an inclusive range
func (s *DeliveryService) EntriesForPeriod(ctx context.Context, customerID uuid.UUID, start, end time.Time) ([]models.DeliveryEntry, error) {
	return s.deliveryRepo.GetForPeriod(ctx, customerID, NormalizeDate(start), NormalizeDate(end))
}

// NormalizeDate truncates a timestamp to UTC midnight. Delivery dates and
// billing periods are calendar days; storing them normalized keeps the
// (customer, date) key and period equality exact.
func NormalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
