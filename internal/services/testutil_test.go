package services

import (
	"context"
	"testing"
	"time"

	"example.com/dairydesk/services/billing/config"
	"example.com/dairydesk/services/billing/internal/metrics"
	"example.com/dairydesk/services/billing/internal/models"
	"example.com/dairydesk/services/billing/internal/repositories"
	"example.com/dairydesk/services/billing/internal/tracing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.SetupModels(db))
	return db
}

func newTestTracer(t *testing.T) tracing.Tracer {
	t.Helper()

	tracer, err := tracing.NewTracer(config.TracingConfig{})
	require.NoError(t, err)
	return tracer
}

func newTestBillingService(t *testing.T, db *gorm.DB) *BillingService {
	t.Helper()
	return NewBillingService(db, nil, nil, metrics.NewMetrics(), newTestTracer(t))
}

func createTestCustomer(t *testing.T, db *gorm.DB, name string, rate *float64) *models.Customer {
	t.Helper()

	customer := &models.Customer{
		ID:          uuid.New(),
		Name:        name,
		PhoneNumber: "+919876543210",
		PricePerLiter: rate,
		IsActive:    true,
		StartDate:   time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.Create(customer).Error)
	return customer
}

func seedDelivery(t *testing.T, db *gorm.DB, customerID uuid.UUID, date time.Time, liters float64) {
	t.Helper()

	entry := &models.DeliveryEntry{
		ID:          uuid.New(),
		CustomerID:  customerID,
		Date:        NormalizeDate(date),
		TotalLiters: liters,
	}
	require.NoError(t, db.Create(entry).Error)
}

func marchPeriod() (time.Time, time.Time) {
	return time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC)
}

func testCtx() context.Context {
	return context.Background()
}

func listAll() repositories.ListCustomersOptions {
	return repositories.ListCustomersOptions{}
}
