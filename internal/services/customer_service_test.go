package services

import (
	"testing"
	"time"

	"example.com/dairydesk/services/billing/internal/models"

	"github.com/stretchr/testify/require"
)

func TestCreateCustomerNormalizesPhone(t *testing.T) {
	db := newTestDB(t)
	svc := NewCustomerService(db)

	customer, err := svc.CreateCustomer(testCtx(), CreateCustomerInput{
		Name:        "Asha",
		PhoneNumber: "98765 43210",
		StartDate:   time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Equal(t, "+919876543210", customer.PhoneNumber)
	require.True(t, customer.IsActive)
}

func TestCreateCustomerValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewCustomerService(db)
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.CreateCustomer(testCtx(), CreateCustomerInput{
		Name: "A", PhoneNumber: "9876543210", StartDate: start,
	})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateCustomer(testCtx(), CreateCustomerInput{
		Name: "Asha", PhoneNumber: "12345", StartDate: start,
	})
	require.ErrorIs(t, err, ErrValidation)

	badRate := -5.0
	_, err = svc.CreateCustomer(testCtx(), CreateCustomerInput{
		Name: "Asha", PhoneNumber: "9876543210", PricePerLiter: &badRate, StartDate: start,
	})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateCustomer(testCtx(), CreateCustomerInput{
		Name: "Asha", PhoneNumber: "9876543210",
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestUpdateCustomerPartial(t *testing.T) {
	db := newTestDB(t)
	svc := NewCustomerService(db)

	customer := createTestCustomer(t, db, "Asha", nil)

	newName := "Asha Devi"
	newRate := 58.0
	updated, err := svc.UpdateCustomer(testCtx(), customer.ID, UpdateCustomerInput{
		Name:          &newName,
		PricePerLiter: &newRate,
	})
	require.NoError(t, err)
	require.Equal(t, "Asha Devi", updated.Name)
	require.Equal(t, 58.0, *updated.PricePerLiter)
	// untouched fields survive
	require.Equal(t, customer.PhoneNumber, updated.PhoneNumber)
}

func TestClearCustomRate(t *testing.T) {
	db := newTestDB(t)
	svc := NewCustomerService(db)

	rate := 55.0
	customer := createTestCustomer(t, db, "Asha", &rate)

	updated, err := svc.ClearCustomRate(testCtx(), customer.ID)
	require.NoError(t, err)
	require.Nil(t, updated.PricePerLiter)

	var reloaded models.Customer
	require.NoError(t, db.First(&reloaded, "id = ?", customer.ID).Error)
	require.Nil(t, reloaded.PricePerLiter)
}

func TestToggleActive(t *testing.T) {
	db := newTestDB(t)
	svc := NewCustomerService(db)

	customer := createTestCustomer(t, db, "Asha", nil)

	updated, err := svc.ToggleActive(testCtx(), customer.ID)
	require.NoError(t, err)
	require.False(t, updated.IsActive)

	updated, err = svc.ToggleActive(testCtx(), customer.ID)
	require.NoError(t, err)
	require.True(t, updated.IsActive)
}

func TestDeleteCustomerCascades(t *testing.T) {
	db := newTestDB(t)
	customerSvc := NewCustomerService(db)
	billingSvc := newTestBillingService(t, db)
	start, end := marchPeriod()

	customer := createTestCustomer(t, db, "Asha", nil)
	keeper := createTestCustomer(t, db, "Binod", nil)
	seedDelivery(t, db, customer.ID, start, 10)
	seedDelivery(t, db, keeper.ID, start, 5)

	bills, _, err := billingSvc.GenerateBillsForPeriod(testCtx(), start, end, nil)
	require.NoError(t, err)
	require.Len(t, bills, 2)

	for _, bill := range bills {
		_, err = billingSvc.RecordPayment(testCtx(), bill.ID, 100, start, nil)
		require.NoError(t, err)
	}

	require.NoError(t, customerSvc.DeleteCustomer(testCtx(), customer.ID))

	// every dependent row of the deleted customer is gone
	var count int64
	require.NoError(t, db.Model(&models.Customer{}).Where("id = ?", customer.ID).Count(&count).Error)
	require.EqualValues(t, 0, count)
	require.NoError(t, db.Model(&models.DeliveryEntry{}).Where("customer_id = ?", customer.ID).Count(&count).Error)
	require.EqualValues(t, 0, count)
	require.NoError(t, db.Model(&models.Bill{}).Where("customer_id = ?", customer.ID).Count(&count).Error)
	require.EqualValues(t, 0, count)

	// the other customer's records are untouched
	require.NoError(t, db.Model(&models.Bill{}).Where("customer_id = ?", keeper.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
	require.NoError(t, db.Model(&models.Payment{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	require.ErrorIs(t, customerSvc.DeleteCustomer(testCtx(), customer.ID), ErrNotFound)
}

func TestListCustomersWithStats(t *testing.T) {
	db := newTestDB(t)
	customerSvc := NewCustomerService(db)
	billingSvc := newTestBillingService(t, db)
	start, end := marchPeriod()

	customer := createTestCustomer(t, db, "Asha", nil)
	seedDelivery(t, db, customer.ID, start, 6)
	seedDelivery(t, db, customer.ID, start.AddDate(0, 0, 1), 4) // 600.00 total

	bills, _, err := billingSvc.GenerateBillsForPeriod(testCtx(), start, end, nil)
	require.NoError(t, err)
	_, err = billingSvc.RecordPayment(testCtx(), bills[0].ID, 250, start, nil)
	require.NoError(t, err)

	rows, err := customerSvc.ListCustomersWithStats(testCtx(), listAll())
	require.NoError(t, err)
	require.Len(t, rows, 1)

	stats := rows[0].Stats
	require.Equal(t, 10.0, stats.TotalLiters)
	require.Equal(t, 2, stats.DeliveryDays)
	require.Equal(t, 600.0, stats.TotalBilled)
	require.Equal(t, 250.0, stats.TotalPaid)
	require.Equal(t, 350.0, stats.Balance)
}
