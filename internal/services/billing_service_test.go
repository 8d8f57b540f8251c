package services

import (
	"fmt"
	"testing"
	"time"

	"example.com/dairydesk/services/billing/internal/billing"
	"example.com/dairydesk/services/billing/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestGenerateBillsSkipsCustomersWithoutDeliveries(t *testing.T) {
	db := newTestDB(t)
	svc := newTestBillingService(t, db)
	start, end := marchPeriod()

	withMilk := createTestCustomer(t, db, "Asha", nil)
	createTestCustomer(t, db, "Binod", nil)

	seedDelivery(t, db, withMilk.ID, start, 2.5)
	seedDelivery(t, db, withMilk.ID, start.AddDate(0, 0, 1), 2.5)

	bills, failures, err := svc.GenerateBillsForPeriod(testCtx(), start, end, nil)
	require.NoError(t, err)
	require.Empty(t, failures)
	require.Len(t, bills, 1)
	require.Equal(t, withMilk.ID, bills[0].CustomerID)
	require.Equal(t, 5.0, bills[0].TotalLiters)

	var count int64
	require.NoError(t, db.Model(&models.Bill{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestGenerateBillsUsesCustomerRateOverride(t *testing.T) {
	db := newTestDB(t)
	svc := newTestBillingService(t, db)
	start, end := marchPeriod()

	override := 55.0
	customer := createTestCustomer(t, db, "Asha", &override)
	seedDelivery(t, db, customer.ID, start, 10)

	bills, _, err := svc.GenerateBillsForPeriod(testCtx(), start, end, nil)
	require.NoError(t, err)
	require.Len(t, bills, 1)
	require.Equal(t, 55.0, bills[0].PricePerLiter)
	require.Equal(t, 550.0, bills[0].TotalAmount)
}

func TestGenerateBillsRejectsInvertedPeriod(t *testing.T) {
	db := newTestDB(t)
	svc := newTestBillingService(t, db)
	start, end := marchPeriod()

	_, _, err := svc.GenerateBillsForPeriod(testCtx(), end, start, nil)
	require.ErrorIs(t, err, ErrValidation)
}

func TestGenerateBillsInvoiceNumbersAreSequential(t *testing.T) {
	db := newTestDB(t)
	svc := newTestBillingService(t, db)
	start, end := marchPeriod()

	for i := 0; i < 5; i++ {
		customer := createTestCustomer(t, db, fmt.Sprintf("Customer %d", i), nil)
		seedDelivery(t, db, customer.ID, start, 3)
	}

	bills, failures, err := svc.GenerateBillsForPeriod(testCtx(), start, end, nil)
	require.NoError(t, err)
	require.Empty(t, failures)
	require.Len(t, bills, 5)

	seen := make(map[string]bool)
	lastSeq := 0
	for _, bill := range bills {
		require.False(t, seen[bill.InvoiceNumber], "duplicate invoice number %s", bill.InvoiceNumber)
		seen[bill.InvoiceNumber] = true

		seq, ok := billing.InvoiceSequence(bill.InvoiceNumber)
		require.True(t, ok)
		require.Greater(t, seq, lastSeq)
		lastSeq = seq
	}
}

func TestInvoiceSequenceIsYearScoped(t *testing.T) {
	db := newTestDB(t)
	svc := newTestBillingService(t, db)
	marchStart, marchEnd := marchPeriod()

	customer := createTestCustomer(t, db, "Asha", nil)
	seedDelivery(t, db, customer.ID, marchStart, 3)

	bills, _, err := svc.GenerateBillsForPeriod(testCtx(), marchStart, marchEnd, nil)
	require.NoError(t, err)
	require.Equal(t, "INV-2025-03-001", bills[0].InvoiceNumber)

	// next month continues the same yearly counter
	aprilStart := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	aprilEnd := time.Date(2025, time.April, 30, 0, 0, 0, 0, time.UTC)
	seedDelivery(t, db, customer.ID, aprilStart, 3)

	bills, _, err = svc.GenerateBillsForPeriod(testCtx(), aprilStart, aprilEnd, nil)
	require.NoError(t, err)
	require.Equal(t, "INV-2025-04-002", bills[0].InvoiceNumber)
}

func TestRegenerationKeepsInvoiceNumber(t *testing.T) {
	db := newTestDB(t)
	svc := newTestBillingService(t, db)
	start, end := marchPeriod()

	customer := createTestCustomer(t, db, "Asha", nil)
	seedDelivery(t, db, customer.ID, start, 10)

	first, _, err := svc.GenerateBillsForPeriod(testCtx(), start, end, nil)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// a correction lands after the first run
	seedDelivery(t, db, customer.ID, start.AddDate(0, 0, 5), 4)

	second, _, err := svc.GenerateBillsForPeriod(testCtx(), start, end, nil)
	require.NoError(t, err)
	require.Len(t, second, 1)

	require.Equal(t, first[0].ID, second[0].ID)
	require.Equal(t, first[0].InvoiceNumber, second[0].InvoiceNumber)
	require.Equal(t, 14.0, second[0].TotalLiters)

	var count int64
	require.NoError(t, db.Model(&models.Bill{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestRegenerationRecomputesStatusFromPayments(t *testing.T) {
	db := newTestDB(t)
	svc := newTestBillingService(t, db)
	start, end := marchPeriod()

	customer := createTestCustomer(t, db, "Asha", nil)
	seedDelivery(t, db, customer.ID, start, 10) // 600.00 at default rate

	bills, _, err := svc.GenerateBillsForPeriod(testCtx(), start, end, nil)
	require.NoError(t, err)

	_, err = svc.RecordPayment(testCtx(), bills[0].ID, 600, start.AddDate(0, 0, 20), nil)
	require.NoError(t, err)

	// more liters recorded late: the bill grows, the payment no longer covers it
	seedDelivery(t, db, customer.ID, start.AddDate(0, 0, 10), 5)

	regenerated, _, err := svc.GenerateBillsForPeriod(testCtx(), start, end, nil)
	require.NoError(t, err)
	require.Equal(t, 900.0, regenerated[0].TotalAmount)
	require.Equal(t, models.BillStatusPartiallyPaid, regenerated[0].Status)
}

func TestRecordPaymentStatusTransitions(t *testing.T) {
	db := newTestDB(t)
	svc := newTestBillingService(t, db)
	start, end := marchPeriod()

	customer := createTestCustomer(t, db, "Asha", nil)
	seedDelivery(t, db, customer.ID, start, 10) // 600.00

	bills, _, err := svc.GenerateBillsForPeriod(testCtx(), start, end, nil)
	require.NoError(t, err)
	billID := bills[0].ID

	bill, err := svc.RecordPayment(testCtx(), billID, 400, start.AddDate(0, 0, 20), nil)
	require.NoError(t, err)
	require.Equal(t, models.BillStatusPartiallyPaid, bill.Status)
	require.Len(t, bill.Payments, 1)

	bill, err = svc.RecordPayment(testCtx(), billID, 200, start.AddDate(0, 0, 25), nil)
	require.NoError(t, err)
	require.Equal(t, models.BillStatusPaid, bill.Status)
	require.Len(t, bill.Payments, 2)
}

func TestRecordPaymentAcceptsOverpayment(t *testing.T) {
	db := newTestDB(t)
	svc := newTestBillingService(t, db)
	start, end := marchPeriod()

	customer := createTestCustomer(t, db, "Asha", nil)
	seedDelivery(t, db, customer.ID, start, 10) // 600.00

	bills, _, err := svc.GenerateBillsForPeriod(testCtx(), start, end, nil)
	require.NoError(t, err)

	bill, err := svc.RecordPayment(testCtx(), bills[0].ID, 1000, start.AddDate(0, 0, 20), nil)
	require.NoError(t, err)
	require.Equal(t, models.BillStatusPaid, bill.Status)
	require.Equal(t, 1000.0, bill.Payments[0].AmountPaid)
}

func TestRecordPaymentValidation(t *testing.T) {
	db := newTestDB(t)
	svc := newTestBillingService(t, db)
	start, end := marchPeriod()

	customer := createTestCustomer(t, db, "Asha", nil)
	seedDelivery(t, db, customer.ID, start, 10)

	bills, _, err := svc.GenerateBillsForPeriod(testCtx(), start, end, nil)
	require.NoError(t, err)

	_, err = svc.RecordPayment(testCtx(), bills[0].ID, 0, start, nil)
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.RecordPayment(testCtx(), bills[0].ID, -50, start, nil)
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.RecordPayment(testCtx(), uuid.New(), 100, start, nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMarkSentSetsStatusAndMessageID(t *testing.T) {
	db := newTestDB(t)
	svc := newTestBillingService(t, db)
	start, end := marchPeriod()

	customer := createTestCustomer(t, db, "Asha", nil)
	seedDelivery(t, db, customer.ID, start, 10)

	bills, _, err := svc.GenerateBillsForPeriod(testCtx(), start, end, nil)
	require.NoError(t, err)

	bill, err := svc.MarkSent(testCtx(), bills[0].ID, "msg-123")
	require.NoError(t, err)
	require.Equal(t, models.BillStatusSent, bill.Status)
	require.NotNil(t, bill.WhatsAppMsgID)
	require.Equal(t, "msg-123", *bill.WhatsAppMsgID)
	require.NotNil(t, bill.SentAt)

	_, err = svc.MarkSent(testCtx(), uuid.New(), "msg-456")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateManualBill(t *testing.T) {
	db := newTestDB(t)
	svc := newTestBillingService(t, db)
	start, end := marchPeriod()

	customer := createTestCustomer(t, db, "Asha", nil)

	bill, err := svc.CreateManualBill(testCtx(), customer.ID, start, end, 20, 55, nil)
	require.NoError(t, err)
	require.Equal(t, 1100.0, bill.TotalAmount)
	require.Equal(t, "INV-2025-03-001", bill.InvoiceNumber)
	require.Equal(t, models.BillStatusGenerated, bill.Status)

	_, err = svc.CreateManualBill(testCtx(), customer.ID, start, end, 0, 55, nil)
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateManualBill(testCtx(), uuid.New(), start, end, 20, 55, nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGenerateBillsForSingleInactiveCustomer(t *testing.T) {
	db := newTestDB(t)
	svc := newTestBillingService(t, db)
	start, end := marchPeriod()

	customer := createTestCustomer(t, db, "Asha", nil)
	seedDelivery(t, db, customer.ID, start, 10)
	require.NoError(t, db.Model(customer).Update("is_active", false).Error)

	bills, failures, err := svc.GenerateBillsForPeriod(testCtx(), start, end, &customer.ID)
	require.NoError(t, err)
	require.Empty(t, failures)
	require.Empty(t, bills)
}

func TestReconcileStatusesFixesDrift(t *testing.T) {
	db := newTestDB(t)
	svc := newTestBillingService(t, db)
	start, end := marchPeriod()

	customer := createTestCustomer(t, db, "Asha", nil)
	seedDelivery(t, db, customer.ID, start, 10) // 600.00

	bills, _, err := svc.GenerateBillsForPeriod(testCtx(), start, end, nil)
	require.NoError(t, err)

	_, err = svc.RecordPayment(testCtx(), bills[0].ID, 600, start.AddDate(0, 0, 20), nil)
	require.NoError(t, err)

	// force drift
	require.NoError(t, db.Model(&models.Bill{}).
		Where("id = ?", bills[0].ID).
		Update("status", models.BillStatusSent).Error)

	require.NoError(t, svc.ReconcileStatuses(testCtx()))

	bill, err := svc.GetBill(testCtx(), bills[0].ID)
	require.NoError(t, err)
	require.Equal(t, models.BillStatusPaid, bill.Status)
}

func TestAllocatorResumesAfterExistingNumbers(t *testing.T) {
	db := newTestDB(t)
	svc := newTestBillingService(t, db)
	start, end := marchPeriod()

	customer := createTestCustomer(t, db, "Asha", nil)

	// a bill already on file with a higher sequence
	other := createTestCustomer(t, db, "Binod", nil)
	_, err := svc.CreateManualBill(testCtx(), other.ID, start, end, 5, 60, nil)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Bill{}).
		Where("customer_id = ?", other.ID).
		Update("invoice_number", "INV-2025-03-041").Error)

	bill, err := svc.CreateManualBill(testCtx(), customer.ID, start, end, 5, 60, nil)
	require.NoError(t, err)
	require.Equal(t, "INV-2025-03-042", bill.InvoiceNumber)
}

func TestGenerateBillsIsolatesFailedCustomer(t *testing.T) {
	db := newTestDB(t)
	svc := newTestBillingService(t, db)
	start, end := marchPeriod()

	good := createTestCustomer(t, db, "Asha", nil)
	bad := createTestCustomer(t, db, "Binod", nil)
	seedDelivery(t, db, good.ID, start, 10)
	seedDelivery(t, db, bad.ID, start, 5)

	// make one customer's bill insert fail to prove the rest of the
	// batch still commits
	err := db.Callback().Create().Before("gorm:create").Register("reject_one_bill", func(tx *gorm.DB) {
		if bill, ok := tx.Statement.Dest.(*models.Bill); ok && bill.CustomerID == bad.ID {
			tx.AddError(errors.New("bill insert rejected"))
		}
	})
	require.NoError(t, err)

	bills, failures, err := svc.GenerateBillsForPeriod(testCtx(), start, end, nil)
	require.NoError(t, err)

	require.Len(t, bills, 1)
	require.Equal(t, good.ID, bills[0].CustomerID)

	require.Len(t, failures, 1)
	require.Equal(t, bad.ID, failures[0].CustomerID)
	require.Equal(t, "Binod", failures[0].CustomerName)
	require.Contains(t, failures[0].Error, "bill insert rejected")

	var stored []models.Bill
	require.NoError(t, db.Find(&stored).Error)
	require.Len(t, stored, 1)
	require.Equal(t, good.ID, stored[0].CustomerID)
}
