package services

import (
	"context"
	"testing"

	"example.com/dairydesk/services/billing/internal/messaging"
	"example.com/dairydesk/services/billing/internal/metrics"
	"example.com/dairydesk/services/billing/internal/models"
	"example.com/dairydesk/services/billing/internal/render"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Mock sender for testing
type MockSender struct {
	mock.Mock
}

func (m *MockSender) SendDocument(ctx context.Context, creds messaging.Credentials, doc messaging.Document) (string, error) {
	args := m.Called(ctx, creds, doc)
	return args.String(0), args.Error(1)
}

func newTestDispatchService(t *testing.T, db *gorm.DB, sender messaging.Sender) (*DispatchService, *BillingService) {
	t.Helper()

	billingSvc := newTestBillingService(t, db)
	dispatchSvc := NewDispatchService(db, billingSvc, render.NewXLSXRenderer(), sender, metrics.NewMetrics(), newTestTracer(t))
	return dispatchSvc, billingSvc
}

func configureGateway(t *testing.T, db *gorm.DB) {
	t.Helper()

	svc := NewSettingsService(db)
	_, err := svc.UpdateSettings(testCtx(), UpdateSettingsInput{
		WhatsAppInstanceID: strPtr("instance-1"),
		WhatsAppAPIToken:   strPtr("token-1"),
	})
	require.NoError(t, err)
}

func TestSendBillMarksSent(t *testing.T) {
	db := newTestDB(t)
	sender := new(MockSender)
	dispatchSvc, billingSvc := newTestDispatchService(t, db, sender)
	start, end := marchPeriod()

	configureGateway(t, db)
	customer := createTestCustomer(t, db, "Asha", nil)
	seedDelivery(t, db, customer.ID, start, 10)

	bills, _, err := billingSvc.GenerateBillsForPeriod(testCtx(), start, end, nil)
	require.NoError(t, err)

	sender.On("SendDocument", mock.Anything, messaging.Credentials{
		InstanceID: "instance-1",
		APIToken:   "token-1",
	}, mock.MatchedBy(func(doc messaging.Document) bool {
		return doc.ChatID == "919876543210@c.us" && len(doc.Data) > 0
	})).Return("msg-abc", nil)

	bill, err := dispatchSvc.SendBill(testCtx(), bills[0].ID)
	require.NoError(t, err)
	require.Equal(t, models.BillStatusSent, bill.Status)
	require.Equal(t, "msg-abc", *bill.WhatsAppMsgID)

	sender.AssertExpectations(t)
}

func TestSendBillWithoutGatewayConfig(t *testing.T) {
	db := newTestDB(t)
	sender := new(MockSender)
	dispatchSvc, billingSvc := newTestDispatchService(t, db, sender)
	start, end := marchPeriod()

	customer := createTestCustomer(t, db, "Asha", nil)
	seedDelivery(t, db, customer.ID, start, 10)

	bills, _, err := billingSvc.GenerateBillsForPeriod(testCtx(), start, end, nil)
	require.NoError(t, err)

	_, err = dispatchSvc.SendBill(testCtx(), bills[0].ID)
	require.ErrorIs(t, err, ErrValidation)

	sender.AssertNotCalled(t, "SendDocument", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendAllBillsIsolatesFailures(t *testing.T) {
	db := newTestDB(t)
	sender := new(MockSender)
	dispatchSvc, billingSvc := newTestDispatchService(t, db, sender)
	start, end := marchPeriod()

	configureGateway(t, db)

	good := createTestCustomer(t, db, "Asha", nil)
	bad := createTestCustomer(t, db, "Binod", nil)
	require.NoError(t, db.Model(bad).Update("phone_number", "+919911223344").Error)
	seedDelivery(t, db, good.ID, start, 10)
	seedDelivery(t, db, bad.ID, start, 5)

	_, _, err := billingSvc.GenerateBillsForPeriod(testCtx(), start, end, nil)
	require.NoError(t, err)

	sender.On("SendDocument", mock.Anything, mock.Anything, mock.MatchedBy(func(doc messaging.Document) bool {
		return doc.ChatID == "919876543210@c.us"
	})).Return("msg-1", nil)
	sender.On("SendDocument", mock.Anything, mock.Anything, mock.MatchedBy(func(doc messaging.Document) bool {
		return doc.ChatID == "919911223344@c.us"
	})).Return("", errors.New("gateway timeout"))

	results, err := dispatchSvc.SendAllBills(testCtx(), start, end)
	require.NoError(t, err)
	require.Len(t, results, 2)

	var succeeded, failed int
	for _, result := range results {
		if result.Success {
			succeeded++
			require.Equal(t, "msg-1", result.MessageID)
		} else {
			failed++
			require.Contains(t, result.Error, "gateway timeout")
		}
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, 1, failed)

	// the failed bill stays sendable
	var statuses []models.BillStatus
	require.NoError(t, db.Model(&models.Bill{}).Order("created_at").Pluck("status", &statuses).Error)
	require.Contains(t, statuses, models.BillStatusSent)
	require.Contains(t, statuses, models.BillStatusGenerated)
}

func TestSendAllBillsSkipsPaidBills(t *testing.T) {
	db := newTestDB(t)
	sender := new(MockSender)
	dispatchSvc, billingSvc := newTestDispatchService(t, db, sender)
	start, end := marchPeriod()

	configureGateway(t, db)
	customer := createTestCustomer(t, db, "Asha", nil)
	seedDelivery(t, db, customer.ID, start, 10) // 600.00

	bills, _, err := billingSvc.GenerateBillsForPeriod(testCtx(), start, end, nil)
	require.NoError(t, err)
	_, err = billingSvc.RecordPayment(testCtx(), bills[0].ID, 600, start, nil)
	require.NoError(t, err)

	results, err := dispatchSvc.SendAllBills(testCtx(), start, end)
	require.NoError(t, err)
	require.Empty(t, results)

	sender.AssertNotCalled(t, "SendDocument", mock.Anything, mock.Anything, mock.Anything)
}
