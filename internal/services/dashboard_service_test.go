package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDashboardStats(t *testing.T) {
	db := newTestDB(t)
	dashboardSvc := NewDashboardService(db, nil)
	billingSvc := newTestBillingService(t, db)

	today := NormalizeDate(time.Now().UTC())
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)

	customer := createTestCustomer(t, db, "Asha", nil)
	inactive := createTestCustomer(t, db, "Binod", nil)
	require.NoError(t, db.Model(inactive).Update("is_active", false).Error)

	seedDelivery(t, db, customer.ID, today, 3.5)

	bills, _, err := billingSvc.GenerateBillsForPeriod(testCtx(), monthStart, monthEnd, nil)
	require.NoError(t, err)
	require.Len(t, bills, 1) // 210.00

	_, err = billingSvc.RecordPayment(testCtx(), bills[0].ID, 50, today, nil)
	require.NoError(t, err)

	stats, err := dashboardSvc.GetStats(testCtx())
	require.NoError(t, err)

	require.Equal(t, 3.5, stats.TodayLiters)
	require.EqualValues(t, 1, stats.TodayCustomers)
	require.Equal(t, 3.5, stats.MonthLiters)
	require.Equal(t, 50.0, stats.MonthCollected)
	require.Equal(t, 1, stats.ActiveCustomers)
	require.Equal(t, 1, stats.PendingBills)
	require.Equal(t, 160.0, stats.PendingAmount)
}
