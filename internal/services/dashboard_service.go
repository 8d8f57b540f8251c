package services

import (
	"context"
	"time"

	"example.com/dairydesk/services/billing/internal/billing"
	"example.com/dairydesk/services/billing/internal/cache"
	"example.com/dairydesk/services/billing/internal/repositories"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const dashboardCacheTTL = 60 * time.Second

// DashboardStats is the at-a-glance summary shown on the home screen.
type DashboardStats struct {
	TodayLiters     float64 `json:"today_liters"`
	TodayCustomers  int64   `json:"today_customers"`
	MonthLiters     float64 `json:"month_liters"`
	MonthCollected  float64 `json:"month_collected"`
	ActiveCustomers int     `json:"active_customers"`
	PendingBills    int     `json:"pending_bills"`
	PendingAmount   float64 `json:"pending_amount"`
}

// DashboardService aggregates today's and this month's activity.
type DashboardService struct {
	customerRepo *repositories.CustomerRepository
	deliveryRepo *repositories.DeliveryRepository
	billRepo     *repositories.BillRepository
	paymentRepo  *repositories.PaymentRepository
	cache        *cache.RedisCache
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(db *gorm.DB, redisCache *cache.RedisCache) *DashboardService {
	return &DashboardService{
		customerRepo: repositories.NewCustomerRepository(db),
		deliveryRepo: repositories.NewDeliveryRepository(db),
		billRepo:     repositories.NewBillRepository(db),
		paymentRepo:  repositories.NewPaymentRepository(db),
		cache:        redisCache,
	}
}

// GetStats returns the dashboard summary, served from cache when fresh.
func (s *DashboardService) GetStats(ctx context.Context) (*DashboardStats, error) {
	if s.cache != nil {
		var cached DashboardStats
		if err := s.cache.Get(ctx, cache.DashboardStatsKey(), &cached); err == nil {
			return &cached, nil
		}
	}

	stats, err := s.computeStats(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cache.DashboardStatsKey(), stats, dashboardCacheTTL); err != nil {
			log.Debug().Err(err).Msg("Failed to cache dashboard stats")
		}
	}
	return stats, nil
}

func (s *DashboardService) computeStats(ctx context.Context) (*DashboardStats, error) {
	today := NormalizeDate(time.Now().UTC())
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)

	stats := &DashboardStats{}

	var err error
	if stats.TodayLiters, err = s.deliveryRepo.SumForRange(ctx, today, today); err != nil {
		return nil, err
	}
	if stats.TodayCustomers, err = s.deliveryRepo.CountForDate(ctx, today); err != nil {
		return nil, err
	}
	if stats.MonthLiters, err = s.deliveryRepo.SumForRange(ctx, monthStart, monthEnd); err != nil {
		return nil, err
	}
	if stats.MonthCollected, err = s.paymentRepo.SumForRange(ctx, monthStart, monthEnd); err != nil {
		return nil, err
	}

	active, err := s.customerRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	stats.ActiveCustomers = len(active)

	pending, err := s.billRepo.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	stats.PendingBills = len(pending)
	for _, bill := range pending {
		var paid float64
		for _, p := range bill.Payments {
			paid += p.AmountPaid
		}
		outstanding := bill.TotalAmount - paid
		if outstanding > 0 {
			stats.PendingAmount += outstanding
		}
	}
	stats.PendingAmount = billing.RoundMoney(stats.PendingAmount)
	stats.MonthCollected = billing.RoundMoney(stats.MonthCollected)

	return stats, nil
}
