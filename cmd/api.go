package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example.com/dairydesk/services/billing/config"
	"example.com/dairydesk/services/billing/internal/api"
	"example.com/dairydesk/services/billing/internal/cache"
	"example.com/dairydesk/services/billing/internal/messaging"
	"example.com/dairydesk/services/billing/internal/metrics"
	"example.com/dairydesk/services/billing/internal/models"
	"example.com/dairydesk/services/billing/internal/render"
	"example.com/dairydesk/services/billing/internal/search"
	"example.com/dairydesk/services/billing/internal/services"
	"example.com/dairydesk/services/billing/internal/tracing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long:  `Start the HTTP API server for deliveries, billing and dispatch`,
	RunE:  runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	db, err := initDatabase(cfg)
	if err != nil {
		return err
	}

	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
		redisCache = nil
	}

	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		return err
	}
	defer tracer.Close()

	elasticClient, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without indexing")
		elasticClient = nil
	}

	metricsCollector := metrics.NewMetrics()

	billingService := services.NewBillingService(db, redisCache, elasticClient, metricsCollector, tracer)
	dispatchService := services.NewDispatchService(
		db,
		billingService,
		render.NewXLSXRenderer(),
		messaging.NewGreenAPIClient(cfg.WhatsApp),
		metricsCollector,
		tracer,
	)

	server := api.NewServer(cfg, api.Services{
		Billing:   billingService,
		Dispatch:  dispatchService,
		Customers: services.NewCustomerService(db),
		Delivery:  services.NewDeliveryService(db),
		Settings:  services.NewSettingsService(db),
		Dashboard: services.NewDashboardService(db, redisCache),
	}, metricsCollector, tracer)

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
		}
	}()

	<-ctx.Done()

	if err := server.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Shutting down API server")
	return nil
}

func initDatabase(cfg config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DB.DSN), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	if err := models.SetupModels(db); err != nil {
		return nil, errors.Wrap(err, "failed to run migrations")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get underlying DB connection")
	}
	sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)
	if cfg.DB.ConnMaxLifetime == 0 {
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return db, nil
}
