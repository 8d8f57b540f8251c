package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"example.com/dairydesk/services/billing/config"
	"example.com/dairydesk/services/billing/internal/cache"
	"example.com/dairydesk/services/billing/internal/metrics"
	"example.com/dairydesk/services/billing/internal/search"
	"example.com/dairydesk/services/billing/internal/services"
	"example.com/dairydesk/services/billing/internal/tracing"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker that reconciles bill statuses against recorded payments`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
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

	g, ctx := errgroup.WithContext(ctx)

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

	// Status reconciliation guards against drift between payment rows
	// and the denormalized bill status.
	g.Go(func() error {
		log.Info().
			Dur("interval", cfg.Worker.ReconcileInterval).
			Msg("Starting bill status reconciliation job")

		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Worker.ReconcileInterval),
			gocron.NewTask(func() {
				if err := billingService.ReconcileStatuses(ctx); err != nil {
					log.Error().Err(err).Msg("Failed to reconcile bill statuses")
				}
			}),
		)
		if err != nil {
			return err
		}

		scheduler.Start()

		<-ctx.Done()

		return scheduler.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}
