package api

import (
	"context"
	"net/http"
	"time"

	"example.com/dairydesk/services/billing/config"
	"example.com/dairydesk/services/billing/internal/api/handlers"
	"example.com/dairydesk/services/billing/internal/metrics"
	"example.com/dairydesk/services/billing/internal/services"
	"example.com/dairydesk/services/billing/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Services bundles everything the HTTP layer exposes.
type Services struct {
	Billing   *services.BillingService
	Dispatch  *services.DispatchService
	Customers *services.CustomerService
	Delivery  *services.DeliveryService
	Settings  *services.SettingsService
	Dashboard *services.DashboardService
}

// Server represents the HTTP server
type Server struct {
	config     config.Config
	router     *gin.Engine
	httpServer *http.Server
	services   Services
	metrics    *metrics.Metrics
	tracer     tracing.Tracer
}

// NewServer creates a new HTTP server
func NewServer(cfg config.Config, svcs Services, metricsCollector *metrics.Metrics, tracer tracing.Tracer) *Server {
	server := &Server{
		config:   cfg,
		services: svcs,
		metrics:  metricsCollector,
		tracer:   tracer,
	}

	router := server.setupRouter()
	server.router = router

	httpServer := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      router,
		ReadTimeout:  cfg.ServerTimeout,
		WriteTimeout: cfg.ServerTimeout,
	}
	server.httpServer = httpServer

	return server
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	if s.config.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(gin.Recovery())

	v1 := router.Group("/api/v1")

	billingHandler := handlers.NewBillingHandler(s.services.Billing, s.services.Dispatch, s.tracer)
	billingHandler.RegisterRoutes(v1)

	customerHandler := handlers.NewCustomerHandler(s.services.Customers)
	customerHandler.RegisterRoutes(v1)

	deliveryHandler := handlers.NewDeliveryHandler(s.services.Delivery)
	deliveryHandler.RegisterRoutes(v1)

	settingsHandler := handlers.NewSettingsHandler(s.services.Settings)
	settingsHandler.RegisterRoutes(v1)

	dashboardHandler := handlers.NewDashboardHandler(s.services.Dashboard)
	dashboardHandler.RegisterRoutes(v1)

	webhookHandler := handlers.NewWebhookHandler(s.metrics)
	webhookHandler.RegisterRoutes(v1)

	metricsHandler := handlers.NewMetricsHandler(s.metrics, s.tracer)
	metricsHandler.RegisterRoutes(router)

	return router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.ServerAddress).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
