package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/jetriderentals/booking-api/cmd/mainconfig"
	"github.com/jetriderentals/booking-api/internal/api/router"
	"github.com/jetriderentals/booking-api/internal/app/bootstrap"
	appconfig "github.com/jetriderentals/booking-api/internal/config"
	"github.com/jetriderentals/booking-api/internal/http/handlers"
	httpmiddleware "github.com/jetriderentals/booking-api/internal/http/middleware"
	"github.com/jetriderentals/booking-api/internal/leads"
	"github.com/jetriderentals/booking-api/internal/notify"
	"github.com/jetriderentals/booking-api/internal/observability/metrics"
	"github.com/jetriderentals/booking-api/pkg/logging"
)

func main() {
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"lead_store", cfg.LeadStore,
		"mail_provider", cfg.MailProvider,
	)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsHandler, leadMetrics := setupMetrics()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	store, err := bootstrap.BuildLeadStore(ctx, cfg, redisClient, logger)
	if err != nil {
		logger.Error("failed to build lead store", "error", err)
		os.Exit(1)
	}

	ses, err := setupSES(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	notifier, err := bootstrap.BuildNotifier(cfg, ses, leadMetrics, logger)
	if err != nil {
		logger.Error("failed to build mail transport", "error", err)
		os.Exit(1)
	}
	defer notifier.Close()

	leadService, err := bootstrap.BuildLeadService(cfg, store, notifier.Service, leadMetrics, logger)
	if err != nil {
		logger.Error("failed to build lead service", "error", err)
		os.Exit(1)
	}

	formLimiter := httpmiddleware.NewRateLimiter(cfg.FormRatePerMinute, 0)
	go formLimiter.Run(ctx.Done(), 5*time.Minute)

	r := router.New(&router.Config{
		Logger:       logger,
		Health:       handlers.NewHealthHandler(healthChecks(redisClient), logger),
		LeadsHandler: leads.NewHandler(leadService, store, logger),
		AdminAuth: handlers.NewAdminAuthHandler(handlers.AdminAuthConfig{
			Email:     cfg.AdminEmail,
			Password:  cfg.AdminPassword,
			JWTSecret: cfg.AdminJWTSecret,
			TokenTTL:  cfg.AdminTokenTTL,
		}, logger),
		AdminNotifications: handlers.NewAdminNotificationsHandler(notifier.Service, logger),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		TrustProxyHeaders:  cfg.TrustProxyHeaders,
		FormRateLimiter:    formLimiter,
	})

	// WriteTimeout stays zero so the notification test stream is not cut off;
	// form routes carry their own timeout.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if err := leadService.Wait(shutdownCtx); err != nil {
		logger.Warn("notifications still in flight at shutdown", "error", err)
	}
	logger.Info("server stopped")
}

func setupMetrics() (http.Handler, *metrics.LeadMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewLeadMetrics(reg)
}

// setupSES only builds a client when SES is the selected provider.
func setupSES(ctx context.Context, cfg *appconfig.Config) (notify.SESAPI, error) {
	if cfg.MailProvider != "ses" {
		return nil, nil
	}
	client, err := mainconfig.NewSESClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func healthChecks(client *redis.Client) map[string]handlers.HealthCheck {
	if client == nil {
		return nil
	}
	return map[string]handlers.HealthCheck{
		"redis": func(ctx context.Context) error { return client.Ping(ctx).Err() },
	}
}
