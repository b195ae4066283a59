package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/jetriderentals/booking-api/internal/config"
	"github.com/jetriderentals/booking-api/internal/leads"
	"github.com/jetriderentals/booking-api/internal/notify"
	"github.com/jetriderentals/booking-api/internal/observability/metrics"
	"github.com/jetriderentals/booking-api/internal/sheets"
	"github.com/jetriderentals/booking-api/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available, lead listing cache disabled", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildLeadStore selects the lead store named by LEAD_STORE and fronts it with
// the listing cache. redisClient may be nil.
func BuildLeadStore(ctx context.Context, cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) (leads.Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	var inner leads.Store
	switch cfg.LeadStore {
	case "memory":
		logger.Warn("using in-memory lead store; leads are lost on restart")
		inner = leads.NewInMemoryStore()
	case "", "sheets":
		store, err := sheets.New(ctx, sheets.Config{
			SpreadsheetID: cfg.GoogleSheetID,
			ClientEmail:   cfg.GoogleClientEmail,
			PrivateKey:    cfg.GooglePrivateKey,
			Endpoint:      cfg.GoogleSheetsBaseURL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: sheets store: %w", err)
		}
		inner = store
	default:
		return nil, fmt.Errorf("bootstrap: unknown lead store %q", cfg.LeadStore)
	}

	if redisClient == nil {
		return inner, nil
	}
	return leads.NewCachedStore(inner, redisClient, cfg.LeadsCacheTTL, logger), nil
}

// Notifier bundles the notification service with the provider behind it so
// the caller can release provider resources at shutdown.
type Notifier struct {
	Service  *notify.Service
	Provider notify.Provider
}

// Close releases pooled provider connections.
func (n *Notifier) Close() error {
	if closer, ok := n.Provider.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// BuildNotifier wires the mail provider, transport and notification service.
// ses is only consulted when MAIL_PROVIDER=ses.
func BuildNotifier(cfg *appconfig.Config, ses notify.SESAPI, m *metrics.LeadMetrics, logger *logging.Logger) (*Notifier, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	provider, err := notify.NewProvider(cfg, ses, logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: mail provider: %w", err)
	}
	transport := notify.NewTransportFromConfig(provider, cfg, logger).WithMetrics(m)
	svc := notify.NewService(notify.NewComposer(cfg.BusinessName), transport, cfg.NotifyRecipients, logger).WithMetrics(m)

	if len(cfg.NotifyRecipients) == 0 {
		logger.Warn("NOTIFY_RECIPIENTS is empty; submissions will be stored without email notification")
	}
	logger.Info("mail transport configured",
		"provider", provider.Name(),
		"recipients", len(cfg.NotifyRecipients),
		"max_attempts", cfg.MailMaxAttempts,
	)
	return &Notifier{Service: svc, Provider: provider}, nil
}

// BuildLeadService wires the validator and orchestrator.
func BuildLeadService(cfg *appconfig.Config, store leads.LeadStore, notifier leads.Notifier, m *metrics.LeadMetrics, logger *logging.Logger) (*leads.Service, error) {
	loc, err := time.LoadLocation(cfg.BusinessTimezone)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: business timezone: %w", err)
	}
	validator := leads.NewValidator(cfg.StrictEmail, loc, logger)
	return leads.NewService(validator, store, notifier, logger).
		WithMetrics(m).
		WithNotifyTimeout(cfg.NotifyTimeout), nil
}
