package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/jetriderentals/booking-api/internal/observability/metrics"
	"github.com/jetriderentals/booking-api/pkg/logging"
)

// TransportConfig bounds how a Provider is driven.
type TransportConfig struct {
	MaxAttempts    int
	Backoff        time.Duration // attempt n waits n*Backoff before the next try
	SendTimeout    time.Duration // hard limit for a single attempt
	MaxConcurrency int
	RatePerSecond  float64 // <= 0 disables the limiter
}

// AttemptFunc observes each attempt; err is nil on success.
type AttemptFunc func(attempt int, err error)

// Transport wraps a Provider with a concurrency cap, a rate limit, a hard
// per-attempt timeout and bounded retries.
type Transport struct {
	provider Provider
	cfg      TransportConfig
	sem      *semaphore.Weighted
	limiter  *rate.Limiter
	logger   *logging.Logger
	metrics  *metrics.LeadMetrics
}

// NewTransport creates a transport with defaults for unset fields: 3
// attempts, 1s backoff, 30s timeout, concurrency 1.
func NewTransport(provider Provider, cfg TransportConfig, logger *logging.Logger) *Transport {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff < 0 {
		cfg.Backoff = 0
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 1
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	return &Transport{
		provider: provider,
		cfg:      cfg,
		sem:      semaphore.NewWeighted(int64(cfg.MaxConcurrency)),
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger,
	}
}

// WithMetrics attaches Prometheus collectors.
func (t *Transport) WithMetrics(m *metrics.LeadMetrics) *Transport {
	t.metrics = m
	return t
}

// ProviderName returns the wrapped provider's name.
func (t *Transport) ProviderName() string {
	return t.provider.Name()
}

// Send delivers msg and returns the provider's message id.
func (t *Transport) Send(ctx context.Context, msg EmailMessage) (string, error) {
	return t.SendWithProgress(ctx, msg, nil)
}

// SendWithProgress is Send with a hook called after every attempt.
func (t *Transport) SendWithProgress(ctx context.Context, msg EmailMessage, onAttempt AttemptFunc) (string, error) {
	var lastErr error
	attempt := 0
	for attempt < t.cfg.MaxAttempts {
		attempt++

		id, err := t.attempt(ctx, msg)
		if onAttempt != nil {
			onAttempt(attempt, err)
		}
		if err == nil {
			return id, nil
		}
		lastErr = err

		if ctx.Err() != nil || !Retryable(err) || attempt == t.cfg.MaxAttempts {
			break
		}
		t.logger.Warn("notify: send attempt failed, retrying",
			"provider", t.provider.Name(), "attempt", attempt, "error", err, "to", msg.To)
		if err := sleepCtx(ctx, time.Duration(attempt)*t.cfg.Backoff); err != nil {
			break
		}
	}
	return "", &TransportError{Provider: t.provider.Name(), Attempts: attempt, Err: lastErr}
}

type sendResult struct {
	id  string
	err error
}

// attempt runs one provider call under the concurrency cap and rate limit.
// The call runs on its own goroutine so a provider that ignores ctx cannot
// hold the caller past SendTimeout. That goroutine owns the semaphore slot
// until Send returns, so an abandoned call still counts against the cap.
func (t *Transport) attempt(ctx context.Context, msg EmailMessage) (string, error) {
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	if err := t.limiter.Wait(ctx); err != nil {
		t.sem.Release(1)
		return "", err
	}

	actx, cancel := context.WithTimeout(ctx, t.cfg.SendTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan sendResult, 1)
	go func() {
		defer t.sem.Release(1)
		id, err := t.provider.Send(actx, msg)
		done <- sendResult{id: id, err: err}
	}()

	var res sendResult
	select {
	case res = <-done:
		if res.err != nil && ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
			res.err = fmt.Errorf("%w after %s: %v", ErrTransportTimeout, t.cfg.SendTimeout, res.err)
		}
	case <-actx.Done():
		if err := ctx.Err(); err != nil {
			res.err = err
		} else {
			res.err = fmt.Errorf("%w after %s", ErrTransportTimeout, t.cfg.SendTimeout)
		}
	}

	t.metrics.ObserveSendAttempt(t.provider.Name(), attemptResult(res.err), time.Since(start).Seconds())
	return res.id, res.err
}

func attemptResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTransportTimeout):
		return "timeout"
	default:
		return "error"
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
