package leads

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jetriderentals/booking-api/internal/observability/metrics"
	"github.com/jetriderentals/booking-api/pkg/logging"
)

// Notifier delivers the operator notification for a stored submission.
type Notifier interface {
	NotifySubmission(ctx context.Context, sub Submission) error
}

const (
	msgInquiryOK       = "Thank you! Your inquiry has been submitted successfully. We will contact you soon."
	msgBookingOK       = "Thank you! Your booking has been submitted successfully. We will contact you soon to confirm your reservation."
	msgInquiryStoreErr = "Sorry, there was an error submitting your inquiry. Please try again later."
	msgBookingStoreErr = "Sorry, there was an error submitting your booking. Please try again later."
	msgUnexpected      = "An unexpected error occurred. Please try again later."
)

// Service runs a submission through validation, the lead store and the
// background notification.
//
// Notification delivery is at-most-once and best effort: it runs on its own
// goroutine after the store write succeeds, and its outcome is only logged.
type Service struct {
	validator     *Validator
	store         LeadStore
	notifier      Notifier
	logger        *logging.Logger
	metrics       *metrics.LeadMetrics
	tracer        trace.Tracer
	notifyTimeout time.Duration

	inflight sync.WaitGroup
}

// NewService wires the orchestrator. notifier may be nil, in which case no
// notification is attempted.
func NewService(validator *Validator, store LeadStore, notifier Notifier, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if validator == nil {
		validator = NewValidator(false, time.UTC, logger)
	}
	return &Service{
		validator:     validator,
		store:         store,
		notifier:      notifier,
		logger:        logger,
		tracer:        otel.Tracer("github.com/jetriderentals/booking-api/internal/leads"),
		notifyTimeout: 2 * time.Minute,
	}
}

// WithMetrics attaches Prometheus collectors.
func (s *Service) WithMetrics(m *metrics.LeadMetrics) *Service {
	s.metrics = m
	return s
}

// WithNotifyTimeout bounds a single background notification run.
func (s *Service) WithNotifyTimeout(d time.Duration) *Service {
	if d > 0 {
		s.notifyTimeout = d
	}
	return s
}

// Submit validates and stores a submission, then schedules the operator
// notification without waiting for it. The returned Result is always safe to
// show to the user; the error carries the detail (*ValidationError,
// *StoreError or ErrConfiguration).
func (s *Service) Submit(ctx context.Context, kind Kind, payload Payload) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "leads.Submit", trace.WithAttributes(attribute.String("lead.kind", string(kind))))
	defer span.End()

	sub, err := s.validator.Validate(kind, payload)
	if err != nil {
		verr, _ := IsValidation(err)
		span.SetAttributes(attribute.String("lead.rejected", string(verr.Code)))
		s.metrics.ObserveSubmission(string(kind), "rejected")
		s.logger.Info("leads: submission rejected", "kind", kind, "code", verr.Code)
		return Result{Success: false, Message: verr.Message}, err
	}

	if s.store == nil {
		span.SetStatus(codes.Error, "no lead store")
		s.metrics.ObserveSubmission(string(kind), "config_error")
		return Result{Success: false, Message: msgUnexpected}, ErrConfiguration
	}

	start := time.Now()
	ack, err := s.store.Append(ctx, sub)
	s.metrics.ObserveStoreLatency(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lead store append failed")
		if errors.Is(err, ErrConfiguration) {
			s.metrics.ObserveSubmission(string(kind), "config_error")
			s.logger.Error("leads: lead store misconfigured", "error", err, "kind", kind)
			return Result{Success: false, Message: msgUnexpected}, err
		}
		s.metrics.ObserveSubmission(string(kind), "store_error")
		s.logger.Error("leads: failed to store submission", "error", err, "kind", kind, "name", sub.Name)
		var serr *StoreError
		if !errors.As(err, &serr) {
			err = &StoreError{Op: "append", Err: err}
		}
		return Result{Success: false, Message: storeFailureMessage(kind)}, err
	}

	s.logger.Info("leads: submission stored", "kind", kind, "range", ack.UpdatedRange, "rows", ack.UpdatedRows)
	s.metrics.ObserveSubmission(string(kind), "success")
	s.dispatch(ctx, sub)

	return Result{Success: true, Message: successMessage(kind)}, nil
}

// dispatch runs the notifier on its own goroutine. The context keeps the
// request's trace values but not its cancellation, so the send outlives the
// HTTP response.
func (s *Service) dispatch(ctx context.Context, sub Submission) {
	if s.notifier == nil {
		return
	}
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("leads: notification panicked", "panic", r, "kind", sub.Kind)
			}
		}()

		nctx, span := s.tracer.Start(bg, "leads.notify")
		defer span.End()

		if err := s.notifier.NotifySubmission(nctx, sub); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "notification failed")
			s.logger.Error("leads: notification failed", "error", err, "kind", sub.Kind, "name", sub.Name)
			return
		}
		s.logger.Info("leads: notification dispatched", "kind", sub.Kind, "name", sub.Name)
	}()
}

// Wait blocks until in-flight notifications finish or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func successMessage(kind Kind) string {
	if kind == KindBooking {
		return msgBookingOK
	}
	return msgInquiryOK
}

func storeFailureMessage(kind Kind) string {
	if kind == KindBooking {
		return msgBookingStoreErr
	}
	return msgInquiryStoreErr
}
