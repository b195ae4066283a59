package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jetriderentals/booking-api/internal/leads"
	"github.com/jetriderentals/booking-api/internal/observability/metrics"
	"github.com/jetriderentals/booking-api/pkg/logging"
)

// Service sends operator notifications for stored submissions.
type Service struct {
	composer   *Composer
	transport  *Transport
	recipients []string
	validate   *validator.Validate
	logger     *logging.Logger
	metrics    *metrics.LeadMetrics
}

// NewService creates a notification service.
func NewService(composer *Composer, transport *Transport, recipients []string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if composer == nil {
		composer = NewComposer("")
	}
	cleaned := make([]string, 0, len(recipients))
	for _, r := range recipients {
		if r = strings.TrimSpace(r); r != "" {
			cleaned = append(cleaned, r)
		}
	}
	return &Service{
		composer:   composer,
		transport:  transport,
		recipients: cleaned,
		validate:   validator.New(),
		logger:     logger,
	}
}

// WithMetrics attaches Prometheus collectors.
func (s *Service) WithMetrics(m *metrics.LeadMetrics) *Service {
	s.metrics = m
	return s
}

// NotifySubmission emails every configured recipient. It returns the joined
// per-recipient failures.
func (s *Service) NotifySubmission(ctx context.Context, sub leads.Submission) error {
	if s.transport == nil {
		return errors.New("notify: mail transport not configured")
	}
	if len(s.recipients) == 0 {
		s.logger.Warn("notify: no recipients configured, skipping notification", "kind", sub.Kind)
		return nil
	}

	n, err := s.composer.Compose(sub)
	if err != nil {
		return err
	}

	provider := s.transport.ProviderName()
	var errs []error
	for _, recipient := range s.recipients {
		id, err := s.transport.Send(ctx, EmailMessage{
			To:      recipient,
			Subject: n.Subject,
			HTML:    n.HTML,
			Text:    n.Text,
		})
		s.metrics.ObserveNotification(provider, err == nil)
		if err != nil {
			s.logger.Error("notify: email failed", append(errorDetail(err), "provider", provider, "to", recipient, "kind", sub.Kind)...)
			errs = append(errs, fmt.Errorf("notify: %s: %w", recipient, err))
			continue
		}
		s.logger.Info("notify: email sent", "provider", provider, "to", recipient, "message_id", id, "kind", sub.Kind)
	}
	return errors.Join(errs...)
}

// errorDetail flattens the provider-specific parts of a send failure into
// log attributes.
func errorDetail(err error) []any {
	attrs := []any{"error", err}
	var terr *TransportError
	if errors.As(err, &terr) {
		attrs = append(attrs, "attempts", terr.Attempts)
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		attrs = append(attrs, "status", apiErr.StatusCode, "response", snippet(apiErr.Body))
	}
	var smtpErr *SMTPError
	if errors.As(err, &smtpErr) {
		attrs = append(attrs, "smtp_code", smtpErr.Code, "auth_failed", smtpErr.AuthFailed(), "rate_limited", smtpErr.RateLimited())
	}
	if errors.Is(err, ErrTransportTimeout) {
		attrs = append(attrs, "timeout", true)
	}
	return attrs
}

// Step is one stage of a diagnostic test send.
type Step struct {
	Name    string `json:"step"`
	Message string `json:"message"`
	Attempt int    `json:"attempt,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// Diagnostic step names, in the order they are reported.
const (
	StepInit     = "init"
	StepValidate = "validate"
	StepPrepare  = "prepare"
	StepAttempt  = "attempt"
	StepSuccess  = "success"
	StepError    = "error"
)

// SendTest sends a test email to `to`, reporting each stage to progress. The
// final step is always success or error.
func (s *Service) SendTest(ctx context.Context, to string, progress func(Step)) (string, error) {
	report := func(st Step) {
		if progress != nil {
			progress(st)
		}
	}
	fail := func(err error) (string, error) {
		report(Step{Name: StepError, Message: "Test email failed", Detail: err.Error()})
		return "", err
	}

	if s.transport == nil {
		return fail(errors.New("notify: mail transport not configured"))
	}
	report(Step{Name: StepInit, Message: "Using provider " + s.transport.ProviderName()})

	to = strings.TrimSpace(to)
	if to == "" && len(s.recipients) > 0 {
		to = s.recipients[0]
	}
	if err := s.validate.Var(to, "required,email"); err != nil {
		return fail(fmt.Errorf("notify: invalid recipient %q", to))
	}
	report(Step{Name: StepValidate, Message: "Recipient " + to + " looks valid"})

	msg := EmailMessage{
		To:      to,
		Subject: "Test email - " + s.composer.businessName,
		HTML:    "<p>This is a test email from the " + html.EscapeString(s.composer.businessName) + " booking service.</p>",
		Text:    "This is a test email from the " + s.composer.businessName + " booking service.",
	}
	report(Step{Name: StepPrepare, Message: "Message prepared"})

	id, err := s.transport.SendWithProgress(ctx, msg, func(attempt int, err error) {
		st := Step{Name: StepAttempt, Attempt: attempt, Message: fmt.Sprintf("Attempt %d succeeded", attempt)}
		if err != nil {
			st.Message = fmt.Sprintf("Attempt %d failed", attempt)
			st.Detail = err.Error()
		}
		report(st)
	})
	if err != nil {
		s.logger.Error("notify: test email failed", append(errorDetail(err), "to", to)...)
		return fail(err)
	}
	report(Step{Name: StepSuccess, Message: "Test email sent", Detail: id})
	return id, nil
}
