package notify

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrTransportTimeout is returned when a send attempt outlives
	// MAIL_SEND_TIMEOUT, whether or not the provider honoured its context.
	ErrTransportTimeout = errors.New("notify: send timed out")

	// ErrNotConfigured is returned by providers built without credentials.
	ErrNotConfigured = errors.New("notify: provider not configured")
)

// APIError is a non-2xx answer from an HTTPS mail API. The API accepted the
// connection and rejected the message, so it is not retried.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notify: %s api returned status %d: %s", e.Provider, e.StatusCode, snippet(e.Body))
}

// SMTPError carries the server reply code. Temporary is true for 4xx
// replies, which covers rate limiting (421, 450, 451, 452).
type SMTPError struct {
	Code      int
	Temporary bool
	Err       error
}

func (e *SMTPError) Error() string {
	if e.Code == 0 {
		return fmt.Sprintf("notify: smtp: %v", e.Err)
	}
	return fmt.Sprintf("notify: smtp %d: %v", e.Code, e.Err)
}

func (e *SMTPError) Unwrap() error { return e.Err }

// AuthFailed reports whether the server rejected the credentials.
func (e *SMTPError) AuthFailed() bool { return e.Code == 535 || e.Code == 534 }

// RateLimited reports whether the server asked us to slow down.
func (e *SMTPError) RateLimited() bool {
	switch e.Code {
	case 421, 450, 451, 452:
		return true
	}
	return false
}

// TransportError is the final outcome of a send that exhausted its attempts
// or hit a non-retryable failure.
type TransportError struct {
	Provider string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("notify: %s send failed after %d attempt(s): %v", e.Provider, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Retryable reports whether another attempt could succeed without risking a
// duplicate. API rejections, permanent SMTP replies and configuration
// problems are final. So are timeouts: the provider may still have accepted
// the message. Network errors and temporary SMTP replies are retried.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrNotConfigured) {
		return false
	}
	if errors.Is(err, ErrTransportTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return false
	}
	var smtpErr *SMTPError
	if errors.As(err, &smtpErr) {
		if smtpErr.Code == 0 {
			return true
		}
		return smtpErr.Temporary
	}
	// network errors and anything unclassified
	return true
}

func snippet(s string) string {
	const max = 256
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
