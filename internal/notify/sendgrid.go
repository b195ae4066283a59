package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/jetriderentals/booking-api/pkg/logging"
)

// SendGridProvider sends emails via the SendGrid v3 API.
type SendGridProvider struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// SendGridConfig holds configuration for SendGrid.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	// BaseURL overrides https://api.sendgrid.com, used by tests.
	BaseURL string
}

// NewSendGridProvider creates a SendGrid provider. An empty API key yields a
// provider whose sends fail with ErrNotConfigured.
func NewSendGridProvider(cfg SendGridConfig, logger *logging.Logger) *SendGridProvider {
	if logger == nil {
		logger = logging.Default()
	}
	p := &SendGridProvider{
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
	if cfg.APIKey == "" {
		return p
	}
	p.client = sendgrid.NewSendClient(cfg.APIKey)
	if cfg.BaseURL != "" {
		p.client.Request.BaseURL = strings.TrimRight(cfg.BaseURL, "/") + "/v3/mail/send"
	}
	return p
}

func (s *SendGridProvider) Name() string { return "sendgrid" }

// Send sends an email via SendGrid.
func (s *SendGridProvider) Send(ctx context.Context, msg EmailMessage) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("notify: sendgrid: %w", ErrNotConfigured)
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Text, msg.HTML)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return "", fmt.Errorf("notify: sendgrid send failed: %w", err)
	}

	if response.StatusCode >= 400 {
		s.logger.Error("sendgrid returned error status", "status", response.StatusCode, "body", response.Body, "to", msg.To)
		return "", &APIError{Provider: s.Name(), StatusCode: response.StatusCode, Body: response.Body}
	}

	var id string
	if ids := response.Headers["X-Message-Id"]; len(ids) > 0 {
		id = ids[0]
	}
	return id, nil
}

var _ Provider = (*SendGridProvider)(nil)
