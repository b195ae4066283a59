package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/mailgun/mailgun-go/v4"

	"github.com/jetriderentals/booking-api/pkg/logging"
)

// MailgunConfig holds configuration for Mailgun.
type MailgunConfig struct {
	Domain    string
	APIKey    string
	APIBase   string // e.g. https://api.eu.mailgun.net/v3
	FromEmail string
	FromName  string
}

// MailgunProvider sends emails through the Mailgun messages API.
type MailgunProvider struct {
	client *mailgun.MailgunImpl
	from   string
	logger *logging.Logger
}

// NewMailgunProvider creates a Mailgun provider. Missing domain or key yields
// a provider whose sends fail with ErrNotConfigured.
func NewMailgunProvider(cfg MailgunConfig, logger *logging.Logger) *MailgunProvider {
	if logger == nil {
		logger = logging.Default()
	}
	from := cfg.FromEmail
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail)
	}
	p := &MailgunProvider{from: from, logger: logger}
	if cfg.Domain == "" || cfg.APIKey == "" {
		return p
	}
	p.client = mailgun.NewMailgun(cfg.Domain, cfg.APIKey)
	if cfg.APIBase != "" {
		p.client.SetAPIBase(cfg.APIBase)
	}
	return p
}

func (p *MailgunProvider) Name() string { return "mailgun" }

func (p *MailgunProvider) Send(ctx context.Context, msg EmailMessage) (string, error) {
	if p.client == nil {
		return "", fmt.Errorf("notify: mailgun: %w", ErrNotConfigured)
	}
	m := p.client.NewMessage(p.from, msg.Subject, msg.Text, msg.To)
	if msg.HTML != "" {
		m.SetHtml(msg.HTML)
	}

	status, id, err := p.client.Send(ctx, m)
	if err != nil {
		var unexpected *mailgun.UnexpectedResponseError
		if errors.As(err, &unexpected) && unexpected.Actual >= 400 && unexpected.Actual < 500 {
			return "", &APIError{Provider: p.Name(), StatusCode: unexpected.Actual, Body: string(unexpected.Data)}
		}
		return "", fmt.Errorf("notify: mailgun send failed: %w", err)
	}
	p.logger.Debug("email queued via mailgun", "to", msg.To, "status", status, "message_id", id)
	return id, nil
}

var _ Provider = (*MailgunProvider)(nil)
