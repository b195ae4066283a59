package notify

import (
	"fmt"

	appconfig "github.com/jetriderentals/booking-api/internal/config"
	"github.com/jetriderentals/booking-api/pkg/logging"
)

// NewProvider selects the mail provider named by MAIL_PROVIDER. ses may be
// nil unless the ses provider is selected.
func NewProvider(cfg *appconfig.Config, ses SESAPI, logger *logging.Logger) (Provider, error) {
	switch cfg.MailProvider {
	case "", "log":
		return NewLogProvider(logger), nil
	case "resend":
		return NewResendProvider(ResendConfig{
			APIKey:    cfg.ResendAPIKey,
			BaseURL:   cfg.ResendBaseURL,
			FromEmail: cfg.MailFromEmail,
			FromName:  cfg.MailFromName,
			Timeout:   cfg.MailSendTimeout,
		}, logger), nil
	case "sendgrid":
		return NewSendGridProvider(SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.MailFromEmail,
			FromName:  cfg.MailFromName,
		}, logger), nil
	case "mailgun":
		return NewMailgunProvider(MailgunConfig{
			Domain:    cfg.MailgunDomain,
			APIKey:    cfg.MailgunAPIKey,
			APIBase:   cfg.MailgunAPIBase,
			FromEmail: cfg.MailFromEmail,
			FromName:  cfg.MailFromName,
		}, logger), nil
	case "ses":
		if ses == nil {
			return nil, fmt.Errorf("notify: ses: %w", ErrNotConfigured)
		}
		return NewSESProvider(ses, SESConfig{FromEmail: cfg.MailFromEmail, FromName: cfg.MailFromName}, logger), nil
	case "smtp":
		return NewSMTPProvider(SMTPConfig{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			Username:    cfg.SMTPUsername,
			Password:    cfg.SMTPPassword,
			TLSPolicy:   cfg.SMTPTLSPolicy,
			Timeout:     cfg.SMTPTimeout,
			MaxMessages: cfg.SMTPMaxMessages,
			FromEmail:   cfg.MailFromEmail,
			FromName:    cfg.MailFromName,
		}, logger), nil
	default:
		return nil, fmt.Errorf("notify: unknown mail provider %q", cfg.MailProvider)
	}
}

// NewTransportFromConfig wraps p with the MAIL_* transport settings.
func NewTransportFromConfig(p Provider, cfg *appconfig.Config, logger *logging.Logger) *Transport {
	return NewTransport(p, TransportConfig{
		MaxAttempts:    cfg.MailMaxAttempts,
		Backoff:        cfg.MailRetryBackoff,
		SendTimeout:    cfg.MailSendTimeout,
		MaxConcurrency: cfg.MailMaxConcurrency,
		RatePerSecond:  cfg.MailRatePerSecond,
	}, logger)
}
