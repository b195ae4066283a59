package notify

import (
	"testing"

	appconfig "github.com/jetriderentals/booking-api/internal/config"
	"github.com/jetriderentals/booking-api/pkg/logging"
)

func TestNewProvider(t *testing.T) {
	cases := []struct {
		provider string
		want     string
	}{
		{"", "log"},
		{"log", "log"},
		{"resend", "resend"},
		{"sendgrid", "sendgrid"},
		{"mailgun", "mailgun"},
		{"ses", "ses"},
		{"smtp", "smtp"},
	}
	for _, tc := range cases {
		t.Run(tc.provider, func(t *testing.T) {
			cfg := &appconfig.Config{
				MailProvider:   tc.provider,
				MailFromEmail:  "noreply@jetriderentals.com",
				ResendAPIKey:   "re_test",
				SendGridAPIKey: "SG.test",
				MailgunDomain:  "mg.jetriderentals.com",
				MailgunAPIKey:  "key-test",
				SMTPHost:       "smtp.example.com",
				SMTPPort:       587,
			}
			p, err := NewProvider(cfg, &fakeSES{}, logging.Discard())
			if err != nil {
				t.Fatalf("NewProvider: %v", err)
			}
			if p.Name() != tc.want {
				t.Fatalf("Name() = %q, want %q", p.Name(), tc.want)
			}
		})
	}
}

func TestNewProvider_Errors(t *testing.T) {
	if _, err := NewProvider(&appconfig.Config{MailProvider: "pigeon"}, nil, logging.Discard()); err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if _, err := NewProvider(&appconfig.Config{MailProvider: "ses"}, nil, logging.Discard()); err == nil {
		t.Fatal("expected error for ses without a client")
	}
}

func TestNewTransportFromConfig(t *testing.T) {
	cfg := &appconfig.Config{MailMaxAttempts: 5, MailMaxConcurrency: 2}
	tr := NewTransportFromConfig(NewLogProvider(nil), cfg, nil)
	if tr.cfg.MaxAttempts != 5 || tr.cfg.MaxConcurrency != 2 {
		t.Fatalf("unexpected transport config %+v", tr.cfg)
	}
	if tr.ProviderName() != "log" {
		t.Fatalf("ProviderName() = %q", tr.ProviderName())
	}
}
