package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	BusinessName       string
	BusinessTimezone   string
	CORSAllowedOrigins []string
	FormRatePerMinute  int

	// TrustProxyHeaders takes the client IP from X-Forwarded-For/X-Real-IP.
	// Only enable behind a proxy that overwrites those headers.
	TrustProxyHeaders bool

	// Lead store
	LeadStore           string
	GoogleSheetID       string
	GoogleClientEmail   string
	GooglePrivateKey    string
	GoogleSheetsBaseURL string
	StrictEmail         bool
	LeadsCacheTTL       time.Duration
	RedisAddr           string
	RedisPassword       string
	RedisTLS            bool

	// Mail transport
	MailProvider       string
	MailFromEmail      string
	MailFromName       string
	MailMaxAttempts    int
	MailRetryBackoff   time.Duration
	MailSendTimeout    time.Duration
	MailMaxConcurrency int
	MailRatePerSecond  float64
	NotifyRecipients   []string
	NotifyTimeout      time.Duration

	ResendAPIKey  string
	ResendBaseURL string

	SendGridAPIKey string

	MailgunDomain  string
	MailgunAPIKey  string
	MailgunAPIBase string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	SMTPHost        string
	SMTPPort        int
	SMTPUsername    string
	SMTPPassword    string
	SMTPTLSPolicy   string
	SMTPTimeout     time.Duration
	SMTPMaxMessages int

	// Admin
	AdminEmail     string
	AdminPassword  string
	AdminJWTSecret string
	AdminTokenTTL  time.Duration
}

// Load reads configuration from environment variables. A .env file in the
// working directory is honoured when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		BusinessName:       getEnv("BUSINESS_NAME", "Jet Ride Rentals"),
		BusinessTimezone:   getEnv("BUSINESS_TIMEZONE", "Asia/Kolkata"),
		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),
		FormRatePerMinute:  getEnvAsInt("FORM_RATE_PER_MINUTE", 10),
		TrustProxyHeaders:  getEnvAsBool("TRUST_PROXY_HEADERS", false),

		LeadStore:           strings.ToLower(strings.TrimSpace(getEnv("LEAD_STORE", "sheets"))),
		GoogleSheetID:       getEnv("GOOGLE_SHEET_ID", ""),
		GoogleClientEmail:   getEnv("GOOGLE_CLIENT_EMAIL", ""),
		GooglePrivateKey:    strings.ReplaceAll(getEnv("GOOGLE_PRIVATE_KEY", ""), `\n`, "\n"),
		GoogleSheetsBaseURL: getEnv("GOOGLE_SHEETS_ENDPOINT", ""),
		StrictEmail:         getEnvAsBool("LEADS_STRICT_EMAIL", false),
		LeadsCacheTTL:       getEnvAsDuration("LEADS_CACHE_TTL", 30*time.Second),
		RedisAddr:           getEnv("REDIS_ADDR", ""),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisTLS:            getEnvAsBool("REDIS_TLS", false),

		MailProvider:       strings.ToLower(strings.TrimSpace(getEnv("MAIL_PROVIDER", "log"))),
		MailFromEmail:      getEnv("MAIL_FROM_EMAIL", "noreply@jetriderentals.com"),
		MailFromName:       getEnv("MAIL_FROM_NAME", "Jet Ride Rentals"),
		MailMaxAttempts:    getEnvAsInt("MAIL_MAX_ATTEMPTS", 3),
		MailRetryBackoff:   getEnvAsDuration("MAIL_RETRY_BACKOFF", time.Second),
		MailSendTimeout:    getEnvAsDuration("MAIL_SEND_TIMEOUT", 30*time.Second),
		MailMaxConcurrency: getEnvAsInt("MAIL_MAX_CONCURRENCY", 1),
		MailRatePerSecond:  getEnvAsFloat("MAIL_RATE_PER_SECOND", 1),
		NotifyRecipients:   splitCSV(getEnv("NOTIFY_RECIPIENTS", "")),
		NotifyTimeout:      getEnvAsDuration("NOTIFY_TIMEOUT", 2*time.Minute),

		ResendAPIKey:  getEnv("RESEND_API_KEY", ""),
		ResendBaseURL: getEnv("RESEND_BASE_URL", ""),

		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),

		MailgunDomain:  getEnv("MAILGUN_DOMAIN", ""),
		MailgunAPIKey:  getEnv("MAILGUN_API_KEY", ""),
		MailgunAPIBase: getEnv("MAILGUN_API_BASE", ""),

		AWSRegion:           getEnv("AWS_REGION", "ap-south-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		SMTPHost:        getEnv("SMTP_HOST", ""),
		SMTPPort:        getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername:    getEnv("SMTP_USERNAME", ""),
		SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
		SMTPTLSPolicy:   strings.ToLower(strings.TrimSpace(getEnv("SMTP_TLS_POLICY", "opportunistic"))),
		SMTPTimeout:     getEnvAsDuration("SMTP_TIMEOUT", 30*time.Second),
		SMTPMaxMessages: getEnvAsInt("SMTP_MAX_MESSAGES", 3),

		AdminEmail:     getEnv("ADMIN_EMAIL", ""),
		AdminPassword:  getEnv("ADMIN_PASSWORD", ""),
		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
		AdminTokenTTL:  getEnvAsDuration("ADMIN_TOKEN_TTL", 12*time.Hour),
	}
}

// Validate reports settings the selected lead store and mail provider cannot
// run without. It does not fail on a missing GOOGLE_SHEET_ID: that surfaces as
// a configuration error on the first submission.
func (c *Config) Validate() error {
	var errs []error
	missing := func(key, value string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("config: %s is required", key))
		}
	}

	switch c.LeadStore {
	case "sheets", "memory":
	default:
		errs = append(errs, fmt.Errorf("config: unknown LEAD_STORE %q", c.LeadStore))
	}

	switch c.MailProvider {
	case "log":
	case "resend":
		missing("RESEND_API_KEY", c.ResendAPIKey)
	case "sendgrid":
		missing("SENDGRID_API_KEY", c.SendGridAPIKey)
	case "mailgun":
		missing("MAILGUN_DOMAIN", c.MailgunDomain)
		missing("MAILGUN_API_KEY", c.MailgunAPIKey)
	case "ses":
		missing("AWS_REGION", c.AWSRegion)
	case "smtp":
		missing("SMTP_HOST", c.SMTPHost)
		if c.SMTPPort <= 0 {
			errs = append(errs, errors.New("config: SMTP_PORT must be positive"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown MAIL_PROVIDER %q", c.MailProvider))
	}
	if c.MailProvider != "log" {
		missing("MAIL_FROM_EMAIL", c.MailFromEmail)
	}
	if c.MailMaxAttempts < 1 {
		errs = append(errs, errors.New("config: MAIL_MAX_ATTEMPTS must be at least 1"))
	}
	if _, err := time.LoadLocation(c.BusinessTimezone); err != nil {
		errs = append(errs, fmt.Errorf("config: BUSINESS_TIMEZONE: %w", err))
	}
	return errors.Join(errs...)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitCSV(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
