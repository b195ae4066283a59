package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jetriderentals/booking-api/pkg/logging"
)

const defaultResendBaseURL = "https://api.resend.com"

// ResendConfig controls the Resend provider.
type ResendConfig struct {
	APIKey     string
	BaseURL    string
	FromEmail  string
	FromName   string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// ResendProvider posts messages to the Resend transactional email API.
type ResendProvider struct {
	apiKey     string
	baseURL    string
	from       string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewResendProvider creates a Resend provider. It does not retry; Transport
// owns the retry policy.
func NewResendProvider(cfg ResendConfig, logger *logging.Logger) *ResendProvider {
	if logger == nil {
		logger = logging.Default()
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultResendBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	from := cfg.FromEmail
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail)
	}
	return &ResendProvider{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    baseURL,
		from:       from,
		httpClient: httpClient,
		logger:     logger,
	}
}

func (p *ResendProvider) Name() string { return "resend" }

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

type resendResponse struct {
	ID string `json:"id"`
}

// Send performs a single POST /emails.
func (p *ResendProvider) Send(ctx context.Context, msg EmailMessage) (string, error) {
	if p.apiKey == "" {
		return "", fmt.Errorf("notify: resend: %w", ErrNotConfigured)
	}
	body, err := json.Marshal(resendRequest{
		From:    p.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return "", fmt.Errorf("notify: resend: marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("notify: resend: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("notify: resend: http error: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("notify: resend: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &APIError{Provider: p.Name(), StatusCode: resp.StatusCode, Body: string(data)}
	}

	var out resendResponse
	if err := json.Unmarshal(data, &out); err != nil {
		p.logger.Warn("resend: unexpected response body", "error", err)
	}
	return out.ID, nil
}

var _ Provider = (*ResendProvider)(nil)
