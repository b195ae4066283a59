package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/jetriderentals/booking-api/pkg/logging"
)

// SMTPConfig controls the SMTP provider.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// TLSPolicy is one of mandatory, opportunistic, none. Port 465 always
	// uses implicit TLS.
	TLSPolicy string
	Timeout   time.Duration
	// MaxMessages is how many messages one connection carries before it is
	// closed and redialled.
	MaxMessages int
	FromEmail   string
	FromName    string
}

// SMTPProvider keeps one pooled SMTP connection. A reused connection is
// verified with RSET before each message and redialled if the check fails.
type SMTPProvider struct {
	cfg    SMTPConfig
	logger *logging.Logger

	mu     sync.Mutex
	client *gomail.Client
	sent   int
}

// NewSMTPProvider creates the provider. No connection is opened until the
// first Send.
func NewSMTPProvider(cfg SMTPConfig, logger *logging.Logger) *SMTPProvider {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = 3
	}
	return &SMTPProvider{cfg: cfg, logger: logger}
}

func (p *SMTPProvider) Name() string { return "smtp" }

func (p *SMTPProvider) options() []gomail.Option {
	opts := []gomail.Option{
		gomail.WithPort(p.cfg.Port),
		gomail.WithTimeout(p.cfg.Timeout),
		gomail.WithDialContextFunc(func(dctx context.Context, network, addr string) (net.Conn, error) {
			return (&net.Dialer{Timeout: p.cfg.Timeout}).DialContext(dctx, network, addr)
		}),
	}
	if p.cfg.Port == 465 {
		opts = append(opts, gomail.WithSSL())
	} else {
		switch strings.ToLower(p.cfg.TLSPolicy) {
		case "mandatory":
			opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
		case "none", "notls":
			opts = append(opts, gomail.WithTLSPolicy(gomail.NoTLS))
		default:
			opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
		}
	}
	if p.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(p.cfg.Username),
			gomail.WithPassword(p.cfg.Password),
		)
	}
	return opts
}

func (p *SMTPProvider) dialClient(ctx context.Context) (*gomail.Client, error) {
	client, err := gomail.NewClient(p.cfg.Host, p.options()...)
	if err != nil {
		return nil, fmt.Errorf("notify: smtp client: %w", err)
	}
	if err := client.DialWithContext(ctx); err != nil {
		return nil, classifySMTP(err)
	}
	return client, nil
}

// Send delivers one message over the pooled connection.
func (p *SMTPProvider) Send(ctx context.Context, msg EmailMessage) (string, error) {
	if strings.TrimSpace(p.cfg.Host) == "" {
		return "", fmt.Errorf("notify: smtp: %w", ErrNotConfigured)
	}
	m, err := p.buildMsg(msg)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	client, err := p.acquire(ctx)
	if err != nil {
		return "", err
	}
	if err := client.Send(m); err != nil {
		p.discard()
		return "", classifySMTP(err)
	}
	p.sent++
	if p.sent >= p.cfg.MaxMessages {
		p.discard()
	}
	return m.GetMessageID(), nil
}

// acquire returns a verified connection, dialling a new one if needed.
// Callers hold p.mu.
func (p *SMTPProvider) acquire(ctx context.Context) (*gomail.Client, error) {
	if p.client != nil {
		err := p.client.Reset()
		if err == nil {
			return p.client, nil
		}
		p.logger.Warn("smtp: pooled connection failed verification, redialling", "error", err)
		p.discard()
	}
	client, err := p.dialClient(ctx)
	if err != nil {
		return nil, err
	}
	p.client = client
	p.sent = 0
	return client, nil
}

func (p *SMTPProvider) discard() {
	if p.client == nil {
		return
	}
	if err := p.client.Close(); err != nil {
		p.logger.Debug("smtp: close failed", "error", err)
	}
	p.client = nil
	p.sent = 0
}

// Close releases the pooled connection.
func (p *SMTPProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.discard()
	return nil
}

func (p *SMTPProvider) buildMsg(msg EmailMessage) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if p.cfg.FromName != "" {
		if err := m.FromFormat(p.cfg.FromName, p.cfg.FromEmail); err != nil {
			return nil, fmt.Errorf("notify: smtp: %w: invalid from address: %v", ErrNotConfigured, err)
		}
	} else if err := m.From(p.cfg.FromEmail); err != nil {
		return nil, fmt.Errorf("notify: smtp: %w: invalid from address: %v", ErrNotConfigured, err)
	}
	if msg.ToName != "" {
		if err := m.AddToFormat(msg.ToName, msg.To); err != nil {
			return nil, &SMTPError{Code: 553, Err: fmt.Errorf("invalid to address: %w", err)}
		}
	} else if err := m.To(msg.To); err != nil {
		return nil, &SMTPError{Code: 553, Err: fmt.Errorf("invalid to address: %w", err)}
	}
	m.Subject(msg.Subject)
	m.SetMessageID()
	m.SetDate()
	m.SetBodyString(gomail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(gomail.TypeTextHTML, msg.HTML)
	}
	return m, nil
}

var smtpCodePattern = regexp.MustCompile(`\b([45]\d\d)\b`)

// classifySMTP extracts the reply code so Transport can tell a rate limit
// or greylist (4xx) from a permanent rejection (5xx).
func classifySMTP(err error) error {
	if err == nil {
		return nil
	}
	var smtpErr *SMTPError
	if errors.As(err, &smtpErr) {
		return err
	}
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return &SMTPError{Code: protoErr.Code, Temporary: protoErr.Code >= 400 && protoErr.Code < 500, Err: err}
	}
	if m := smtpCodePattern.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		return &SMTPError{Code: code, Temporary: code < 500, Err: err}
	}
	// no reply code: connection level failure, retryable
	return &SMTPError{Err: err}
}

var _ Provider = (*SMTPProvider)(nil)
