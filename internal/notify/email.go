package notify

import (
	"context"

	"github.com/google/uuid"

	"github.com/jetriderentals/booking-api/pkg/logging"
)

// Provider delivers one email through a single mechanism (HTTPS API, SMTP,
// ...). Implementations are selected once at startup by MAIL_PROVIDER and
// can be swapped without changing callers.
type Provider interface {
	Name() string
	Send(ctx context.Context, msg EmailMessage) (messageID string, err error)
}

// EmailMessage represents an email to be sent.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string // Plain text alternative
}

// LogProvider writes the message to the log instead of sending it. It is the
// development default.
type LogProvider struct {
	logger *logging.Logger
}

// NewLogProvider creates a provider that logs but doesn't send.
func NewLogProvider(logger *logging.Logger) *LogProvider {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogProvider{logger: logger}
}

func (p *LogProvider) Name() string { return "log" }

// Send logs the email and returns a generated message id.
func (p *LogProvider) Send(ctx context.Context, msg EmailMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	p.logger.Info("log provider: would send email", "to", msg.To, "subject", msg.Subject, "message_id", id, "text", msg.Text)
	return id, nil
}

var _ Provider = (*LogProvider)(nil)
