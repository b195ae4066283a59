package leads_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jetriderentals/booking-api/internal/leads"
	"github.com/jetriderentals/booking-api/internal/notify"
	"github.com/jetriderentals/booking-api/pkg/logging"
)

type downProvider struct {
	calls atomic.Int32
}

func (p *downProvider) Name() string { return "down" }

func (p *downProvider) Send(ctx context.Context, msg notify.EmailMessage) (string, error) {
	p.calls.Add(1)
	return "", errors.New("dial tcp 10.0.0.1:587: connect: connection refused")
}

func fixedValidator() *leads.Validator {
	now := time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)
	return leads.NewValidator(false, time.UTC, logging.Discard()).WithClock(func() time.Time { return now })
}

func TestPipeline_MailOutageDoesNotFailSubmission(t *testing.T) {
	var logs strings.Builder
	logger := logging.NewWithWriter("info", &logs)

	provider := &downProvider{}
	transport := notify.NewTransport(provider, notify.TransportConfig{
		MaxAttempts: 3,
		Backoff:     time.Millisecond,
		SendTimeout: time.Second,
	}, logger)
	notifier := notify.NewService(notify.NewComposer(""), transport, []string{"ops@jetriderentals.com"}, logger)

	store := leads.NewInMemoryStore()
	svc := leads.NewService(fixedValidator(), store, notifier, logger)

	res, err := svc.Submit(context.Background(), leads.KindInquiry, leads.Payload{
		Name:       "Asha",
		Phone:      "+919090151546",
		Email:      "a@b.com",
		Car:        "Swift",
		PickupDate: "2025-06-01",
		ReturnDate: "2025-06-03",
		Message:    "Airport pickup",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, svc.Wait(ctx))

	rows, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.EqualValues(t, 3, provider.calls.Load())

	out := logs.String()
	assert.Contains(t, out, "notify: email failed")
	assert.Contains(t, out, `"attempts":3`)
	assert.Contains(t, out, "leads: notification failed")
}

func TestPipeline_BookingNotification(t *testing.T) {
	var logs strings.Builder
	logger := logging.NewWithWriter("info", &logs)

	transport := notify.NewTransport(notify.NewLogProvider(logger), notify.TransportConfig{}, logger)
	notifier := notify.NewService(notify.NewComposer(""), transport, []string{"ops@jetriderentals.com"}, logger)
	svc := leads.NewService(fixedValidator(), leads.NewInMemoryStore(), notifier, logger)

	res, err := svc.Submit(context.Background(), leads.KindBooking, leads.Payload{
		Name:       "Asha",
		Phone:      "9090151546",
		Email:      "asha@example.com",
		Car:        "Swift",
		PickupFrom: "Airport",
		PickupDate: "2025-06-01",
		DropDate:   "2025-06-03",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.NoError(t, svc.Wait(context.Background()))

	out := logs.String()
	assert.Contains(t, out, "New Booking Request - Jet Ride Rentals")
	assert.Contains(t, out, "leads: notification dispatched")
}
