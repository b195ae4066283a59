package leads

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// LeadStore is the system of record for submissions. Append must not retry;
// the caller decides whether to resubmit.
type LeadStore interface {
	Append(ctx context.Context, sub Submission) (Ack, error)
}

// LeadLister reads every stored lead back, oldest first.
type LeadLister interface {
	ListAll(ctx context.Context) ([]Record, error)
}

// Store is a lead store that can also be listed.
type Store interface {
	LeadStore
	LeadLister
}

// RowTimestampLayout formats the server-generated timestamp column.
const RowTimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// ToRecord flattens a submission into the stored column layout.
func ToRecord(sub Submission, at time.Time) Record {
	return Record{
		Timestamp:  at.UTC().Format(RowTimestampLayout),
		Name:       sub.Name,
		Car:        sub.Car,
		Phone:      sub.Phone,
		Email:      sub.Email,
		PickupDate: sub.PickupDate,
		ReturnDate: sub.ReturnDate,
		Message:    sub.Message,
	}
}

// InMemoryStore keeps leads in process memory. It backs LEAD_STORE=memory
// for local development and the handler tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []Record
	now     func() time.Time
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{now: time.Now}
}

// Append records the submission.
func (s *InMemoryStore) Append(ctx context.Context, sub Submission) (Ack, error) {
	if err := ctx.Err(); err != nil {
		return Ack{}, &StoreError{Op: "append", Err: err}
	}
	s.mu.Lock()
	s.records = append(s.records, ToRecord(sub, s.now()))
	row := len(s.records) + 1 // row 1 is the header in the sheet layout
	s.mu.Unlock()

	return Ack{UpdatedRange: fmt.Sprintf("memory!A%d:H%d", row, row), UpdatedRows: 1}, nil
}

// ListAll returns a copy of every stored record.
func (s *InMemoryStore) ListAll(ctx context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out, nil
}

var _ Store = (*InMemoryStore)(nil)
