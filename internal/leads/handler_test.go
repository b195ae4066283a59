package leads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/jetriderentals/booking-api/pkg/logging"
)

func newTestHandler(store Store) *Handler {
	svc := newTestService(store, nil)
	return NewHandler(svc, store, logging.Discard())
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) Result {
	t.Helper()
	var res Result
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return res
}

func TestSubmitInquiry_Success(t *testing.T) {
	store := NewInMemoryStore()
	handler := newTestHandler(store)

	body, _ := json.Marshal(scenarioPayload())
	req := httptest.NewRequest(http.MethodPost, "/api/leads/inquiry", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.SubmitInquiry(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	res := decodeResult(t, w)
	if !res.Success || res.Message != msgInquiryOK {
		t.Errorf("unexpected result %+v", res)
	}

	records, _ := store.ListAll(context.Background())
	if len(records) != 1 || records[0].Name != "Asha" {
		t.Errorf("expected stored record, got %+v", records)
	}
}

func TestSubmitBooking_AnnotatesMessage(t *testing.T) {
	store := NewInMemoryStore()
	handler := newTestHandler(store)

	body := `{"name":"Asha","phone":"9090151546","car":"Creta","pickupFrom":"Airport","pickupDate":"2025-06-01","dropDate":"2025-06-04"}`
	req := httptest.NewRequest(http.MethodPost, "/api/leads/booking", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.SubmitBooking(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	records, _ := store.ListAll(context.Background())
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].ReturnDate != "2025-06-04" {
		t.Errorf("expected dropDate to fill returnDate, got %q", records[0].ReturnDate)
	}
	if !strings.Contains(records[0].Message, "Pickup From: Airport") {
		t.Errorf("expected booking annotation, got %q", records[0].Message)
	}
}

func TestSubmitByKind_Aliases(t *testing.T) {
	store := NewInMemoryStore()
	r := chi.NewRouter()
	r.Post("/api/leads/{kind}", newTestHandler(store).SubmitByKind)

	body, _ := json.Marshal(scenarioPayload())
	req := httptest.NewRequest(http.MethodPost, "/api/leads/contact", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	if res := decodeResult(t, w); res.Message != msgInquiryOK {
		t.Errorf("expected inquiry acknowledgement, got %+v", res)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/leads/newsletter", bytes.NewReader(body))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}

	records, _ := store.ListAll(context.Background())
	if len(records) != 1 {
		t.Errorf("expected only the contact submission stored, got %d", len(records))
	}
}

func TestSubmitInquiry_ValidationFailure(t *testing.T) {
	store := NewInMemoryStore()
	handler := newTestHandler(store)

	req := httptest.NewRequest(http.MethodPost, "/api/leads/inquiry", strings.NewReader(`{"name":"Asha"}`))
	w := httptest.NewRecorder()

	handler.SubmitInquiry(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	res := decodeResult(t, w)
	if res.Success || res.Message != msgMissingInquiry {
		t.Errorf("unexpected result %+v", res)
	}
	if records, _ := store.ListAll(context.Background()); len(records) != 0 {
		t.Errorf("expected no stored records, got %d", len(records))
	}
}

func TestSubmitInquiry_InvalidJSON(t *testing.T) {
	handler := newTestHandler(NewInMemoryStore())

	req := httptest.NewRequest(http.MethodPost, "/api/leads/inquiry", strings.NewReader("{"))
	w := httptest.NewRecorder()

	handler.SubmitInquiry(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

type failingStore struct {
	err error
}

func (f failingStore) Append(context.Context, Submission) (Ack, error) {
	return Ack{}, f.err
}

func (f failingStore) ListAll(context.Context) ([]Record, error) {
	return nil, f.err
}

func TestSubmitInquiry_StoreError(t *testing.T) {
	handler := newTestHandler(failingStore{err: errors.New("boom")})

	body, _ := json.Marshal(scenarioPayload())
	req := httptest.NewRequest(http.MethodPost, "/api/leads/inquiry", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.SubmitInquiry(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected %d, got %d", http.StatusBadGateway, w.Code)
	}
	res := decodeResult(t, w)
	if res.Success || res.Message != msgInquiryStoreErr {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestSubmitInquiry_ConfigurationError(t *testing.T) {
	handler := newTestHandler(failingStore{err: ErrConfiguration})

	body, _ := json.Marshal(scenarioPayload())
	req := httptest.NewRequest(http.MethodPost, "/api/leads/inquiry", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.SubmitInquiry(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected %d, got %d", http.StatusInternalServerError, w.Code)
	}
}

func TestListLeads(t *testing.T) {
	store := NewInMemoryStore()
	_, _ = store.Append(context.Background(), Submission{Kind: KindInquiry, Name: "Asha", Phone: "12345"})
	handler := newTestHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/admin/leads", nil)
	w := httptest.NewRecorder()
	handler.ListLeads(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp ListLeadsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 || resp.Leads[0].Name != "Asha" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestListLeads_Errors(t *testing.T) {
	handler := newTestHandler(failingStore{err: errors.New("boom")})
	w := httptest.NewRecorder()
	handler.ListLeads(w, httptest.NewRequest(http.MethodGet, "/admin/leads", nil))
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}

	noLister := NewHandler(newTestService(NewInMemoryStore(), nil), nil, logging.Discard())
	w = httptest.NewRecorder()
	noLister.ListLeads(w, httptest.NewRequest(http.MethodGet, "/admin/leads", nil))
	if w.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", w.Code)
	}
}
