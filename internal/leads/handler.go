package leads

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jetriderentals/booking-api/pkg/logging"
)

const maxBodyBytes = 64 << 10

// Handler handles HTTP requests for leads
type Handler struct {
	service *Service
	lister  LeadLister
	logger  *logging.Logger
}

// NewHandler creates a new leads handler. lister may be nil when the admin
// listing is not mounted.
func NewHandler(service *Service, lister LeadLister, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service: service,
		lister:  lister,
		logger:  logger,
	}
}

// SubmitInquiry handles POST /api/leads/inquiry requests
func (h *Handler) SubmitInquiry(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, KindInquiry)
}

// SubmitBooking handles POST /api/leads/booking requests
func (h *Handler) SubmitBooking(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, KindBooking)
}

// SubmitByKind handles POST /api/leads/{kind}, accepting the form names the
// site has used over time (contact, car_booking).
func (h *Handler) SubmitByKind(w http.ResponseWriter, r *http.Request) {
	kind, err := ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeResult(w, http.StatusNotFound, Result{Success: false, Message: "Unknown form"})
		return
	}
	h.submit(w, r, kind)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, kind Kind) {
	var payload Payload
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&payload); err != nil {
		h.logger.Warn("failed to decode submission", "error", err, "kind", kind)
		writeResult(w, http.StatusBadRequest, Result{Success: false, Message: "Invalid request body"})
		return
	}

	res, err := h.service.Submit(r.Context(), kind, payload)
	writeResult(w, statusFor(err), res)
}

// statusFor maps a Submit error onto the response status.
func statusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if _, ok := IsValidation(err); ok {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrConfiguration) {
		return http.StatusInternalServerError
	}
	var serr *StoreError
	if errors.As(err, &serr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// ListLeadsResponse is the response for listing leads
type ListLeadsResponse struct {
	Leads []Record `json:"leads"`
	Count int      `json:"count"`
}

// ListLeads handles GET /admin/leads requests
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	if h.lister == nil {
		http.Error(w, "lead listing not configured", http.StatusNotImplemented)
		return
	}

	records, err := h.lister.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list leads", "error", err)
		if errors.Is(err, ErrConfiguration) {
			http.Error(w, "lead store not configured", http.StatusInternalServerError)
			return
		}
		http.Error(w, "failed to list leads", http.StatusBadGateway)
		return
	}
	if records == nil {
		records = []Record{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ListLeadsResponse{Leads: records, Count: len(records)})
}

func writeResult(w http.ResponseWriter, status int, res Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(res)
}
