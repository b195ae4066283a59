package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/jetriderentals/booking-api/pkg/logging"
)

// HealthCheck checks one dependency.
type HealthCheck func(ctx context.Context) error

// HealthHandler reports liveness plus the state of optional dependencies.
// A failed dependency marks the report "degraded" but keeps the 200.
type HealthHandler struct {
	checks map[string]HealthCheck
	logger *logging.Logger
}

// NewHealthHandler creates a health handler. checks may be nil.
func NewHealthHandler(checks map[string]HealthCheck, logger *logging.Logger) *HealthHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &HealthHandler{checks: checks, logger: logger}
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if len(h.checks) > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		deps := make(map[string]string, len(h.checks))
		for name, check := range h.checks {
			if err := check(ctx); err != nil {
				h.logger.Warn("health check failed", "dependency", name, "error", err)
				deps[name] = "unavailable"
				resp["status"] = "degraded"
				continue
			}
			deps[name] = "ok"
		}
		resp["dependencies"] = deps
	}
	writeJSON(w, http.StatusOK, resp)
}
