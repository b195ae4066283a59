package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jetriderentals/booking-api/internal/http/middleware"
	"github.com/jetriderentals/booking-api/internal/notify"
	"github.com/jetriderentals/booking-api/pkg/logging"
)

// NotificationTester runs a diagnostic send.
type NotificationTester interface {
	SendTest(ctx context.Context, to string, progress func(notify.Step)) (string, error)
}

// AdminNotificationsHandler streams a test email's progress to the admin UI.
type AdminNotificationsHandler struct {
	tester    NotificationTester
	heartbeat time.Duration
	logger    *logging.Logger
}

// NewAdminNotificationsHandler creates a new admin notifications handler.
func NewAdminNotificationsHandler(tester NotificationTester, logger *logging.Logger) *AdminNotificationsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminNotificationsHandler{tester: tester, heartbeat: 15 * time.Second, logger: logger}
}

// SendTest handles GET /admin/notifications/test?to=. The response is a
// text/event-stream with one event per notify.Step, ending with "success" or
// "error". Comment lines keep idle proxies from closing the stream.
func (h *AdminNotificationsHandler) SendTest(w http.ResponseWriter, r *http.Request) {
	if h.tester == nil {
		jsonError(w, "notifications are not configured", http.StatusServiceUnavailable)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		jsonError(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	to := r.URL.Query().Get("to")
	logger := h.logger
	if claims, ok := middleware.AdminClaimsFromContext(r.Context()); ok {
		logger = logger.With("admin", claims.Email)
	}
	logger.Info("admin test email requested", "to", to)

	steps := make(chan notify.Step, 8)
	go func() {
		defer close(steps)
		_, err := h.tester.SendTest(r.Context(), to, func(s notify.Step) { steps <- s })
		if err != nil {
			logger.Warn("admin test email failed", "error", err, "to", to)
		}
	}()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			// Drain so the sender is never blocked on a gone client.
			for range steps {
			}
			return
		case <-ticker.C:
			_, _ = fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case s, open := <-steps:
			if !open {
				return
			}
			data, err := json.Marshal(s)
			if err != nil {
				continue
			}
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", s.Name, data)
			flusher.Flush()
		}
	}
}
