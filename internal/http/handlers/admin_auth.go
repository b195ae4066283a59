package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jetriderentals/booking-api/internal/http/middleware"
	"github.com/jetriderentals/booking-api/pkg/logging"
)

// AdminAuthConfig holds the single operator credential.
type AdminAuthConfig struct {
	Email     string
	Password  string
	JWTSecret string
	TokenTTL  time.Duration
}

// AdminAuthHandler exchanges the operator credential for a session token.
type AdminAuthHandler struct {
	cfg    AdminAuthConfig
	now    func() time.Time
	logger *logging.Logger
}

// NewAdminAuthHandler creates a login handler. TokenTTL defaults to 12h.
func NewAdminAuthHandler(cfg AdminAuthConfig, logger *logging.Logger) *AdminAuthHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 12 * time.Hour
	}
	return &AdminAuthHandler{cfg: cfg, now: time.Now, logger: logger}
}

// LoginRequest is the body of POST /admin/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token for the admin endpoints.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login handles POST /admin/login.
func (h *AdminAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Email == "" || h.cfg.Password == "" || h.cfg.JWTSecret == "" {
		jsonError(w, "admin login is not configured", http.StatusServiceUnavailable)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 8<<10)).Decode(&req); err != nil {
		jsonError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	emailOK := subtle.ConstantTimeCompare([]byte(strings.ToLower(strings.TrimSpace(req.Email))), []byte(strings.ToLower(h.cfg.Email))) == 1
	passwordOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.cfg.Password)) == 1
	if !emailOK || !passwordOK {
		h.logger.Warn("admin login rejected", "remote_ip", r.RemoteAddr)
		jsonError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, expires, err := middleware.SignAdminToken(h.cfg.JWTSecret, h.cfg.Email, h.cfg.TokenTTL, h.now())
	if err != nil {
		h.logger.Error("failed to sign admin token", "error", err)
		jsonError(w, "failed to create session", http.StatusInternalServerError)
		return
	}
	h.logger.Info("admin logged in", "email", h.cfg.Email)
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, ExpiresAt: expires.UTC()})
}
