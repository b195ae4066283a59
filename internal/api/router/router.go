package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jetriderentals/booking-api/internal/http/handlers"
	httpmiddleware "github.com/jetriderentals/booking-api/internal/http/middleware"
	"github.com/jetriderentals/booking-api/internal/leads"
	"github.com/jetriderentals/booking-api/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Health             *handlers.HealthHandler
	LeadsHandler       *leads.Handler
	AdminAuth          *handlers.AdminAuthHandler
	AdminNotifications *handlers.AdminNotificationsHandler
	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// TrustProxyHeaders rewrites RemoteAddr from X-Forwarded-For/X-Real-IP.
	// Leave off unless a trusted proxy sets those headers, otherwise any
	// client can pick the IP the form limiter sees.
	TrustProxyHeaders bool

	// FormRateLimiter throttles the public form endpoints per client IP.
	// Nil disables throttling.
	FormRateLimiter *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	health := cfg.Health
	if health == nil {
		health = handlers.NewHealthHandler(nil, cfg.Logger)
	}
	r.Get("/health", health.Health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.LeadsHandler != nil {
		r.Route("/api/leads", func(forms chi.Router) {
			forms.Use(middleware.Timeout(30 * time.Second))
			if cfg.FormRateLimiter != nil {
				forms.Use(cfg.FormRateLimiter.Middleware)
			}
			forms.Post("/inquiry", cfg.LeadsHandler.SubmitInquiry)
			forms.Post("/booking", cfg.LeadsHandler.SubmitBooking)
			forms.Post("/{kind}", cfg.LeadsHandler.SubmitByKind)
		})
	}

	r.Route("/admin", func(admin chi.Router) {
		if cfg.AdminAuth != nil {
			admin.With(middleware.Throttle(5)).Post("/login", cfg.AdminAuth.Login)
		}
		admin.Group(func(protected chi.Router) {
			protected.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			if cfg.LeadsHandler != nil {
				protected.Get("/leads", cfg.LeadsHandler.ListLeads)
			}
			if cfg.AdminNotifications != nil {
				protected.Get("/notifications/test", cfg.AdminNotifications.SendTest)
			}
		})
	})

	return r
}
