// Package router wires the HTTP surface: device event ingest, the push
// subsystem's action webhook, and the session-scoped monitoring API.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/clientcheck/followup-platform/internal/auth"
	"github.com/clientcheck/followup-platform/internal/callevents"
	"github.com/clientcheck/followup-platform/internal/followup"
	httpmiddleware "github.com/clientcheck/followup-platform/internal/http/middleware"
	"github.com/clientcheck/followup-platform/internal/monitoring"
	"github.com/clientcheck/followup-platform/pkg/logging"
)

type sessionVerifier interface {
	Verify(token string) (*auth.Session, error)
}

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	IngestHandler      *callevents.Handler
	ActionHandler      *followup.Handler
	MonitoringHandler  *monitoring.Handler
	SessionVerifier    sessionVerifier
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// IngestRatePerSec throttles the device-agent webhook per IP.
	// Zero disables rate limiting.
	IngestRatePerSec float64
	IngestBurst      int
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (webhooks, health checks).
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.IngestHandler != nil {
			ingest := public
			if cfg.IngestRatePerSec > 0 {
				ingest = public.With(httpmiddleware.RateLimit(cfg.IngestRatePerSec, cfg.IngestBurst))
			}
			ingest.Post("/events/calls", cfg.IngestHandler.IngestCallEvent)
		}
		if cfg.ActionHandler != nil {
			public.Post("/webhooks/notifications/actions", cfg.ActionHandler.HandleAction)
		}
	})

	// Session-scoped endpoints for the foreground app.
	if cfg.MonitoringHandler != nil {
		r.Route("/monitoring", func(protected chi.Router) {
			protected.Use(httpmiddleware.SessionAuth(cfg.SessionVerifier))
			protected.Mount("/", cfg.MonitoringHandler.Routes())
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
