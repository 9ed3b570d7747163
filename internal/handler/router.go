package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/bachelorbari/bachelorbari/internal/logging"
	"github.com/bachelorbari/bachelorbari/internal/metrics"
	"github.com/bachelorbari/bachelorbari/internal/middleware"
)

// RouterConfig collects what the router needs.
type RouterConfig struct {
	Logger      *slog.Logger
	Auth        *AuthHandler
	Health      *HealthHandler
	RequestSink logging.RequestSink
	Metrics     metrics.Recorder
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
	Bearer         middleware.AuthConfig
	Security       middleware.SecurityConfig
	CORS           middleware.CORSConfig
	DebugStack     bool
}

// NewRouter configures the chi router with all routes and middleware.
// Every /api request passes through the request tracker; /api/profile
// additionally requires a bearer token.
func NewRouter(cfg RouterConfig) *chi.Mux {
	h := New()
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recoverer(cfg.Logger, cfg.DebugStack))
	// The tracker sits ahead of everything that can answer early, so
	// rejected /api requests are still logged.
	r.Use(trackAPI(middleware.RequestTracker(cfg.RequestSink, cfg.Metrics)))
	r.Use(middleware.Security(cfg.Security))
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.Security.MaxRequestBodySize > 0 {
		r.Use(middleware.MaxBodySize(cfg.Security.MaxRequestBodySize))
	}

	r.Get("/", h.Info)
	r.Get("/healthz", cfg.Health.Healthz)
	r.Get("/readyz", cfg.Health.Readyz)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", cfg.Auth.Register)
		r.Post("/login", cfg.Auth.Login)
		r.With(middleware.Auth(cfg.Bearer)).Get("/profile", cfg.Auth.Profile)

		r.NotFound(h.NotFound)
		r.MethodNotAllowed(h.MethodNotAllowed)
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

// trackAPI applies tracker to /api requests only.
func trackAPI(tracker func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		tracked := tracker(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
				tracked.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
