package server

import (
	"fmt"
	"net/http"

	"github.com/careops/visitsync/internal/server/handlers"
	"github.com/careops/visitsync/internal/server/middleware"
)

// setupRouter creates the HTTP handler with routes and middleware.
func (s *Server) setupRouter() http.Handler {
	mux := http.NewServeMux()

	h := handlers.New(
		s.engine,
		s.cache,
		s.wsHub,
		s.sseBroadcaster,
		s.upgrader,
		s.logger,
	)

	s.registerRoutes(mux, h)

	return s.applyMiddleware(mux)
}

// registerRoutes registers all HTTP routes.
func (s *Server) registerRoutes(mux *http.ServeMux, h *handlers.Handlers) {
	prefix := s.config.PathPrefix

	// Favicon handler (return 204 No Content to avoid 404 logs)
	mux.HandleFunc("/favicon.ico", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Public health endpoints (no auth required)
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET "+prefix+"/health", h.HandleHealth)
	mux.HandleFunc("GET "+prefix+"/ready", h.HandleReady)

	// Review UI endpoints, unprefixed
	mux.HandleFunc("GET /logs/validation-failures", h.HandleValidationFailureLog)
	mux.HandleFunc("GET /mock/caregiver", h.HandleMockCaregiver)
	mux.HandleFunc("POST /mock/correct", h.HandleMockCorrect)

	// Failure endpoints
	mux.HandleFunc("GET "+prefix+"/failures", h.HandleListFailures)
	mux.HandleFunc("GET "+prefix+"/failures/{id}", h.HandleGetFailure)
	mux.HandleFunc("POST "+prefix+"/failures/{id}/correct", h.HandleCorrectFailure)
	mux.HandleFunc("POST "+prefix+"/failures/{id}/ignore", h.HandleIgnoreFailure)

	// Correction history
	mux.HandleFunc("GET "+prefix+"/actions", h.HandleListActions)

	// Admin endpoints
	mux.HandleFunc("POST "+prefix+"/run", h.HandleRun)
	mux.HandleFunc("GET "+prefix+"/stats", h.HandleStats)

	// Real-time endpoints
	mux.HandleFunc(prefix+"/updates/ws", h.HandleWebSocket)
	mux.HandleFunc("GET "+prefix+"/updates/stream", h.HandleSSE)

	// Webhook ingestion
	mux.HandleFunc("POST /webhook", h.HandleWebhook)

	// Metrics endpoint (optional)
	if s.config.MetricsEnabled {
		mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, _ *http.Request) {
			stats := s.engine.Stats()
			w.Header().Set("Content-Type", "text/plain")
			_, _ = fmt.Fprintf(w, "# TYPE visitsync_failures gauge\n")
			_, _ = fmt.Fprintf(w, "visitsync_failures{status=\"open\"} %d\n", stats.Open)
			_, _ = fmt.Fprintf(w, "visitsync_failures{status=\"correcting\"} %d\n", stats.Correcting)
			_, _ = fmt.Fprintf(w, "visitsync_failures{status=\"corrected\"} %d\n", stats.Corrected)
			_, _ = fmt.Fprintf(w, "visitsync_failures{status=\"ignored\"} %d\n", stats.Ignored)
			_, _ = fmt.Fprintf(w, "# TYPE visitsync_log_skipped_lines counter\n")
			_, _ = fmt.Fprintf(w, "visitsync_log_skipped_lines %d\n", stats.SkippedLines)
		})
	}
}

// applyMiddleware wraps handler with middleware chain.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	cfg := s.config

	// Rate limiting (if enabled)
	if cfg.RateLimit > 0 {
		rateLimiter := middleware.NewRateLimiter(cfg.RateLimit, s.logger)
		handler = middleware.RateLimit(rateLimiter)(handler)
	}

	// Authentication (if enabled)
	if cfg.AuthEnabled {
		authConfig := middleware.DefaultAuthConfig()
		authConfig.Enabled = true
		authConfig.HeaderName = cfg.AuthHeader
		handler = middleware.Auth(authConfig, s.logger)(handler)
	}

	// CORS (if enabled)
	if cfg.CORSEnabled {
		corsConfig := middleware.DefaultCORSConfig()
		if len(cfg.CORSOrigins) > 0 {
			corsConfig.AllowedOrigins = cfg.CORSOrigins
			corsConfig.AllowAll = false
		} else {
			corsConfig.AllowAll = true
		}
		handler = middleware.CORS(corsConfig)(handler)
	}

	// Logging and recovery (always enabled)
	handler = middleware.Logger(s.logger)(handler)
	handler = middleware.Recovery(s.logger)(handler)

	return handler
}
