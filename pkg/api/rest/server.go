package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/AlayaDB-AI/AlayaLite/pkg/api/rest/middleware"
	"github.com/AlayaDB-AI/AlayaLite/pkg/config"
	"github.com/AlayaDB-AI/AlayaLite/pkg/observability"
)

// Server represents the REST API server in front of an Engine.
type Server struct {
	cfg        config.ServerConfig
	authCfg    middleware.AuthConfig
	rateCfg    middleware.RateLimitConfig
	handler    *Handler
	logger     *observability.Logger
	metrics    *observability.Metrics
	httpServer *http.Server
	mux        *http.ServeMux
}

// NewServer creates a new REST API server wired directly to engine.
func NewServer(cfg config.Config, engine *Engine, logger *observability.Logger, metrics *observability.Metrics) *Server {
	if logger == nil {
		logger = observability.GetGlobalLogger()
	}

	authCfg := middleware.AuthConfig{
		JWTSecret:    cfg.Auth.JWTSecret,
		Enabled:      cfg.Auth.Enabled,
		PublicPaths:  []string{"/v1/health", "/v1/stats", "/v1/search", "/docs"},
		RequireAdmin: cfg.Auth.RequireAdmin,
	}
	rateCfg := middleware.RateLimitConfig{
		Enabled:        cfg.RateLimit.Enabled,
		RequestsPerSec: cfg.RateLimit.RequestsPerSec,
		Burst:          cfg.RateLimit.Burst,
		PerIP:          cfg.RateLimit.PerIP,
	}

	server := &Server{
		cfg:     cfg.Server,
		authCfg: authCfg,
		rateCfg: rateCfg,
		handler: NewHandler(engine),
		logger:  logger,
		metrics: metrics,
		mux:     http.NewServeMux(),
	}

	server.setupRoutes()
	server.httpServer = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      server.withMiddleware(server.mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/v1/health", s.handler.HealthCheck)
	s.mux.HandleFunc("/v1/stats", s.handler.GetStats)
	s.mux.HandleFunc("/v1/fit", s.handler.Fit)
	s.mux.HandleFunc("/v1/refine", s.handler.Refine)
	s.mux.HandleFunc("/v1/search", s.handler.Search)

	s.mux.HandleFunc("/docs", ServeSwaggerUI)
	s.mux.HandleFunc("/docs/openapi.yaml", ServeDocs)

	if s.metrics != nil {
		s.mux.Handle("/metrics", observability.MetricsHandler())
	}
}

// withMiddleware wraps the mux with the logging, CORS, metrics, rate
// limiting and auth middleware chain, innermost first (auth runs first on
// every request, logging last).
func (s *Server) withMiddleware(handler http.Handler) http.Handler {
	handler = loggingMiddleware(s.logger)(handler)

	if s.cfg.CORSEnabled {
		handler = corsMiddleware(s.cfg.CORSOrigins)(handler)
	}

	if s.metrics != nil {
		handler = metricsMiddleware(s.metrics)(handler)
	}

	rateLimiter := middleware.NewRateLimiter(s.rateCfg)
	handler = middleware.RateLimitMiddleware(rateLimiter)(handler)

	handler = middleware.AuthMiddleware(s.authCfg)(handler)

	return handler
}

// Start starts the REST API server.
func (s *Server) Start() error {
	s.logger.Info("starting REST API server", map[string]interface{}{
		"address": s.httpServer.Addr,
		"docs":    fmt.Sprintf("http://%s/docs", s.httpServer.Addr),
	})

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down REST API server", nil)
	return s.httpServer.Shutdown(ctx)
}

// loggingMiddleware logs all HTTP requests through the engine's logger.
func loggingMiddleware(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			logger.Info("request", map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   wrapped.statusCode,
				"duration": time.Since(start).String(),
			})
		})
	}
}

// metricsMiddleware records request count, duration and error counts.
func metricsMiddleware(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			status := fmt.Sprintf("%d", wrapped.statusCode)
			metrics.RecordRequest(r.URL.Path, status, duration)
			if wrapped.statusCode >= http.StatusBadRequest {
				metrics.RecordError(r.URL.Path, status)
			}
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// corsMiddleware adds CORS headers.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
				allowed = true
				origin = "*"
			} else {
				for _, allowedOrigin := range allowedOrigins {
					if allowedOrigin == origin {
						allowed = true
						break
					}
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Set("Access-Control-Max-Age", "3600")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
