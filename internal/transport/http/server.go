package http

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"planningpoker/internal/app"
	"planningpoker/internal/config"
	"planningpoker/internal/metrics"
	"planningpoker/internal/transport/ws"
)

// Server represents the HTTP server
type Server struct {
	server  *http.Server
	hub     *app.Hub
	config  *config.Config
	metrics metrics.Recorder
	logger  zerolog.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, hub *app.Hub, rec metrics.Recorder, logger zerolog.Logger) *Server {
	s := &Server{
		hub:     hub,
		config:  cfg,
		metrics: rec,
		logger:  logger,
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedHeaders: []string{"*"},
	})

	s.server = &http.Server{
		Addr:         cfg.GetAddr(),
		Handler:      c.Handler(s.middleware(mux)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the fully wrapped request handler
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(mux *http.ServeMux) {
	// API routes
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/sessions/{sessionId}/exists", s.handleSessionExists)
	mux.HandleFunc("GET /api/vote-values", s.handleVoteValues)

	if s.config.Metrics.Enabled {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	// WebSocket
	wsHandler := ws.NewHandler(s.hub, ws.Options{
		AllowedOrigins:   s.config.Server.AllowedOrigins,
		StrictVoteValues: s.config.Session.StrictVoteValues,
	}, s.metrics, s.logger)
	mux.Handle("GET /ws", wsHandler)
}

// middleware records request metrics and logs every request
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		endpoint := routeLabel(r)
		s.metrics.IncRequestsTotal(endpoint, wrapped.statusCode)
		s.metrics.ObserveRequestDuration(endpoint, duration)

		level := zerolog.InfoLevel
		if isQuietRequest(r.URL.Path) && !s.config.IsDevelopment() {
			level = zerolog.DebugLevel
		}
		s.logger.WithLevel(level).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.statusCode).
			Dur("duration", duration).
			Msg("request")
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("server starting")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("server shutting down")
	return s.server.Shutdown(ctx)
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack implements http.Hijacker for WebSocket support
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		rw.statusCode = http.StatusSwitchingProtocols
		return hijacker.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

// Flush implements http.Flusher
func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// routeLabel keeps metric cardinality bounded by using the matched route pattern
func routeLabel(r *http.Request) string {
	if r.Pattern == "" {
		return "unmatched"
	}
	return r.Pattern
}

// isQuietRequest reports probes and scrapes that would flood the log
func isQuietRequest(path string) bool {
	return path == "/api/health" || path == "/metrics"
}
