// Package api serves the Linegra REST API: trees, asynchronous import
// jobs, export and report downloads, and a WebSocket stream of import
// progress.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/FocuswithJustin/Linegra/internal/archive"
	"github.com/FocuswithJustin/Linegra/internal/config"
	"github.com/FocuswithJustin/Linegra/internal/importer"
	"github.com/FocuswithJustin/Linegra/internal/logging"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 10 * time.Second

// Server wires the HTTP handlers to the import service.
type Server struct {
	cfg      config.ServerConfig
	importer *importer.Service
	archive  *archive.Store
	jobs     *JobStore
	hub      *Hub
	limiter  *RateLimiter
	upgrader websocket.Upgrader
	started  time.Time
}

// New creates a server and starts its WebSocket hub. Close releases it.
func New(cfg config.ServerConfig, svc *importer.Service) *Server {
	s := &Server{
		cfg:      cfg,
		importer: svc,
		archive:  svc.Archive(),
		jobs:     NewJobStore(cfg.JobRetention),
		hub:      NewHub(),
		started:  time.Now(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst == 0 {
			burst = 10
		}
		s.limiter = NewRateLimiter(RateLimiterConfig{RequestsPerMinute: cfg.RateLimit, BurstSize: burst})
	}
	go s.hub.Run()
	return s
}

// Close cancels running jobs and stops background goroutines.
func (s *Server) Close() {
	s.jobs.CancelAll()
	s.hub.Stop()
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.routes()
	handler = SecurityHeaders(handler)
	handler = AuthMiddleware(s.cfg.APIKey, handler)
	if s.limiter != nil {
		handler = s.limiter.Middleware(handler)
	}
	handler = CORSMiddleware(s.cfg.AllowedOrigins, handler)
	return logging.CombinedMiddleware(handler)
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/trees", s.handleTrees)
	mux.HandleFunc("/trees/{id}", s.handleTree)
	mux.HandleFunc("/trees/{id}/imports", s.handleImports)
	mux.HandleFunc("/trees/{id}/export", s.handleExport)
	mux.HandleFunc("/trees/{id}/report", s.handleReport)
	mux.HandleFunc("/parse", s.handleParse)
	mux.HandleFunc("/jobs", s.handleJobs)
	mux.HandleFunc("/jobs/{id}", s.handleJobByID)
	mux.HandleFunc("/ws", s.handleWebSocket)

	return mux
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	if s.cfg.APIKey == "" {
		logging.Warn("API key not configured", "note", "all requests allowed")
	}
	logging.ServerStartup("rest_api", s.cfg.Addr,
		"rate_limit", s.cfg.RateLimit,
		"allowed_origins", len(s.cfg.AllowedOrigins))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", s.cfg.Addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
