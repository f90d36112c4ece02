// Package api exposes the Veritas HTTP API.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/opensource-finance/veritas/internal/analyzer"
	"github.com/opensource-finance/veritas/internal/domain"
	"github.com/opensource-finance/veritas/internal/metrics"
	"github.com/opensource-finance/veritas/internal/rules"
	"github.com/opensource-finance/veritas/internal/velocity"
)

// Options are the collaborators of the API. Analyzer is required; a nil
// Repo, Bus or Engine disables the routes that need them (503).
type Options struct {
	Analyzer *analyzer.Analyzer
	Repo     domain.Repository
	Cache    domain.Cache
	Bus      domain.EventBus
	Engine   *rules.Engine
	Limiter  *velocity.Limiter
	Metrics  *metrics.Metrics
	AdminKey string
	Version  string
}

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, opts Options) *Server {
	handler := NewHandler(opts)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)
	router.Use(RecoverMiddleware)
	router.Use(middleware.RealIP)
	router.Use(TracingMiddleware)
	router.Use(LoggingMiddleware(opts.Metrics))
	router.Use(middleware.Compress(5))

	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)
	if opts.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(RateLimitMiddleware(opts.Limiter, opts.Metrics))
			r.Post("/analyze", handler.Analyze)
			r.Post("/scans", handler.SubmitScan)
		})

		r.Post("/report", handler.SubmitReport)

		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminMiddleware(opts.AdminKey))

			r.Get("/reports", handler.ListReports)
			r.Post("/add-scam", handler.AddScam)
			r.Get("/scams", handler.ListScams)
			r.Delete("/scams/{id}", handler.DeleteScam)
			r.Get("/stats", handler.Stats)

			r.Get("/rules", handler.ListRules)
			r.Post("/rules", handler.CreateRule)
			r.Post("/rules/reload", handler.ReloadRules)
			r.Delete("/rules/{id}", handler.DeleteRule)
		})
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
