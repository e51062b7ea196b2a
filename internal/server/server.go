package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/finsight/cardadvisor/internal/advisor"
	"github.com/finsight/cardadvisor/internal/config"
	"github.com/finsight/cardadvisor/internal/retrieval"
	"github.com/finsight/cardadvisor/internal/storage"
)

// Server exposes the retrieval and advisor pipeline over HTTP.
type Server struct {
	cfg        *config.Config
	retriever  *retrieval.Retriever
	store      storage.Storage
	advisor    *advisor.Orchestrator
	logger     *zap.Logger
	httpServer *http.Server
}

// New creates the server. orch may be nil when no chat credentials are
// configured; the advise endpoint then reports unavailable instead of the
// whole server refusing to start.
func New(cfg *config.Config, retriever *retrieval.Retriever, store storage.Storage, orch *advisor.Orchestrator, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:       cfg,
		retriever: retriever,
		store:     store,
		advisor:   orch,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.handleSearch)
		r.Post("/context", s.handleContext)
		r.Post("/advise", s.handleAdvise)
		r.Get("/cards", s.handleCards)
		r.Get("/cards/{name}", s.handleCard)
		r.Get("/status", s.handleStatus)
	})

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start blocks serving HTTP until the listener fails or Stop is called.
func (s *Server) Start() error {
	s.logger.Info("http server starting", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("http server stopping")
	return s.httpServer.Shutdown(ctx)
}
