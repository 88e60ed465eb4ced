// Package server provides the HTTP API for Lexsy.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/lexsy/internal/config"
	"github.com/hyperjump/lexsy/internal/ingest"
	"github.com/hyperjump/lexsy/internal/knowledge"
	"github.com/hyperjump/lexsy/internal/mail"
	"github.com/hyperjump/lexsy/internal/qa"
)

// Server is the HTTP server for the Lexsy API.
type Server struct {
	ingest *ingest.Pipeline
	qa     *qa.Pipeline
	store  *knowledge.Store
	mail   mail.Provider
	config *config.ServerConfig
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server with the given dependencies. mailProvider may
// be nil; thread ingestion then always uses the demonstration thread.
func NewServer(
	ingestPipeline *ingest.Pipeline,
	qaPipeline *qa.Pipeline,
	store *knowledge.Store,
	mailProvider mail.Provider,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		ingest: ingestPipeline,
		qa:     qaPipeline,
		store:  store,
		mail:   mailProvider,
		config: cfg,
		logger: logger,
	}
}

// Handler returns the routed API handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(sentryMiddleware)
	if timeout := s.config.RequestTimeout(); timeout > 0 {
		r.Use(middleware.Timeout(timeout))
	}

	r.Get("/health", s.handleHealth)
	r.Get("/auth/gmail/status", s.handleMailStatus)

	r.Route("/api", func(r chi.Router) {
		r.Post("/documents/{client_id}/upload", s.handleUpload)
		r.Post("/emails/{client_id}/ingest", s.handleIngestEmails)
		r.Post("/emails/{client_id}/ingest-sample-emails", s.handleIngestSampleEmails)
		r.Post("/gmail/{client_id}/ingest-thread", s.handleIngestThread)
		r.Post("/gmail/{client_id}/ingest-demo", s.handleIngestDemoThread)
		r.Post("/chat/{client_id}/ask", s.handleAsk)
		r.Get("/clients/{client_id}/knowledge", s.handleKnowledge)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
