// Package server is the vibe backend: chat completions, speech synthesis
// and audio transcription over a small JSON HTTP API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dooshek/vibe/internal/llm"
	"github.com/dooshek/vibe/internal/logger"
	"github.com/dooshek/vibe/internal/metrics"
	"github.com/dooshek/vibe/internal/types"
	"github.com/dooshek/vibe/internal/usage"
)

// Completer answers a chat completion request.
type Completer interface {
	Completion(ctx context.Context, req llm.CompletionRequest) (string, error)
}

// Transcriber turns an uploaded clip into text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio llm.AudioReader) (string, error)
}

// Synthesizer renders a reply as a WAV file.
type Synthesizer interface {
	GetAudio(ctx context.Context, text string) ([]byte, error)
}

// Deps are the collaborators a Server calls into. Speech may be nil, in
// which case replies are never spoken. Usage may be nil to skip tracking.
type Deps struct {
	Chat        Completer
	Transcriber Transcriber
	Speech      Synthesizer
	Usage       *usage.Tracker
	Registry    *prometheus.Registry
}

// Server provides the backend HTTP API
type Server struct {
	server  *http.Server
	config  *types.ServerConfig
	deps    Deps
	metrics *metrics.Metrics
	handler http.Handler
}

// New builds a server. A nil registry gets a fresh one.
func New(cfg *types.ServerConfig, deps Deps) *Server {
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}

	s := &Server{
		config:  cfg,
		deps:    deps,
		metrics: metrics.NewMetrics(deps.Registry),
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux)
	s.handler = withRequestID(withCORS(mux))

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// setupRoutes configures HTTP API routes
func (s *Server) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.withMetrics("/health", s.handleHealth))
	mux.HandleFunc("/api/chat", s.withMetrics("/api/chat", s.handleChat))
	mux.HandleFunc("/api/transcribe", s.withMetrics("/api/transcribe", s.handleTranscribe))
	mux.HandleFunc("/api/usage", s.withMetrics("/api/usage", s.handleUsage))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.HandlerFor(s.deps.Registry, promhttp.HandlerOpts{}))
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start serves in the background. Listen errors other than a clean
// shutdown are sent on the returned channel.
func (s *Server) Start() <-chan error {
	logger.Infof("Starting HTTP API server on %s", s.server.Addr)

	errs := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", err)
			errs <- err
		}
		close(errs)
	}()
	return errs
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	logger.Info("Stopping HTTP API server...")
	return s.server.Shutdown(ctx)
}
