package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/amaumene/mona/internal/api/handlers"
	"github.com/amaumene/mona/internal/api/middleware"
	"github.com/amaumene/mona/internal/config"
	ghandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Server represents the HTTP server
type Server struct {
	server *http.Server
	logger *logrus.Logger
}

// NewServer creates a new HTTP server
func NewServer(
	cfg *config.Config,
	resolver handlers.Resolver,
	tokens handlers.TokenReporter,
	cache handlers.CacheReporter,
	gatherer prometheus.Gatherer,
	logger *logrus.Logger,
) *Server {
	s := &Server{logger: logger}

	router := mux.NewRouter()
	s.setupRoutes(router, cfg, resolver, tokens, cache, gatherer)

	// Outermost first: recovery, request id, tracing, logging
	var handler http.Handler = middleware.Logging(router, logger)
	handler = middleware.Tracing(handler)
	handler = middleware.RequestID(handler)
	handler = ghandlers.RecoveryHandler(
		ghandlers.RecoveryLogger(logger),
		ghandlers.PrintRecoveryStack(true),
	)(handler)

	s.server = &http.Server{
		Addr:        ":" + cfg.ServerPort,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// A resolution may wait on several upstream calls
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(router *mux.Router, cfg *config.Config, resolver handlers.Resolver, tokens handlers.TokenReporter, cache handlers.CacheReporter, gatherer prometheus.Gatherer) {
	// Artwork redirects
	artworkHandler := handlers.NewArtworkHandler(resolver, cfg.DefaultLanguage, cfg.RedirectStatus, s.logger)
	router.HandleFunc("/poster", artworkHandler.Poster).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc("/fanart", artworkHandler.Fanart).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc("/torrent-art", artworkHandler.TorrentArt).Methods(http.MethodGet, http.MethodHead)

	// Health check
	healthHandler := handlers.NewHealthHandler(s.logger)
	router.Handle("/healthcheck", healthHandler).Methods(http.MethodGet, http.MethodHead)

	// Status endpoint
	statusHandler := handlers.NewStatusHandler(tokens, cache, s.logger)
	router.Handle("/status", statusHandler).Methods(http.MethodGet)

	// Prometheus metrics
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
}

// Handler exposes the full middleware chain, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server and blocks until ctx is done or the listener fails
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("port", s.server.Addr).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
