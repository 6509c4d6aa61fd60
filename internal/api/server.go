// Package api serves read-only HTTP accessors for the current snapshot and a
// websocket stream of completed cycles.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/dm/fleetmon-go/internal/engine"
	"github.com/dm/fleetmon-go/internal/metrics"
	"github.com/dm/fleetmon-go/internal/model"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 10 * time.Second
	defaultIdleTimeout  = 60 * time.Second
	shutdownTimeout     = 5 * time.Second
)

// Source is the read side of the poll scheduler. Handlers derive figures
// from a single Snapshot call so one response never mixes two cycles.
type Source interface {
	Snapshot() *model.Snapshot
	State() engine.State
	Subscribe(fn func(engine.Update)) (unsubscribe func())
}

// Server is the HTTP API.
type Server struct {
	router     *mux.Router
	source     Source
	logger     zerolog.Logger
	recorder   *metrics.Recorder
	thresholds engine.AlertThresholds
	now        func() time.Time
	origins    map[string]struct{}

	hub         *hub
	unsubscribe func()
	closeOnce   sync.Once
}

// NewServer builds the router and subscribes the stream hub to src.
func NewServer(src Source, options ...func(*Server)) *Server {
	s := &Server{
		router:     mux.NewRouter(),
		source:     src,
		logger:     zerolog.Nop(),
		thresholds: engine.DefaultAlertThresholds(0),
		now:        time.Now,
	}

	for _, o := range options {
		o(s)
	}

	s.hub = newHub(s.logger)
	s.unsubscribe = src.Subscribe(s.hub.broadcast)
	s.setupRoutes()

	return s
}

// WithLogger sets the server logger.
func WithLogger(l zerolog.Logger) func(*Server) {
	return func(s *Server) {
		s.logger = l.With().Str("component", "api").Logger()
	}
}

// WithMetrics instruments every route and serves /metrics from rec.
func WithMetrics(rec *metrics.Recorder) func(*Server) {
	return func(s *Server) {
		s.recorder = rec
	}
}

// WithAlertThresholds sets the thresholds used by /api/alerts.
func WithAlertThresholds(th engine.AlertThresholds) func(*Server) {
	return func(s *Server) {
		s.thresholds = th
	}
}

// WithNow overrides the clock used for alert staleness.
func WithNow(now func() time.Time) func(*Server) {
	return func(s *Server) {
		s.now = now
	}
}

// WithAllowedOrigins restricts websocket upgrades to the given origins.
// Without it, only same-host origins are accepted.
func WithAllowedOrigins(origins ...string) func(*Server) {
	return func(s *Server) {
		s.origins = make(map[string]struct{}, len(origins))
		for _, o := range origins {
			s.origins[o] = struct{}{}
		}
	}
}

func (s *Server) setupRoutes() {
	if s.recorder != nil {
		s.router.Use(s.recorder.Middleware)
		s.router.Handle("/metrics", s.recorder.Handler()).Methods(http.MethodGet)
	}

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	apiRouter := s.router.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/snapshot", s.handleSnapshot).Methods(http.MethodGet)
	apiRouter.HandleFunc("/aggregate", s.handleAggregate).Methods(http.MethodGet)
	apiRouter.HandleFunc("/devices", s.handleDevices).Methods(http.MethodGet)
	apiRouter.HandleFunc("/devices/{id:[0-9]+}", s.handleDevice).Methods(http.MethodGet)
	apiRouter.HandleFunc("/alerts", s.handleAlerts).Methods(http.MethodGet)
	apiRouter.HandleFunc("/stream", s.handleStream).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, "Not found", http.StatusNotFound)
	})
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("HTTP API listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		s.Close()
		return err
	case <-ctx.Done():
	}

	s.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info().Msg("HTTP API stopped")
	return nil
}

// Close detaches from the source and disconnects stream clients.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		s.unsubscribe()
		s.hub.close()
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeError(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")

	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(ErrorResponse{Message: message, Status: statusCode}); err != nil {
		http.Error(w, "Failed to encode error response", http.StatusInternalServerError)
	}
}
