// Package api exposes the HTTP surface: connector administration and
// the indexing trigger.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/custodia-labs/inlet/internal/core/domain"
	"github.com/custodia-labs/inlet/internal/core/ports/driven"
	"github.com/custodia-labs/inlet/internal/core/ports/driving"
	"github.com/custodia-labs/inlet/internal/logger"
)

// ownerHeader carries the caller identity. Authentication proper is
// out of scope; the deployment fronts this service with a gateway.
const ownerHeader = "X-Owner-ID"

// Server wires the HTTP routes to the core services.
type Server struct {
	admin      driving.ConnectorAdmin
	dispatcher driving.Dispatcher
	reports    driven.RunReportStore

	httpServer *http.Server
	now        func() time.Time
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithServerClock overrides the server clock. Used by tests.
func WithServerClock(now func() time.Time) ServerOption {
	return func(s *Server) { s.now = now }
}

// NewServer creates the HTTP server for the given listen address.
func NewServer(
	addr string,
	admin driving.ConnectorAdmin,
	dispatcher driving.Dispatcher,
	reports driven.RunReportStore,
	opts ...ServerOption,
) *Server {
	s := &Server{
		admin:      admin,
		dispatcher: dispatcher,
		reports:    reports,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router builds the route tree. Exposed separately so tests can drive
// handlers without a listener.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/connectors", func(r chi.Router) {
			r.Post("/", s.handleCreateConnector)
			r.Get("/", s.handleListConnectors)

			r.Route("/{connectorID}", func(r chi.Router) {
				r.Get("/", s.handleGetConnector)
				r.Put("/", s.handleUpdateConnector)
				r.Delete("/", s.handleDeleteConnector)
				r.Post("/index", s.handleTriggerIndex)
				r.Get("/runs", s.handleListRuns)
			})
		})
	})

	return r
}

// ListenAndServe runs the HTTP server until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrUnsupportedType),
		errors.Is(err, domain.ErrNotIndexable),
		errors.Is(err, domain.ErrMissingCredential):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
