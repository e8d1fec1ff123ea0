// Package core provides the HTTP chassis for the Courseboard scheduling
// service: a chi router with request-id, logging, panic recovery, and
// bearer-secret middleware in front of the internal worker endpoints, plus
// the public health endpoint.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"courseboard/internal/config"
	"courseboard/internal/scheduler"
)

// PublishRunner runs one publish pass. Implemented by scheduler.PublishWorker.
type PublishRunner interface {
	Run(ctx context.Context, now time.Time) (scheduler.PublishReport, error)
}

// DispatchRunner runs one email dispatch pass. Implemented by
// scheduler.DispatchWorker.
type DispatchRunner interface {
	Run(ctx context.Context, now time.Time) (scheduler.DispatchReport, error)
}

// Server encapsulates the HTTP-facing dependencies of the service, allowing
// injection during testing and distinct configuration per environment.
type Server struct {
	Config       *config.Config
	Logger       *slog.Logger
	Publish      PublishRunner
	Dispatch     DispatchRunner
	HealthProbes []HealthProbe

	router *chi.Mux
}

// NewServer initializes the server and prepares it for route mounting. It
// fails fast on missing critical dependencies. The caller mounts routes via
// MountRoutes after construction; the separation lets tests customize route
// registration.
func NewServer(
	cfg *config.Config,
	publish PublishRunner,
	dispatch DispatchRunner,
	logger *slog.Logger,
) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if publish == nil || dispatch == nil {
		return nil, fmt.Errorf("workers must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		Config:   cfg,
		Logger:   logger,
		Publish:  publish,
		Dispatch: dispatch,
		router:   chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler interface for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}
