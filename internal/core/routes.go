package core

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"courseboard/internal/types"
)

// MountRoutes registers all routes and middleware on the server's router.
//
//	GET /health                      public, concurrent probes
//	GET /internal/cron/publish-due   bearer cron secret
//	GET /internal/cron/dispatch-emails  bearer cron secret
func (s *Server) MountRoutes() {
	r := s.router

	r.Use(s.Recoverer)
	r.Use(RequestID)
	r.Use(RequestLogger(s.Logger))

	r.Get("/health", s.HandleHealth)

	r.Route("/internal/cron", func(r chi.Router) {
		r.Use(s.CronAuth)
		r.Get("/publish-due", s.HandlePublishDue)
		r.Get("/dispatch-emails", s.HandleDispatchEmails)
	})
}

// HandlePublishDue runs one publish pass and reports counts and per-item
// errors in-band. Item failures still yield 200; only a selection failure
// is a 500.
func (s *Server) HandlePublishDue(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()

	report, err := s.Publish.Run(r.Context(), now)
	if err != nil {
		s.Logger.ErrorContext(r.Context(), "publish pass failed", "error", err)
		Error(w, r, types.NewAppError(
			types.ErrCodeInternalDB,
			"failed to run publish pass",
			err,
		))
		return
	}

	JSON(w, r, http.StatusOK, report)
}

// HandleDispatchEmails runs one email dispatch pass. Same error contract as
// HandlePublishDue.
func (s *Server) HandleDispatchEmails(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()

	report, err := s.Dispatch.Run(r.Context(), now)
	if err != nil {
		s.Logger.ErrorContext(r.Context(), "dispatch pass failed", "error", err)
		Error(w, r, types.NewAppError(
			types.ErrCodeInternalDB,
			"failed to run dispatch pass",
			err,
		))
		return
	}

	JSON(w, r, http.StatusOK, report)
}
