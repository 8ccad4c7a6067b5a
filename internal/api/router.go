package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/device", func(r chi.Router) {
			// Fleet-wide reads and mode toggle. Registered before the
			// {device} routes so chi matches the literal segments first.
			r.Get("/status", s.handleAllDeviceStatus)
			r.Post("/toggle-mode", s.handleToggleMode)

			r.Route("/{device}", func(r chi.Router) {
				r.Get("/status", s.handleDeviceStatus)
				r.Get("/mode", s.handleDeviceMode)
				r.Get("/current-status", s.handleCurrentStatus)
				r.Get("/manual-state", s.handleManualState)
				r.Get("/view-data", s.handleViewData)
				r.Post("/save-state", s.handleSaveState)
				r.Post("/{action}", s.handleControl)
			})
		})

		r.Get("/realtime/{type}", s.handleRealtime)
		r.Get("/realtime-db/{type}", s.handleRealtimeDB)
		r.Get("/history/{type}", s.handleHistory)
	})

	return r
}
