package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", h.handleHealth)

	// WebSocket
	if h.Hub != nil {
		r.Get("/ws", h.Hub.ServeWs)
	}

	r.Route("/api", func(r chi.Router) {
		// Categories
		r.Get("/categories", h.handleGetCategories)
		r.Post("/categories", h.handleCreateCategory)
		r.Route("/categories/{id}", func(r chi.Router) {
			r.Get("/", h.handleGetCategory)
			r.Put("/override", h.handleSetOverride)
			r.Delete("/override", h.handleClearOverride)
			r.Get("/rules", h.handleGetRules)
			r.Post("/rules", h.handleCreateRule)
			r.Get("/stages", h.handleGetStages)

			// Qualification
			r.Post("/batches", h.handleCreateBatches)
			r.Post("/gates", h.handleAssignGates)
			r.Get("/batches/{batch}/standings", h.handleBatchStandings)

			// Bracket progression
			r.Post("/qualification", h.handleComputeQualification)
			r.Post("/elimination", h.handleComputeElimination)
			r.Get("/stage-results", h.handleStageResults)
			r.Get("/heats", h.handleGetCategoryHeats)
		})

		// Riders
		r.Get("/riders", h.handleGetRiders)
		r.Post("/riders", h.handleCreateRider)
		r.Put("/riders/{id}/absent", h.handleSetRiderAbsent)

		// Heats
		r.Route("/heats/{id}", func(r chi.Router) {
			r.Get("/lineup", h.handleGetLineup)
			r.Get("/qr", h.handleGetHeatQR)
			r.Post("/results", h.handleSubmitResults)
			r.Post("/start", h.handleStartHeat)
			r.Post("/status", h.handleSetHeatStatus)
			r.Put("/published", h.handleSetHeatPublished)
			r.Get("/penalties", h.handleGetPenalties)
			r.Post("/penalties", h.handleCreatePenalty)
		})
		r.Post("/penalties/{id}/approve", h.handleApprovePenalty)

		// Settings
		r.Get("/settings/base-url", h.handleGetBaseURL)
		r.Put("/settings/base-url", h.handleSetBaseURL)
	})

	return r
}
