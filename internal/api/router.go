// Package api implements the management REST surface (§6): routing,
// envelope conventions, and CORS, wired onto the per-resource handlers in
// internal/api/handlers.
//
// Grounded on the teacher's internal/api/router.go (chi global middleware
// stack, configurable CORS with the wildcard/credentials safety rule,
// nested r.Route groups per resource, plain /health and /version endpoints).
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mockforge/mockforge-go/internal/api/handlers"
)

// NewRouter builds the top-level HTTP handler for the management surface.
// corsOrigins follows the teacher's wildcard/credentials-safety rule: a
// single "*" entry disables AllowCredentials.
func NewRouter(h *handlers.Handlers, corsOrigins []string, version string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))

	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}
	isWildcard := len(corsOrigins) == 1 && corsOrigins[0] == "*"
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Mockforge-User", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: !isWildcard,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler)
	r.Get("/version", versionHandler(version))

	r.Route("/api/v2", func(r chi.Router) {
		r.Route("/state-machines", func(r chi.Router) {
			r.Post("/", h.UpsertStateMachine)
			r.Get("/", h.ListStateMachines)
			r.Get("/export", h.ExportStateMachines)
			r.Post("/import", h.ImportStateMachines)
			r.Route("/instances", func(r chi.Router) {
				r.Post("/", h.CreateInstance)
				r.Route("/{resourceID}", func(r chi.Router) {
					r.Post("/transition", h.TransitionInstance)
					r.Get("/next-states", h.NextStates)
				})
			})
			r.Route("/{resourceType}", func(r chi.Router) {
				r.Get("/", h.GetStateMachine)
				r.Delete("/", h.DeleteStateMachine)
			})
		})

		r.Route("/promotions", func(r chi.Router) {
			r.Post("/", h.CreatePromotion)
			r.Get("/pending", h.ListPendingPromotions)
			r.Get("/workspace/{id}", h.ListWorkspacePromotions)
			r.Get("/entity/{type}/{id}", h.EntityPromotionHistory)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetPromotion)
				r.Put("/status", h.UpdatePromotionStatus)
			})
		})

		r.Route("/fixtures", func(r chi.Router) {
			r.Get("/", h.ListFixtures)
			r.Post("/", h.CreateFixture)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetFixture)
				r.Put("/", h.UpdateFixture)
				r.Delete("/", h.DeleteFixture)
			})
		})

		r.Route("/pipelines", func(r chi.Router) {
			r.Get("/", h.ListPipelines)
			r.Post("/", h.CreatePipeline)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetPipeline)
				r.Put("/", h.UpdatePipeline)
				r.Delete("/", h.DeletePipeline)
				r.Get("/executions", h.PipelineExecutions)
			})
		})

		r.Post("/events", h.PublishEvent)
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy", "service": "mockforge"})
}

func versionHandler(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"version": version, "service": "mockforge"})
	}
}
