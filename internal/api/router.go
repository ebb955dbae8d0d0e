package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tidy/internal/tidyservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *tidyservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/status", h.Status)

	// Background loop.
	r.Route("/organizer", func(r chi.Router) {
		r.Post("/start", h.Start)
		r.Post("/stop", h.Stop)
		r.Post("/cycle", h.Cycle)
	})

	// Rules CRUD.
	r.Get("/rules", h.ListRules)
	r.Post("/rules", h.AddRule)
	r.Put("/rules/{index}", h.UpdateRule)
	r.Delete("/rules", h.RemoveRules)

	// Dry run and bucket table.
	r.Get("/classify", h.Classify)
	r.Get("/buckets", h.Buckets)

	// Journal.
	r.Get("/activity", h.Activity)
	r.Get("/activity/stats", h.ActivityStats)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
