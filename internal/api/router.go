package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// A non-empty token enables bearer auth on every route.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(h *Handler, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	if auth := BearerAuth(token); auth != nil {
		r.Use(auth)
	}

	// Catalog.
	r.Get("/operations", h.ListOperations)
	r.Get("/operations/{name}", h.GetOperation)
	r.Post("/operations/{name}", h.InvokeOperation)

	// Batches.
	r.Post("/batch", h.RunBatch)
	r.Get("/batch/{runID}", h.GetRun)

	// Vault import.
	r.Post("/import", h.Import)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
