package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/orgagenda/internal/agendaservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *agendaservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Agenda.
	r.Get("/agenda", h.Agenda)
	r.Get("/jump", h.Jump)

	// Entries.
	r.Get("/entries", h.Entries)
	r.Get("/search", h.Search)

	// Documents.
	r.Get("/documents", h.Documents)
	r.Get("/documents/*", h.Document)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
