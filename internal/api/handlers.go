package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/orgagenda/internal/agendaservice"
	"github.com/starford/orgagenda/internal/apperr"
)

// Handler holds API route handlers.
type Handler struct {
	svc *agendaservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *agendaservice.Service) *Handler {
	return &Handler{svc: svc}
}

// documentPath extracts the document path from the URL (everything after /api/documents/).
// Supports encoded slashes from OpenAPI clients (e.g. work%2Ftodo.org).
func documentPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// Agenda handles GET /api/agenda.
//
//	@Summary		Build the agenda
//	@Tags			agenda
//	@Produce		plain,json
//	@Param			format	query		string	false	"Response format"	Enums(text, json)
//	@Param			source	query		string	false	"Entry source"	Enums(index, vault)
//	@Success		200		{object}	AgendaResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/agenda [get]
func (h *Handler) Agenda(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		snap *agendaservice.Snapshot
		err  error
	)
	if q.Get("source") == "vault" {
		snap, err = h.svc.BuildFromVault(r.Context())
	} else {
		snap, err = h.svc.Build(r.Context())
	}
	if err != nil {
		slog.Error("build agenda failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
		return
	}

	w.Header().Set("X-Agenda-Id", snap.ID)
	if q.Get("format") == "json" {
		writeJSON(w, http.StatusOK, snap)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(snap.String()))
}

// Entries handles GET /api/entries.
//
//	@Summary		List indexed entries, optionally within a time range
//	@Tags			entries
//	@Produce		json
//	@Param			from	query		string	false	"Inclusive lower bound (RFC 3339 or YYYY-MM-DD)"
//	@Param			to		query		string	false	"Exclusive upper bound (RFC 3339 or YYYY-MM-DD)"
//	@Success		200		{object}	EntryListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries [get]
func (h *Handler) Entries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	loc := h.svc.Location()
	from, err := agendaservice.ParseBound(q.Get("from"), loc)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid 'from'"))
		return
	}
	to, err := agendaservice.ParseBound(q.Get("to"), loc)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid 'to'"))
		return
	}

	entries, err := h.svc.Entries(r.Context(), from, to)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, errorBody("'from' must be before 'to'"))
			return
		}
		slog.Error("list entries failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, EntryListResponse{Entries: entries, Total: len(entries)})
}

// Search handles GET /api/search.
//
//	@Summary		Search entry text
//	@Tags			entries
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	EntryListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, EntryListResponse{Entries: results, Total: len(results)})
}

// Documents handles GET /api/documents.
//
//	@Summary		List indexed documents in agenda order
//	@Tags			documents
//	@Produce		json
//	@Success		200	{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) Documents(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.Documents(r.Context())
	if err != nil {
		slog.Error("list documents failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: docs})
}

// Document handles GET /api/documents/*.
//
//	@Summary		Read the raw text of an org document
//	@Tags			documents
//	@Produce		plain
//	@Param			path	path		string	true	"Document path"
//	@Success		200		{string}	string
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [get]
func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	path := documentPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	data, err := h.svc.ReadDocument(r.Context(), path)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrInvalidInput):
			writeJSON(w, http.StatusBadRequest, errorBody("invalid path"))
		default:
			slog.Error("read document failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Jump handles GET /api/jump.
//
//	@Summary		Resolve an agenda line to its source file and line
//	@Tags			agenda
//	@Produce		json
//	@Param			line	query		string	true	"Rendered agenda line"
//	@Success		200		{object}	JumpResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/jump [get]
func (h *Handler) Jump(w http.ResponseWriter, r *http.Request) {
	line := r.URL.Query().Get("line")
	if line == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'line' is required"))
		return
	}
	target, err := h.svc.Resolve(r.Context(), line)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrInvalidInput):
			writeJSON(w, http.StatusBadRequest, errorBody("line has no source location"))
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		default:
			slog.Error("jump failed", slog.String("line", line), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, target)
}
