package api

import (
	"github.com/starford/orgagenda/internal/agendaservice"
	"github.com/starford/orgagenda/internal/index"
)

// AgendaResponse is the JSON form of a built agenda.
type AgendaResponse = agendaservice.Snapshot

// JumpResponse is the vault location an agenda line points at.
type JumpResponse = agendaservice.Target

// EntryListResponse wraps indexed entries.
type EntryListResponse struct {
	Entries []index.IndexedEntry `json:"entries" validate:"required"`
	Total   int                  `json:"total" example:"42" validate:"required"`
}

// DocumentListResponse wraps indexed documents.
type DocumentListResponse struct {
	Documents []index.DocumentRow `json:"documents" validate:"required"`
}
