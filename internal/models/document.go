// Package models defines the shared domain types for orgagenda.
package models

import "time"

// DocumentMeta is a lightweight description of an org file in the vault.
type DocumentMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
