// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/orgagenda/internal/models"

// Provider is the interface for reading org files from the vault.
type Provider interface {
	// List returns metadata for every .org file under dir (relative to vault root),
	// in agenda document order.
	List(dir string) ([]models.DocumentMeta, error)
	// Read returns the raw bytes of the file at path (relative to vault root).
	Read(path string) ([]byte, error)
}
