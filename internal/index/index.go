package index

import (
	"time"

	"github.com/starford/orgagenda/internal/org"
)

// EntryIndex defines the interface for agenda entry indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type EntryIndex interface {
	ReplaceDocument(d DocumentRow, entries []org.Entry, problems []org.Problem) error
	SetPosition(path string, position int) error
	DeleteDocument(path string) error
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	Documents() ([]DocumentRow, error)
	Entries(loc *time.Location) ([]IndexedEntry, error)
	EntriesBetween(from, to time.Time, loc *time.Location) ([]IndexedEntry, error)
	Search(query string, limit int, loc *time.Location) ([]IndexedEntry, error)
	Problems() ([]org.Problem, error)
	Close() error
}

// Verify *DB satisfies EntryIndex at compile time.
var _ EntryIndex = (*DB)(nil)
