package index

import (
	"log/slog"
	"time"

	"github.com/starford/orgagenda/internal/org"
	"github.com/starford/orgagenda/internal/storage"
)

// Parser turns the raw bytes of a vault document into agenda entries and
// the headline blocks it had to skip. An error means the document could not
// be parsed at all.
type Parser func(path string, data []byte) ([]org.Entry, []org.Problem, error)

// Change kinds reported by Sync.
const (
	ChangeCreated = "created"
	ChangeUpdated = "updated"
	ChangeDeleted = "deleted"
)

// Change describes one document-level index mutation.
type Change struct {
	Kind string
	Path string
}

// Sync walks the vault and brings the index up to date:
//   - new/changed files are parsed and their entries replaced
//   - unchanged files only have their agenda position refreshed
//   - files removed from disk are deleted from the index
//
// A file that fails to parse keeps whatever the index held for it before.
func Sync(db EntryIndex, store storage.Provider, parse Parser, logger *slog.Logger) ([]Change, error) {
	metas, err := store.List("")
	if err != nil {
		return nil, err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return nil, err
	}

	var changes []Change
	disk := make(map[string]struct{}, len(metas))
	for pos, m := range metas {
		disk[m.Path] = struct{}{}

		prev, known := checksums[m.Path]
		if known && prev == m.Checksum {
			if err := db.SetPosition(m.Path, pos); err != nil {
				logger.Warn("sync: set position failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			}
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		entries, problems, err := parse(m.Path, data)
		if err != nil {
			logger.Warn("sync: parse failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		row := DocumentRow{Path: m.Path, Position: pos, Checksum: m.Checksum, UpdatedAt: updatedAt(m.UpdatedAt)}
		if err := db.ReplaceDocument(row, entries, problems); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		kind := ChangeUpdated
		if !known {
			kind = ChangeCreated
		}
		logger.Debug("sync: indexed", slog.String("path", m.Path), slog.String("op", kind), slog.Int("entries", len(entries)), slog.Int("problems", len(problems)))
		changes = append(changes, Change{Kind: kind, Path: m.Path})
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeleteDocument(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: removed stale", slog.String("path", p))
		changes = append(changes, Change{Kind: ChangeDeleted, Path: p})
	}

	return changes, nil
}

func updatedAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
