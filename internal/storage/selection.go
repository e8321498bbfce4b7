package storage

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/starford/orgagenda/internal/apperr"
	"github.com/starford/orgagenda/internal/models"
)

// Selection restricts an FS to an explicit, ordered list of files.
// List returns the files in the configured order and silently omits
// those that do not exist yet.
type Selection struct {
	fs    *FS
	files []string
	index map[string]struct{}
}

// Select returns a Provider that exposes only files, in that order.
// Duplicate entries keep their first position.
func Select(fsys *FS, files []string) *Selection {
	s := &Selection{fs: fsys, index: make(map[string]struct{}, len(files))}
	for _, f := range files {
		f = filepath.Clean(f)
		if _, dup := s.index[f]; dup {
			continue
		}
		s.index[f] = struct{}{}
		s.files = append(s.files, f)
	}
	return s
}

// List implements Provider. dir is ignored; the selection is flat.
func (s *Selection) List(_ string) ([]models.DocumentMeta, error) {
	out := make([]models.DocumentMeta, 0, len(s.files))
	for _, f := range s.files {
		meta, err := s.fs.Stat(f)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("storage: list selection: %w", err)
		}
		out = append(out, meta)
	}
	return out, nil
}

// Read implements Provider. Files outside the selection are not found.
func (s *Selection) Read(path string) ([]byte, error) {
	if !s.Contains(path) {
		return nil, fmt.Errorf("storage: read %s: %w", path, apperr.ErrNotFound)
	}
	return s.fs.Read(path)
}

// Contains reports whether path is part of the selection.
func (s *Selection) Contains(path string) bool {
	_, ok := s.index[filepath.Clean(path)]
	return ok
}
