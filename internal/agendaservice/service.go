// Package agendaservice coordinates the vault, the entry index and the
// agenda builder.
package agendaservice

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/starford/orgagenda/internal/apperr"
	"github.com/starford/orgagenda/internal/index"
	"github.com/starford/orgagenda/internal/org"
	"github.com/starford/orgagenda/internal/storage"
)

// Snapshot is one built agenda, stamped with a sortable id.
type Snapshot struct {
	ID string `json:"id"`
	*org.Agenda
}

// Target is the vault file and 1-based line an agenda line points at.
type Target struct {
	Path string `json:"path"`
	Line int    `json:"line"`
}

// Service coordinates storage, index and agenda operations.
type Service struct {
	store   storage.Provider
	db      index.EntryIndex
	builder *org.Builder
	loc     *time.Location
	logger  *slog.Logger
}

// NewService creates a new agenda service. db may be nil for callers that
// only build straight from the vault.
func NewService(store storage.Provider, db index.EntryIndex, builder *org.Builder, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, db: db, builder: builder, loc: loc, logger: logger}
}

// Location returns the time zone timestamps are read in.
func (s *Service) Location() *time.Location { return s.loc }

// ParseDocument extracts the agenda entries of one vault document together
// with the headline blocks that carry a malformed timestamp. It satisfies
// index.Parser. The malformed timestamp policy is applied at build time, so
// the index always holds the current state of every document.
func (s *Service) ParseDocument(path string, data []byte) ([]org.Entry, []org.Problem, error) {
	entries, problems := org.ExtractEntries(org.NewDocument(path, string(data)), s.builder.Locator(), s.loc)
	s.builder.LogProblems(problems)
	return entries, problems, nil
}

// Build assembles an agenda from the entry index. Under org.PolicyFail any
// indexed problem aborts the build with its *org.MalformedTimestampError.
func (s *Service) Build(_ context.Context) (*Snapshot, error) {
	if s.db == nil {
		return nil, errors.New("agendaservice: no index configured")
	}
	problems, err := s.db.Problems()
	if err != nil {
		return nil, err
	}
	if err := s.builder.Failure(problems); err != nil {
		return nil, err
	}
	rows, err := s.db.Entries(s.loc)
	if err != nil {
		return nil, err
	}
	entries := make([]org.Entry, len(rows))
	for i, r := range rows {
		entries[i] = r.Entry
	}
	a := s.builder.Assemble(entries)
	a.Skipped = problems
	return s.snapshot(a)
}

// BuildFromVault reads every vault document and runs the full agenda build
// over them, bypassing the index.
func (s *Service) BuildFromVault(ctx context.Context) (*Snapshot, error) {
	metas, err := s.store.List("")
	if err != nil {
		return nil, err
	}
	docs := make([]*org.Document, 0, len(metas))
	for _, m := range metas {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := s.store.Read(m.Path)
		if err != nil {
			return nil, err
		}
		docs = append(docs, org.NewDocument(m.Path, string(data)))
	}
	a, err := s.builder.Build(docs)
	if err != nil {
		return nil, err
	}
	return s.snapshot(a)
}

func (s *Service) snapshot(a *org.Agenda) (*Snapshot, error) {
	id, err := ulid.New(ulid.Timestamp(a.BuiltAt), ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		return nil, fmt.Errorf("agendaservice: snapshot id: %w", err)
	}
	s.logger.Debug("agenda built",
		slog.String("id", id.String()),
		slog.Int("entries", len(a.Entries)),
		slog.Int("skipped", len(a.Skipped)))
	return &Snapshot{ID: id.String(), Agenda: a}, nil
}

// Entries returns indexed entries. A zero from or to leaves that side open.
func (s *Service) Entries(_ context.Context, from, to time.Time) ([]index.IndexedEntry, error) {
	if s.db == nil {
		return nil, errors.New("agendaservice: no index configured")
	}
	if from.IsZero() && to.IsZero() {
		return nonNilSlice(s.db.Entries(s.loc))
	}
	if from.IsZero() {
		from = time.Unix(-1<<62, 0)
	}
	if to.IsZero() {
		to = time.Unix(1<<62, 0)
	}
	if !from.Before(to) {
		return nil, fmt.Errorf("agendaservice: from must be before to: %w", apperr.ErrInvalidInput)
	}
	return nonNilSlice(s.db.EntriesBetween(from, to, s.loc))
}

// Documents lists the indexed documents in agenda order.
func (s *Service) Documents(_ context.Context) ([]index.DocumentRow, error) {
	if s.db == nil {
		return nil, errors.New("agendaservice: no index configured")
	}
	return nonNilSlice(s.db.Documents())
}

// Search finds indexed entries whose text contains query.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.IndexedEntry, error) {
	if s.db == nil {
		return nil, errors.New("agendaservice: no index configured")
	}
	if query == "" {
		return nil, fmt.Errorf("agendaservice: empty query: %w", apperr.ErrInvalidInput)
	}
	return nonNilSlice(s.db.Search(query, limit, s.loc))
}

// ReadDocument returns the raw content of a vault document.
func (s *Service) ReadDocument(_ context.Context, path string) ([]byte, error) {
	return s.store.Read(path)
}

// Resolve maps a rendered agenda line back to its vault file. Agenda lines
// carry only the file's base name; the first vault document, in agenda
// order, with that base name wins.
func (s *Service) Resolve(_ context.Context, line string) (*Target, error) {
	loc, err := org.ParseLocation(line)
	if err != nil {
		return nil, fmt.Errorf("agendaservice: resolve: %w: %w", apperr.ErrInvalidInput, err)
	}
	metas, err := s.store.List("")
	if err != nil {
		return nil, err
	}
	for _, m := range metas {
		if filepath.Base(m.Path) == loc.File {
			return &Target{Path: m.Path, Line: loc.Line}, nil
		}
	}
	return nil, fmt.Errorf("agendaservice: resolve %s: %w", loc.File, apperr.ErrNotFound)
}

// ParseBound parses an entry range bound given as RFC 3339 or as a bare
// YYYY-MM-DD date in loc. An empty value yields the zero time.
func ParseBound(v string, loc *time.Location) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, v, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("agendaservice: bound %q: %w", v, apperr.ErrInvalidInput)
	}
	return t, nil
}

func nonNilSlice[T any](s []T, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	if s == nil {
		return []T{}, nil
	}
	return s, nil
}
