package index

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/orgagenda/internal/org"
)

// DocumentRow represents a row in the documents table.
type DocumentRow struct {
	Path       string    `json:"path"`
	Position   int       `json:"position"`
	Checksum   string    `json:"checksum"`
	EntryCount int       `json:"entry_count"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IndexedEntry is an agenda entry together with its vault path and its
// position within the document.
type IndexedEntry struct {
	Path  string    `json:"path"`
	Seq   int       `json:"seq"`
	Entry org.Entry `json:"entry"`
}

const entryColumns = `e.path, e.seq, e.file, e.line, e.col, e.ts, e.has_time, e.weekday, e.repeater, e.weekday_mismatch, e.text`

// ReplaceDocument upserts a document row and replaces all of its entries and
// skipped-block problems within a transaction. Both keep their slice order.
func (db *DB) ReplaceDocument(d DocumentRow, entries []org.Entry, problems []org.Problem) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO documents (path, position, checksum, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			position   = excluded.position,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, d.Path, d.Position, d.Checksum, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	if err := clearDocument(tx, d.Path); err != nil {
		return err
	}
	if len(entries) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO entries (path, seq, file, line, col, ts, has_time, weekday, repeater, weekday_mismatch, text)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("index: prepare entry insert: %w", err)
		}
		defer stmt.Close()
		for i, e := range entries {
			if e.Origin == nil {
				continue
			}
			ts := e.Timestamp
			if _, err := stmt.Exec(d.Path, i, e.Origin.File, e.Origin.Line, e.Origin.Col,
				ts.Time.Unix(), ts.HasTime, ts.Weekday, ts.Repeater, ts.WeekdayMismatch, e.Text); err != nil {
				return fmt.Errorf("index: insert entry: %w", err)
			}
		}
	}
	if len(problems) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO problems (path, seq, file, line, col, raw, cause, reason)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("index: prepare problem insert: %w", err)
		}
		defer stmt.Close()
		for i, p := range problems {
			var raw, cause string
			var mte *org.MalformedTimestampError
			if errors.As(p.Err, &mte) {
				raw = mte.Text
				if mte.Err != nil {
					cause = mte.Err.Error()
				}
			}
			reason := p.Reason
			if reason == "" && p.Err != nil {
				reason = p.Err.Error()
			}
			if _, err := stmt.Exec(d.Path, i, p.Origin.File, p.Origin.Line, p.Origin.Col, raw, cause, reason); err != nil {
				return fmt.Errorf("index: insert problem: %w", err)
			}
		}
	}

	return tx.Commit()
}

func clearDocument(tx *sql.Tx, path string) error {
	if _, err := tx.Exec(`DELETE FROM entries WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: clear entries: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM problems WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: clear problems: %w", err)
	}
	return nil
}

// SetPosition updates the agenda order of an indexed document.
func (db *DB) SetPosition(path string, position int) error {
	if _, err := db.conn.Exec(`UPDATE documents SET position = ? WHERE path = ?`, position, path); err != nil {
		return fmt.Errorf("index: set position: %w", err)
	}
	return nil
}

// DeleteDocument removes a document and its entries.
func (db *DB) DeleteDocument(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := clearDocument(tx, path); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM documents WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete document: %w", err)
	}

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a document, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, path).Scan(&cs)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns path -> checksum for every indexed document.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Documents returns every indexed document in agenda order.
func (db *DB) Documents() ([]DocumentRow, error) {
	rows, err := db.conn.Query(`
		SELECT d.path, d.position, d.checksum, d.updated_at,
		       (SELECT count(*) FROM entries e WHERE e.path = d.path)
		FROM documents d
		ORDER BY d.position, d.path
	`)
	if err != nil {
		return nil, fmt.Errorf("index: documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentRow
	for rows.Next() {
		var d DocumentRow
		if err := rows.Scan(&d.Path, &d.Position, &d.Checksum, &d.UpdatedAt, &d.EntryCount); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Entries returns every indexed entry in document order, then in-document
// order. Timestamps are expressed in loc.
func (db *DB) Entries(loc *time.Location) ([]IndexedEntry, error) {
	rows, err := db.conn.Query(`
		SELECT ` + entryColumns + `
		FROM entries e JOIN documents d ON d.path = e.path
		ORDER BY d.position, d.path, e.seq
	`)
	if err != nil {
		return nil, fmt.Errorf("index: entries: %w", err)
	}
	return scanEntries(rows, loc)
}

// EntriesBetween returns entries with from <= timestamp < to, ordered by
// timestamp and then by document order.
func (db *DB) EntriesBetween(from, to time.Time, loc *time.Location) ([]IndexedEntry, error) {
	rows, err := db.conn.Query(`
		SELECT `+entryColumns+`
		FROM entries e JOIN documents d ON d.path = e.path
		WHERE e.ts >= ? AND e.ts < ?
		ORDER BY e.ts, d.position, d.path, e.seq
	`, from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("index: entries between: %w", err)
	}
	return scanEntries(rows, loc)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search performs a LIKE-based search over entry text. The query matches
// literally; % and _ are not wildcards.
func (db *DB) Search(query string, limit int, loc *time.Location) ([]IndexedEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT `+entryColumns+`
		FROM entries e JOIN documents d ON d.path = e.path
		WHERE e.text LIKE ? ESCAPE '\'
		ORDER BY e.ts, d.position, d.path, e.seq
		LIMIT ?
	`, "%"+likeEscaper.Replace(query)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanEntries(rows, loc)
}

// Problems returns the skipped headline blocks of every indexed document in
// agenda order. Malformed timestamps come back as *org.MalformedTimestampError.
func (db *DB) Problems() ([]org.Problem, error) {
	rows, err := db.conn.Query(`
		SELECT p.file, p.line, p.col, p.raw, p.cause, p.reason
		FROM problems p JOIN documents d ON d.path = p.path
		ORDER BY d.position, d.path, p.seq
	`)
	if err != nil {
		return nil, fmt.Errorf("index: problems: %w", err)
	}
	defer rows.Close()

	var out []org.Problem
	for rows.Next() {
		var (
			p          org.Problem
			raw, cause string
		)
		if err := rows.Scan(&p.Origin.File, &p.Origin.Line, &p.Origin.Col, &raw, &cause, &p.Reason); err != nil {
			return nil, err
		}
		if raw != "" {
			p.Err = &org.MalformedTimestampError{Text: raw, Err: errors.New(cause)}
		} else {
			p.Err = errors.New(p.Reason)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanEntries(rows *sql.Rows, loc *time.Location) ([]IndexedEntry, error) {
	defer rows.Close()
	if loc == nil {
		loc = time.Local
	}

	var out []IndexedEntry
	for rows.Next() {
		var (
			ie     IndexedEntry
			origin org.Origin
			unix   int64
			ts     org.Timestamp
		)
		if err := rows.Scan(&ie.Path, &ie.Seq, &origin.File, &origin.Line, &origin.Col,
			&unix, &ts.HasTime, &ts.Weekday, &ts.Repeater, &ts.WeekdayMismatch, &ie.Entry.Text); err != nil {
			return nil, err
		}
		if origin.File == "" {
			origin.File = filepath.Base(ie.Path)
		}
		ts.Time = time.Unix(unix, 0).In(loc)
		ie.Entry.Timestamp = ts
		ie.Entry.Origin = &origin
		out = append(out, ie)
	}
	return out, rows.Err()
}
