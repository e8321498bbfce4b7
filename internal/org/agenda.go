package org

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
)

// Header opens every rendered agenda.
const Header = "Org Mode Agenda\n\n"

const nowPrefix = "now => "

// Origin locates an entry in its source document. Line and Col are 0-based.
type Origin struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Col  int    `json:"col"`
}

func (o Origin) String() string {
	return fmt.Sprintf("%s:%d", o.File, o.Line+1)
}

// Entry is one agenda item. Origin is nil only for the now-entry.
type Entry struct {
	Timestamp Timestamp `json:"timestamp"`
	Text      string    `json:"text"`
	Origin    *Origin   `json:"origin,omitempty"`
}

// IsNow reports whether e is the synthetic build-time marker.
func (e Entry) IsNow() bool { return e.Origin == nil }

// NowEntry returns the marker entry for the build time now.
func NowEntry(now time.Time) Entry {
	return Entry{
		Timestamp: Timestamp{Time: now, HasTime: true},
		Text:      now.Format(dateTimeLayout) + strings.Repeat("-", 80) + "\n",
	}
}

// Agenda is a rendered, sorted agenda. Lines[i] renders Entries[i].
type Agenda struct {
	Header  string    `json:"header"`
	Lines   []string  `json:"lines"`
	Entries []Entry   `json:"entries"`
	BuiltAt time.Time `json:"built_at"`
	Skipped []Problem `json:"skipped,omitempty"`
}

// String returns the agenda as a single text.
func (a *Agenda) String() string {
	var sb strings.Builder
	sb.WriteString(a.Header)
	for _, l := range a.Lines {
		sb.WriteString(l)
	}
	return sb.String()
}

// MalformedPolicy decides what a build does with malformed timestamps.
type MalformedPolicy int

const (
	// PolicySkip leaves the offending block out and keeps building.
	PolicySkip MalformedPolicy = iota
	// PolicyFail aborts the whole build.
	PolicyFail
)

// Clock supplies the build time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// Builder builds agendas from documents.
type Builder struct {
	locator  HeadlineLocator
	clock    Clock
	policy   MalformedPolicy
	nowEntry bool
	logger   *slog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLocator replaces the default OutlineLocator.
func WithLocator(l HeadlineLocator) BuilderOption {
	return func(b *Builder) { b.locator = l }
}

// WithClock sets the build-time source.
func WithClock(c Clock) BuilderOption {
	return func(b *Builder) { b.clock = c }
}

// WithPolicy sets the malformed timestamp policy.
func WithPolicy(p MalformedPolicy) BuilderOption {
	return func(b *Builder) { b.policy = p }
}

// WithNowEntry toggles the now-entry.
func WithNowEntry(enabled bool) BuilderOption {
	return func(b *Builder) { b.nowEntry = enabled }
}

// WithLogger sets the logger used for skipped blocks and weekday mismatches.
func WithLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) { b.logger = l }
}

// NewBuilder returns a Builder with the outline locator, the system clock,
// PolicySkip and the now-entry enabled.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		locator:  OutlineLocator{},
		clock:    SystemClock{},
		policy:   PolicySkip,
		nowEntry: true,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Locator returns the builder's headline locator.
func (b *Builder) Locator() HeadlineLocator { return b.locator }

// Now returns the current build time.
func (b *Builder) Now() time.Time { return b.clock.Now() }

// Policy returns the malformed timestamp policy.
func (b *Builder) Policy() MalformedPolicy { return b.policy }

// Failure returns the error a build must abort with given problems, or nil
// when the policy lets the build continue.
func (b *Builder) Failure(problems []Problem) error {
	if len(problems) == 0 || b.policy != PolicyFail {
		return nil
	}
	return fmt.Errorf("org: %s: %w", problems[0].Origin, problems[0].Err)
}

// Extract returns the entries of a single document, applying the builder's
// malformed timestamp policy.
func (b *Builder) Extract(doc *Document, loc *time.Location) ([]Entry, []Problem, error) {
	entries, problems := ExtractEntries(doc, b.locator, loc)
	if err := b.Failure(problems); err != nil {
		return nil, problems, err
	}
	b.LogProblems(problems)
	return entries, problems, nil
}

// LogProblems reports skipped headline blocks at Warn.
func (b *Builder) LogProblems(problems []Problem) {
	for _, p := range problems {
		b.logger.Warn("agenda: skipped headline",
			slog.String("file", p.Origin.File),
			slog.Int("line", p.Origin.Line+1),
			slog.String("error", p.Err.Error()))
	}
}

// Build extracts the dated entries of every document, in order, and
// assembles them into an agenda.
func (b *Builder) Build(docs []*Document) (*Agenda, error) {
	now := b.clock.Now()
	var (
		entries  []Entry
		problems []Problem
	)
	for _, doc := range docs {
		es, ps, err := b.Extract(doc, now.Location())
		if err != nil {
			return nil, err
		}
		entries = append(entries, es...)
		problems = append(problems, ps...)
	}
	a := b.assemble(entries, now)
	a.Skipped = problems
	return a, nil
}

// Assemble sorts already extracted entries and renders them.
func (b *Builder) Assemble(entries []Entry) *Agenda {
	return b.assemble(entries, b.clock.Now())
}

func (b *Builder) assemble(entries []Entry, now time.Time) *Agenda {
	all := make([]Entry, 0, len(entries)+1)
	if b.nowEntry {
		all = append(all, NowEntry(now))
	}
	all = append(all, entries...)
	slices.SortStableFunc(all, func(x, y Entry) int {
		return x.Timestamp.Time.Compare(y.Timestamp.Time)
	})

	lines := make([]string, len(all))
	for i, e := range all {
		if e.Timestamp.WeekdayMismatch && e.Origin != nil {
			b.logger.Warn("agenda: weekday does not match date",
				slog.String("file", e.Origin.File),
				slog.Int("line", e.Origin.Line+1),
				slog.String("weekday", e.Timestamp.Weekday),
				slog.String("date", e.Timestamp.String()))
		}
		lines[i] = FormatLine(e, now)
	}
	return &Agenda{
		Header:  Header,
		Lines:   lines,
		Entries: all,
		BuiltAt: now,
	}
}

// FormatLine renders one entry relative to the build time. Entries in the
// same week of the year as now omit their date.
func FormatLine(e Entry, now time.Time) string {
	if e.IsNow() {
		return nowPrefix + e.Text
	}
	if WeekNumber(e.Timestamp.Time) == WeekNumber(now) {
		return fmt.Sprintf("%s:%d: => %s", e.Origin.File, e.Origin.Line+1, e.Text)
	}
	return fmt.Sprintf("%s:%d: %s => %s", e.Origin.File, e.Origin.Line+1, e.Timestamp, e.Text)
}
