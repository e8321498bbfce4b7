package org

import (
	"strings"
	"time"
)

// HeadlineBlock is the text of one headline region.
type HeadlineBlock struct {
	Source  string
	Region  Region
	RawText string
}

// ScanHeadlines returns the headline blocks of doc in document order. Each
// block's RawText is its lines joined by newlines and followed by "\n\n".
func ScanHeadlines(doc *Document, locator HeadlineLocator) []HeadlineBlock {
	regions := locator.Headlines(doc)
	blocks := make([]HeadlineBlock, 0, len(regions))
	for _, r := range regions {
		blocks = append(blocks, HeadlineBlock{
			Source:  doc.DisplayName(),
			Region:  r,
			RawText: strings.Join(doc.ReadLines(r), "\n") + "\n\n",
		})
	}
	return blocks
}

// Problem records a headline block that was left out of the agenda.
type Problem struct {
	Origin Origin `json:"origin"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

func (p Problem) Error() string {
	return p.Origin.String() + ": " + p.Err.Error()
}

// ExtractEntries turns the dated headline blocks of doc into entries.
// Undated blocks are dropped silently; blocks with a malformed timestamp
// are reported as problems.
func ExtractEntries(doc *Document, locator HeadlineLocator, loc *time.Location) ([]Entry, []Problem) {
	var (
		entries  []Entry
		problems []Problem
	)
	for _, b := range ScanHeadlines(doc, locator) {
		origin := Origin{File: b.Source, Line: b.Region.StartLine, Col: b.Region.StartCol}
		ts, ok, err := ParseTimestamp(b.RawText, loc)
		if err != nil {
			problems = append(problems, Problem{Origin: origin, Reason: err.Error(), Err: err})
			continue
		}
		if !ok {
			continue
		}
		entries = append(entries, Entry{
			Timestamp: ts,
			Text:      strings.TrimLeft(b.RawText, " *"),
			Origin:    &origin,
		})
	}
	return entries, problems
}
