// Package org extracts dated headline entries from org outline documents and
// assembles them into a chronologically ordered agenda.
package org

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Document is a named, line-addressable org text.
type Document struct {
	Name  string
	Lines []string
}

// NewDocument splits content into lines. A trailing carriage return on each
// line is dropped so CRLF files behave like LF files.
func NewDocument(name, content string) *Document {
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return &Document{Name: name, Lines: lines}
}

// DisplayName returns the basename of the document identifier.
func (d *Document) DisplayName() string {
	return filepath.Base(d.Name)
}

// Region identifies a span of a document. Lines are 0-based and EndLine is
// inclusive.
type Region struct {
	StartLine int `json:"start_line"`
	StartCol  int `json:"start_col"`
	EndLine   int `json:"end_line"`
	EndCol    int `json:"end_col"`
}

// ReadLines returns every full line touched by r. Out-of-range bounds are
// clamped to the document.
func (d *Document) ReadLines(r Region) []string {
	start, end := max(r.StartLine, 0), min(r.EndLine, len(d.Lines)-1)
	if start > end {
		return nil
	}
	return d.Lines[start : end+1]
}

// HeadlineLocator finds the regions of a document that hold headline blocks.
type HeadlineLocator interface {
	Headlines(doc *Document) []Region
}

var headlineRe = regexp.MustCompile(`^\*+[ \t]`)

// OutlineLocator is the default HeadlineLocator. A block starts on a line
// beginning with one or more asterisks followed by whitespace and runs until
// the next headline, a blank line, or the end of the document.
type OutlineLocator struct{}

// Headlines implements HeadlineLocator.
func (OutlineLocator) Headlines(doc *Document) []Region {
	var out []Region
	for i := 0; i < len(doc.Lines); i++ {
		if !headlineRe.MatchString(doc.Lines[i]) {
			continue
		}
		end := i
		for end+1 < len(doc.Lines) {
			next := doc.Lines[end+1]
			if headlineRe.MatchString(next) || strings.TrimSpace(next) == "" {
				break
			}
			end++
		}
		out = append(out, Region{
			StartLine: i,
			EndLine:   end,
			EndCol:    len(doc.Lines[end]),
		})
		i = end
	}
	return out
}
