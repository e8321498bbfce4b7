package org

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNoLocation is returned for agenda lines that do not point at a source
// file, such as the header or the now-entry.
var ErrNoLocation = errors.New("agenda line has no location")

// Location is the source position named by a rendered agenda line.
// Line is 1-based, as rendered.
type Location struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

// ParseLocation reads the "<file>:<line>:" prefix of a rendered agenda line.
// File names containing a colon are not supported.
func ParseLocation(line string) (Location, error) {
	if strings.HasPrefix(line, nowPrefix) {
		return Location{}, ErrNoLocation
	}
	parts := strings.SplitN(line, ":", 3)
	if len(parts) < 3 || parts[0] == "" {
		return Location{}, ErrNoLocation
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil || n < 1 {
		return Location{}, fmt.Errorf("org: line number %q: %w", parts[1], ErrNoLocation)
	}
	return Location{File: parts[0], Line: n}, nil
}
