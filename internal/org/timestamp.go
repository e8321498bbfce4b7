package org

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrMalformedTimestamp is matched by every *MalformedTimestampError.
var ErrMalformedTimestamp = errors.New("malformed timestamp")

// MalformedTimestampError reports a timestamp that has the right shape but
// does not name a real calendar date or clock time.
type MalformedTimestampError struct {
	Text string
	Err  error
}

func (e *MalformedTimestampError) Error() string {
	return fmt.Sprintf("org: malformed timestamp %q: %v", e.Text, e.Err)
}

func (e *MalformedTimestampError) Unwrap() error { return e.Err }

// Is reports whether target is ErrMalformedTimestamp.
func (e *MalformedTimestampError) Is(target error) bool {
	return target == ErrMalformedTimestamp
}

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"

	dateOnlyLen = len("YYYY-MM-DD Wed")
	dateTimeLen = len("YYYY-MM-DD Wed HH:MM")
)

var (
	timestampRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2} .{3}( \d{2}:\d{2})?`)
	repeaterRe  = regexp.MustCompile(`^ (\+\d+[dwmy])`)
)

// Timestamp is a point in time taken from a headline block. Date-only
// timestamps sit at midnight with HasTime false.
type Timestamp struct {
	Time    time.Time `json:"time"`
	HasTime bool      `json:"has_time"`
	// Weekday is the three characters written after the date, as found.
	Weekday string `json:"weekday,omitempty"`
	// Repeater is a trailing interval such as "+1w". It is carried, not evaluated.
	Repeater        string `json:"repeater,omitempty"`
	WeekdayMismatch bool   `json:"weekday_mismatch,omitempty"`
}

// String renders the timestamp as "YYYY-MM-DD HH:MM", or "YYYY-MM-DD" when
// there is no time of day.
func (t Timestamp) String() string {
	if t.HasTime {
		return t.Time.Format(dateTimeLayout)
	}
	return t.Time.Format(dateLayout)
}

// ParseTimestamp finds the first "YYYY-MM-DD DDD[ HH:MM]" in text and
// validates it against the calendar in loc. ok is false when text holds no
// such timestamp. A match naming an impossible date or time yields a
// *MalformedTimestampError.
func ParseTimestamp(text string, loc *time.Location) (ts Timestamp, ok bool, err error) {
	span := timestampRe.FindStringIndex(text)
	if span == nil {
		return Timestamp{}, false, nil
	}
	raw := text[span[0]:span[1]]
	runes := []rune(raw)

	var t time.Time
	switch utf8.RuneCountInString(raw) {
	case dateOnlyLen:
		t, err = time.ParseInLocation(dateLayout, raw[:10], loc)
	case dateTimeLen:
		t, err = time.ParseInLocation(dateTimeLayout, raw[:10]+" "+raw[len(raw)-5:], loc)
	default:
		return Timestamp{}, false, nil
	}
	if err != nil {
		return Timestamp{}, false, &MalformedTimestampError{Text: raw, Err: err}
	}

	weekday := string(runes[11:14])
	ts = Timestamp{
		Time:            t,
		HasTime:         len(runes) == dateTimeLen,
		Weekday:         weekday,
		WeekdayMismatch: !strings.EqualFold(weekday, t.Weekday().String()[:3]),
	}
	if m := repeaterRe.FindStringSubmatch(text[span[1]:]); m != nil {
		ts.Repeater = m[1]
	}
	return ts, true, nil
}

// WeekNumber returns the week of the year with weeks starting on Monday.
// Days before the first Monday of the year are in week 0.
func WeekNumber(t time.Time) int {
	yday := t.YearDay() - 1
	weekday := (int(t.Weekday()) + 6) % 7
	return (yday + 7 - weekday) / 7
}
