// Package datetime formats and parses the ISO-8601 timestamps used by REST APIs.
package datetime

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// Layout is the second-precision UTC layout produced by FormatISO8601.
	Layout = "2006-01-02T15:04:05Z"

	// LayoutMillis adds milliseconds to Layout.
	LayoutMillis = "2006-01-02T15:04:05.000Z"

	// DateLayout is the calendar-date layout.
	DateLayout = "2006-01-02"
)

// ErrInvalidFormat is returned when a string is not an ISO-8601 date or timestamp.
var ErrInvalidFormat = errors.New("invalid ISO-8601 format")

// parseLayouts are tried in order. Offsets without a colon (+0800) come from
// older GitLab versions.
var parseLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	DateLayout,
}

// FormatISO8601 renders t in UTC with second precision, e.g. 2024-05-01T08:30:00Z.
func FormatISO8601(t time.Time) string {
	return t.UTC().Format(Layout)
}

// FormatISO8601Millis renders t in UTC with millisecond precision.
func FormatISO8601Millis(t time.Time) string {
	return t.UTC().Format(LayoutMillis)
}

// FormatDate renders the UTC calendar date of t.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseISO8601 parses a date or timestamp. It accepts a trailing Z, numeric
// offsets with or without a colon, and fractional seconds. A value without a
// zone is taken as UTC. The result is always in UTC.
func ParseISO8601(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty string", ErrInvalidFormat)
	}
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
}

// MustParseISO8601 is like ParseISO8601 but panics on error. It is meant for
// constants in tests and examples.
func MustParseISO8601(s string) time.Time {
	t, err := ParseISO8601(s)
	if err != nil {
		panic(err)
	}
	return t
}
