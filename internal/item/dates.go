package item

import (
	"strings"
	"time"
)

// dateLayouts are tried in order when parsing datecodes and air dates.
var dateLayouts = []string{
	"20060102",
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

// ParseDate parses a human-supplied date string. Returns the zero time and
// false when no layout matches.
func ParseDate(value string) (time.Time, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DateDistanceDays returns the absolute whole-day distance between two date
// strings, or -1 when either fails to parse.
func DateDistanceDays(a, b string) int {
	da, ok := ParseDate(a)
	if !ok {
		return -1
	}
	db, ok := ParseDate(b)
	if !ok {
		return -1
	}
	days := int(truncateToDay(da).Sub(truncateToDay(db)).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

// DerivedRipeness computes the initial ripeness for an item from its
// publication date: elapsed days (floored at zero) times the per-day rate.
func DerivedRipeness(datecode string, perDay int, now time.Time) int {
	published, ok := ParseDate(datecode)
	if !ok {
		return 0
	}
	days := int(truncateToDay(now).Sub(truncateToDay(published)).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return days * perDay
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
