package services

import (
	"strings"
	"time"

	"vinpipe/models"
)

// dateLayouts are the renderings seen in store exports, tried in order.
var dateLayouts = []string{
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"2006-01-02",
	"01-02-2006",
	"1-2-2006",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006 15:04",
	"01/02/2006 15:04:05",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"Jan 2, 2006",
	"January 2, 2006",
	"02-Jan-2006",
	"02-Jan-06",
	"20060102",
}

// ParseDate parses an export date. ok is false for empty or unparsable text.
func ParseDate(s string) (d time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// NormalizeDate re-renders an export date as MM-DD-YYYY, or "" when absent
// or unparsable.
func NormalizeDate(s string) string {
	d, ok := ParseDate(s)
	if !ok {
		return ""
	}
	return d.Format(models.DateLayout)
}

// canonicalDate parses a normalized MM-DD-YYYY cell.
func canonicalDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return ParseDate(s)
	}
	return d, true
}
