package models

import (
	"strings"
	"time"
)

// DateLayouts are the accepted spellings of a sale date, tried in order.
// Layouts without a zone parse as UTC.
var DateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006",
}

// ParseDate returns nil for blank or unrecognised input.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
