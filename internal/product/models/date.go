package models

import (
	"strings"
	"time"
)

// Date is a calendar date that may be unknown. The zero value is the
// unparseable sentinel and orders before every valid date.
type Date struct {
	Time  time.Time
	Valid bool
}

var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	time.DateTime,
	"2006/01/02",
	"01/02/2006",
}

// ParseDate accepts the date shapes seen in product-finder payloads. It never
// fails: anything it cannot read becomes the invalid sentinel.
func ParseDate(s string) Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t)
		}
	}
	return Date{}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Valid: true}
}

// NewerThan reports whether d is strictly more recent than other.
func (d Date) NewerThan(other Date) bool {
	switch {
	case !d.Valid:
		return false
	case !other.Valid:
		return true
	default:
		return d.Time.After(other.Time)
	}
}

// String renders YYYY-MM-DD, or "" for the invalid sentinel.
func (d Date) String() string {
	if !d.Valid {
		return ""
	}
	return d.Time.Format(time.DateOnly)
}
