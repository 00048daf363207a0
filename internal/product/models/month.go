package models

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrInvalidMonth is returned for month arguments not shaped YYYY-MM.
var ErrInvalidMonth = errors.New("invalid month")

const monthLayout = "2006-01"

// Month is a calendar month, the unit of export and purge.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses a YYYY-MM string.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(monthLayout, s)
	if err != nil || len(s) != len(monthLayout) {
		return Month{}, fmt.Errorf("%w %q: expected YYYY-MM", ErrInvalidMonth, s)
	}
	return MonthOf(t), nil
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// PreviousMonth is the month before the one containing now: the first of the
// current month minus one day.
func PreviousMonth(now time.Time) Month {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return MonthOf(first.AddDate(0, 0, -1))
}

// Start is midnight UTC on the first day of the month.
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End is the exclusive upper bound: the first day of the next month.
func (m Month) End() time.Time {
	return m.Start().AddDate(0, 1, 0)
}

// Contains reports whether a valid date falls inside the month.
func (m Month) Contains(d Date) bool {
	return d.Valid && !d.Time.Before(m.Start()) && d.Time.Before(m.End())
}

// YearString is the folder name exports are grouped under.
func (m Month) YearString() string {
	return strconv.Itoa(m.Year)
}

func (m Month) String() string {
	return m.Start().Format(monthLayout)
}
