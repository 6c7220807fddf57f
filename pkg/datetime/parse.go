// Package datetime provides date and time utility functions.
package datetime

import (
	"time"

	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/constants"
)

const (
	// DateLayout is the format expected in config files and is also the output
	// date format.
	DateLayout = constants.DateLayout
)

// MustParseTime parses a date string using the given layout and panics on error.
// This is intended for use in tests where the date string is known to be valid.
func MustParseTime(layout, dateStr string) time.Time {
	t, err := time.Parse(layout, dateStr)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseDate parses an ISO YYYY-MM-DD date into a UTC midnight time.
func ParseDate(date string) (time.Time, error) {
	return time.Parse(DateLayout, date)
}

// FormatDate renders t using DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Clamp raises t to floor when it falls before it. The second return value
// reports whether a substitution happened.
func Clamp(t, floor time.Time) (time.Time, bool) {
	if t.Before(floor) {
		return floor, true
	}
	return t, false
}

// EndOfMonth returns the last calendar day of the month containing t.
func EndOfMonth(t time.Time) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, 1, -1)
}

// FullYearsBetween counts the anniversaries of start passed on or before t.
func FullYearsBetween(start, t time.Time) int {
	if t.Before(start) {
		return 0
	}
	years := t.Year() - start.Year()
	if t.Month() < start.Month() || (t.Month() == start.Month() && t.Day() < start.Day()) {
		years--
	}
	return years
}

// YearsBetween returns the fractional number of years from start to t.
func YearsBetween(start, t time.Time) float64 {
	return t.Sub(start).Hours() / 24 / constants.DaysPerYear
}
