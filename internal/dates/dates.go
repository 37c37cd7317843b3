// Package dates converts between time.Time and the canonical YYYY-MM-DD
// calendar-date strings stored on every ledger record.
package dates

import (
	"fmt"
	"time"
)

// Layout is the canonical calendar-date layout.
const Layout = "2006-01-02"

// Format renders t as a calendar date in t's own location.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// Parse reads a calendar date as local midnight.
func Parse(value string) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("dates: parse %q: %w", value, err)
	}
	return t, nil
}

// Today returns the calendar date of now in the local zone.
func Today(now time.Time) string {
	return Format(now.In(time.Local))
}

// OnOrAfter reports whether date falls on or after start. Either value
// failing to parse yields false.
func OnOrAfter(date, start string) bool {
	d, err := Parse(date)
	if err != nil {
		return false
	}
	s, err := Parse(start)
	if err != nil {
		return false
	}
	return !d.Before(s)
}

// MonthYear returns the English month name and year of now in the local zone.
func MonthYear(now time.Time) (string, int) {
	local := now.In(time.Local)
	return local.Month().String(), local.Year()
}

// InMonth reports whether date lies in the given year and month.
func InMonth(date string, year int, month time.Month) bool {
	d, err := Parse(date)
	if err != nil {
		return false
	}
	return d.Year() == year && d.Month() == month
}
