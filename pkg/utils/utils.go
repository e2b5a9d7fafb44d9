package utils

import (
	"time"

	"github.com/shopspring/decimal"
)

// StartOfDay truncates t to midnight in loc. Due dates are compared as calendar dates,
// so every date comparison goes through here first.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DateOnly re-anchors a stored calendar date (e.g. a DATE column scanned as UTC midnight)
// onto the same year/month/day in loc.
func DateOnly(d time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}

// DaysUntil returns the number of whole calendar days from today to dueDate.
// Negative when dueDate is in the past.
func DaysUntil(today, dueDate time.Time) int {
	a := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(dueDate.Year(), dueDate.Month(), dueDate.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// IsStrictlyFuture reports whether date is tomorrow or later relative to today.
func IsStrictlyFuture(date, today time.Time) bool {
	return DaysUntil(today, date) > 0
}

// MonthStart returns the first instant of t's month in t's location.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// TrailingMonths returns the first day of each of the last n months ending with the month
// containing now, oldest first.
func TrailingMonths(now time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	current := MonthStart(now)
	months := make([]time.Time, n)
	for i := 0; i < n; i++ {
		months[i] = current.AddDate(0, -(n - 1 - i), 0)
	}
	return months
}

// SameMonth reports whether a and b fall in the same calendar month once a is moved to b's location.
func SameMonth(a, b time.Time) bool {
	a = a.In(b.Location())
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// FormatAmount renders money with two decimal places.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
