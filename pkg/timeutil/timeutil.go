// Package timeutil provides timezone-aware calendar helpers. A habit day is
// defined by its owner's local timezone, so every boundary here takes an
// explicit *time.Location.
// No external dependencies - uses only standard library.
package timeutil

import "time"

// StartOfDay returns local midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// EndOfDay returns the last nanosecond of t's calendar day in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 23, 59, 59, 999999999, loc)
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	la, lb := a.In(loc), b.In(loc)
	ya, ma, da := la.Date()
	yb, mb, db := lb.Date()
	return ya == yb && ma == mb && da == db
}

// StartOfMonth returns midnight of the first day of t's month in loc.
func StartOfMonth(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), 1, 0, 0, 0, 0, loc)
}

// EndOfMonth returns midnight of the last day of t's month in loc.
func EndOfMonth(t time.Time, loc *time.Location) time.Time {
	return StartOfMonth(t, loc).AddDate(0, 1, -1)
}

// MonthBounds returns the first and last calendar day of t's month in loc.
func MonthBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	start := StartOfMonth(t, loc)
	return start, start.AddDate(0, 1, -1)
}

// DaysBetween returns the number of whole calendar days from a to b in loc.
// Negative when b is before a.
func DaysBetween(a, b time.Time, loc *time.Location) int {
	sa := StartOfDay(a, loc)
	sb := StartOfDay(b, loc)
	return int(sb.Sub(sa) / (24 * time.Hour))
}

// FormatDay formats t's calendar day in loc as "2006-01-02".
func FormatDay(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// ParseClock parses a "HH:MM" wall-clock string.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}
