// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"regexp"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UserID identifies a user. Identities are minted by the external identity
// provider; the core only validates the format and trusts the value.
type UserID string

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// IsValid checks if the user ID is a valid UUID.
func (u UserID) IsValid() bool {
	return uuidRegex.MatchString(string(u))
}

// String returns the string representation.
func (u UserID) String() string {
	return string(u)
}

// IsEmpty checks if the ID is empty.
func (u UserID) IsEmpty() bool {
	return u == ""
}

// NewUserID creates a new UserID with validation.
func NewUserID(id string) (UserID, error) {
	uid := UserID(strings.ToLower(strings.TrimSpace(id)))
	if !uid.IsValid() {
		return "", NewDomainError("shared", "NewUserID", ErrInvalidID, "invalid user ID format")
	}
	return uid, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Day Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Day is a calendar day without a time component. Log dates are calendar
// days in the owner's local timezone, so wall-clock instants never compare
// equal across users; Day normalizes everything to a date string.
type Day struct {
	t time.Time // midnight UTC of the calendar day
}

// DayLayout is the wire and storage format for a Day.
const DayLayout = "2006-01-02"

// NewDay creates a Day from a year, month and day.
func NewDay(year int, month time.Month, day int) Day {
	return Day{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf returns the calendar day of t in t's location.
func DayOf(t time.Time) Day {
	return NewDay(t.Year(), t.Month(), t.Day())
}

// ParseDay parses a Day from its YYYY-MM-DD representation.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(DayLayout, strings.TrimSpace(s))
	if err != nil {
		return Day{}, WrapError("shared", "ParseDay", ErrInvalidInput, "invalid date, expected YYYY-MM-DD", err)
	}
	return DayOf(t), nil
}

// String returns the YYYY-MM-DD representation.
func (d Day) String() string {
	return d.t.Format(DayLayout)
}

// Time returns midnight UTC of the calendar day.
func (d Day) Time() time.Time {
	return d.t
}

// IsZero reports whether the day is the zero value.
func (d Day) IsZero() bool {
	return d.t.IsZero()
}

// Equal reports whether two days are the same calendar day.
func (d Day) Equal(other Day) bool {
	return d.t.Equal(other.t)
}

// Before reports whether d is an earlier calendar day than other.
func (d Day) Before(other Day) bool {
	return d.t.Before(other.t)
}

// After reports whether d is a later calendar day than other.
func (d Day) After(other Day) bool {
	return d.t.After(other.t)
}

// AddDays returns the day n calendar days after d.
func (d Day) AddDays(n int) Day {
	return Day{t: d.t.AddDate(0, 0, n)}
}

// DaysSince returns the number of calendar days from other to d.
func (d Day) DaysSince(other Day) int {
	return int(d.t.Sub(other.t) / (24 * time.Hour))
}

// ═══════════════════════════════════════════════════════════════════════════
// Period Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Period is an inclusive range of calendar days, used for score aggregation.
type Period struct {
	Start Day
	End   Day
}

// IsValid checks that the period is non-empty and well ordered.
func (p Period) IsValid() bool {
	return !p.Start.IsZero() && !p.End.IsZero() && !p.Start.After(p.End)
}

// Contains reports whether a day falls inside the period.
func (p Period) Contains(d Day) bool {
	return !d.Before(p.Start) && !d.After(p.End)
}

// Days returns the number of calendar days in the period.
func (p Period) Days() int {
	return p.End.DaysSince(p.Start) + 1
}

// NewPeriod creates a Period with validation.
func NewPeriod(start, end Day) (Period, error) {
	p := Period{Start: start, End: end}
	if !p.IsValid() {
		return Period{}, NewDomainError("shared", "NewPeriod", ErrInvalidInput, "'start' must not be after 'end'")
	}
	return p, nil
}

// MonthOf returns the period covering the calendar month containing d.
func MonthOf(d Day) Period {
	t := d.Time()
	start := NewDay(t.Year(), t.Month(), 1)
	end := DayOf(start.Time().AddDate(0, 1, -1))
	return Period{Start: start, End: end}
}

// ═══════════════════════════════════════════════════════════════════════════
// Weekdays Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Weekdays is a 7-element active-day mask, indexed by time.Weekday
// (Sunday = 0). A habit is scheduled on the days whose flag is set.
type Weekdays [7]bool

// EveryDay returns a mask with every day active.
func EveryDay() Weekdays {
	return Weekdays{true, true, true, true, true, true, true}
}

// Active reports whether the given weekday is scheduled.
func (w Weekdays) Active(d time.Weekday) bool {
	return w[int(d)]
}

// Count returns the number of scheduled days per week.
func (w Weekdays) Count() int {
	n := 0
	for _, on := range w {
		if on {
			n++
		}
	}
	return n
}

// IsEmpty reports whether no day is scheduled.
func (w Weekdays) IsEmpty() bool {
	return w.Count() == 0
}
