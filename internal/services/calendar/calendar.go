package calendar

import "time"

const dateLayout = "2006-01-02"

// HolidaySet holds non-business calendar dates keyed by YYYY-MM-DD.
type HolidaySet map[string]struct{}

// NewHolidaySet builds a set from the given dates (time of day is ignored).
func NewHolidaySet(dates ...time.Time) HolidaySet {
	h := make(HolidaySet, len(dates))
	for _, d := range dates {
		h.Add(d)
	}
	return h
}

// Add marks the date as a holiday.
func (h HolidaySet) Add(d time.Time) {
	h[d.Format(dateLayout)] = struct{}{}
}

// Contains reports whether the calendar date of d is a holiday.
func (h HolidaySet) Contains(d time.Time) bool {
	if h == nil {
		return false
	}
	_, ok := h[d.Format(dateLayout)]
	return ok
}

// Calendar answers business-day questions over an explicit holiday set.
// Dates are interpreted in their own location; results are midnight of the
// resulting day in that same location.
type Calendar struct {
	holidays HolidaySet
}

// New creates a Calendar. A nil or empty holiday set is valid.
func New(holidays HolidaySet) *Calendar {
	if holidays == nil {
		holidays = HolidaySet{}
	}
	return &Calendar{holidays: holidays}
}

// IsBusinessDay is true for Monday-Friday dates not in the holiday set.
func (c *Calendar) IsBusinessDay(d time.Time) bool {
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !c.holidays.Contains(d)
}

// NextBusinessDay returns the first business day strictly after d.
func (c *Calendar) NextBusinessDay(d time.Time) time.Time {
	next := Day(d).AddDate(0, 0, 1)
	for !c.IsBusinessDay(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// PrevBusinessDay returns the last business day strictly before d.
func (c *Calendar) PrevBusinessDay(d time.Time) time.Time {
	prev := Day(d).AddDate(0, 0, -1)
	for !c.IsBusinessDay(prev) {
		prev = prev.AddDate(0, 0, -1)
	}
	return prev
}

// OffsetBusinessDays steps one business day at a time, n times, forward
// for positive n and backward for negative n.
func (c *Calendar) OffsetBusinessDays(d time.Time, n int) time.Time {
	out := Day(d)
	for ; n > 0; n-- {
		out = c.NextBusinessDay(out)
	}
	for ; n < 0; n++ {
		out = c.PrevBusinessDay(out)
	}
	return out
}

// Day truncates t to midnight of its calendar day in t's location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ParseDate parses a YYYY-MM-DD date at UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}

// FormatDate renders the calendar date of t as YYYY-MM-DD.
func FormatDate(t time.Time) string { return t.Format(dateLayout) }
