package yield

import (
	"math"
	"time"
)

const daysPerYear = 365.0

// YearFraction returns ACT/365 years between the UTC calendar days of from
// and to. Intraday time is ignored.
func YearFraction(from, to time.Time) float64 {
	return Days(from, to) / daysPerYear
}

// Days returns the whole calendar-day difference between the UTC days of
// from and to.
func Days(from, to time.Time) float64 {
	return math.Round(utcDay(to).Sub(utcDay(from)).Hours() / 24)
}

func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
