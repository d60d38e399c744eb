package pricing

import (
	"sort"
	"time"

	"FinYield/internal/domain/models"
)

// IndexSeries is a date-sorted inflation index series.
type IndexSeries struct {
	dates  []time.Time
	values []float64
}

// NewIndexSeries builds a series from points in any order. Later points
// for the same date replace earlier ones.
func NewIndexSeries(points []models.IndexPoint) *IndexSeries {
	byDate := make(map[time.Time]float64, len(points))
	for _, p := range points {
		byDate[utcDay(p.Date)] = p.Value
	}
	s := &IndexSeries{
		dates:  make([]time.Time, 0, len(byDate)),
		values: make([]float64, 0, len(byDate)),
	}
	for d := range byDate {
		s.dates = append(s.dates, d)
	}
	sort.Slice(s.dates, func(i, j int) bool { return s.dates[i].Before(s.dates[j]) })
	for _, d := range s.dates {
		s.values = append(s.values, byDate[d])
	}
	return s
}

// Len returns the number of observations.
func (s *IndexSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.dates)
}

// At returns the value observed on date, or the most recent prior value when
// the exact date is missing. Non-positive values count as missing.
func (s *IndexSeries) At(date time.Time) (float64, bool) {
	if s.Len() == 0 {
		return 0, false
	}
	d := utcDay(date)
	i := sort.Search(len(s.dates), func(i int) bool { return s.dates[i].After(d) })
	if i == 0 {
		return 0, false
	}
	v := s.values[i-1]
	if v <= 0 {
		return 0, false
	}
	return v, true
}

func utcDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
