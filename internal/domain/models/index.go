package models

import "time"

// IndexPoint is one observation of an inflation index series.
type IndexPoint struct {
	Series string    `json:"series"`
	Date   time.Time `json:"date"`
	Value  float64   `json:"value"`
}
