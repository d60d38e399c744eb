package pricing

import (
	"errors"
	"fmt"

	"FinYield/internal/domain/models"
)

var (
	ErrInvalidPrice = errors.New("missing or non-positive price")
	ErrMissingIndex = errors.New("missing or non-positive index value")
)

// IndexAdjustment holds the index values used to correct an
// inflation-linked price.
type IndexAdjustment struct {
	AtIssuance float64
	AtLookback float64
}

// Ratio returns AtLookback / AtIssuance, or ErrMissingIndex when either
// value is non-positive.
func (a IndexAdjustment) Ratio() (float64, error) {
	if a.AtIssuance <= 0 {
		return 0, fmt.Errorf("index at issuance %v: %w", a.AtIssuance, ErrMissingIndex)
	}
	if a.AtLookback <= 0 {
		return 0, fmt.Errorf("index at lookback %v: %w", a.AtLookback, ErrMissingIndex)
	}
	r := a.AtLookback / a.AtIssuance
	if r <= 0 {
		return 0, ErrMissingIndex
	}
	return r, nil
}

// AdjustPrice converts a quoted price into the price used for valuation.
// Plain-rate prices pass through; inflation-linked prices are divided by the
// index ratio. adj is ignored for plain-rate instruments.
func AdjustPrice(kind models.InstrumentType, quoted float64, adj IndexAdjustment) (float64, error) {
	if !(quoted > 0) {
		return 0, fmt.Errorf("quoted %v: %w", quoted, ErrInvalidPrice)
	}
	if kind != models.InflationLinked {
		return quoted, nil
	}
	ratio, err := adj.Ratio()
	if err != nil {
		return 0, err
	}
	return quoted / ratio, nil
}
