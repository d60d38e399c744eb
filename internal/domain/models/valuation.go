package models

import "time"

// SkipReason classifies why an instrument produced no valuation.
type SkipReason string

const (
	SkipMissingPrice      SkipReason = "missing_or_invalid_price"
	SkipMissingIndex      SkipReason = "missing_index_data"
	SkipInsufficientFlows SkipReason = "insufficient_cash_flows"
	SkipNonConvergentRoot SkipReason = "non_convergent_root"
	SkipInvalidRecord     SkipReason = "invalid_record"
)

// ValuationResult is the per-instrument output of one valuation pass.
// DurationYears and TNA are nil when undefined.
type ValuationResult struct {
	InstrumentID  string         `json:"instrument_id"`
	RunID         string         `json:"run_id"`
	Type          InstrumentType `json:"instrument_type"`
	YTM           float64        `json:"ytm"`
	DurationYears *float64       `json:"duration_years"`
	TNA           *float64       `json:"tna"`
	PriceUsed     float64        `json:"price_used"`
	ComputedAt    time.Time      `json:"computed_at"`
}

// ValuationSkip records an instrument that could not be valued in a run.
type ValuationSkip struct {
	RunID        string     `json:"run_id"`
	InstrumentID string     `json:"instrument_id"`
	Reason       SkipReason `json:"reason"`
	Stage        string     `json:"stage"`
	Detail       string     `json:"detail"`
	ComputedAt   time.Time  `json:"computed_at"`
}

// RunSummary aggregates the outcome of one valuation pass.
type RunSummary struct {
	RunID       string             `json:"run_id"`
	Valuation   time.Time          `json:"valuation"`
	Lookback    time.Time          `json:"lookback"`
	Valued      int                `json:"valued"`
	Skipped     int                `json:"skipped"`
	BadRecords  int                `json:"bad_records"`
	SkipsByKind map[SkipReason]int `json:"skips_by_kind"`
	Elapsed     time.Duration      `json:"elapsed"`
}
