package models

import "time"

// InstrumentType selects how a quoted price is turned into a valuation price.
type InstrumentType string

const (
	PlainRate       InstrumentType = "PlainRate"
	InflationLinked InstrumentType = "InflationLinked"
)

// PriceSource selects which quote field feeds the valuation.
type PriceSource string

const (
	PriceSourceLast PriceSource = "last"
	PriceSourceUSD  PriceSource = "usd"
)

// FlowRecord is one raw payment row as stored upstream.
type FlowRecord struct {
	InstrumentID string
	PaymentDate  time.Time
	Amount       string // comma-or-dot decimal text
	TypeTag      string // free text, e.g. "CER", "Fija", "ON"
}

// CashFlow is a dated signed amount; positive is an inflow to the holder.
type CashFlow struct {
	Date   time.Time
	Amount float64
}

// Schedule is the net future cash-flow stream of one instrument,
// ordered by date with at most one non-zero entry per date.
type Schedule struct {
	InstrumentID string
	Type         InstrumentType
	PriceSource  PriceSource
	Flows        []CashFlow
}
