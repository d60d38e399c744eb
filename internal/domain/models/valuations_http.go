package models

// Requests for valuation HTTP endpoints.

type ListValuationsRequest struct {
	Type  string `query:"type" json:"type" validate:"omitempty,oneof=PlainRate InflationLinked"`
	Limit int    `query:"limit" json:"limit" default:"500" validate:"gte=1,lte=5000"`
}

type ComputeFlow struct {
	Date   string  `json:"date" validate:"required,datetime=2006-01-02"`
	Amount float64 `json:"amount"`
}

// ComputeRequest values an ad-hoc cash-flow stream at the current T+1 date
// unless ValuationDate is given.
type ComputeRequest struct {
	InstrumentID  string        `json:"instrument_id" default:"adhoc"`
	Type          string        `json:"type" default:"PlainRate" validate:"oneof=PlainRate InflationLinked"`
	Price         float64       `json:"price" validate:"gt=0"`
	ValuationDate string        `json:"valuation_date" validate:"omitempty,datetime=2006-01-02"`
	IndexIssuance float64       `json:"index_issuance" validate:"gte=0"`
	IndexLookback float64       `json:"index_lookback" validate:"gte=0"`
	Flows         []ComputeFlow `json:"flows" validate:"required,min=1,dive"`
}
