package models

import "time"

// Quote is the latest market snapshot of one ticker.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Last      float64   `json:"last"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	Close     float64   `json:"close"`
	Change    float64   `json:"change"`  // last/close - 1
	FXRate    float64   `json:"fx_rate"` // dollar reference / local reference
	PriceUSD  float64   `json:"price_usd"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Price returns the quote field selected by src.
func (q *Quote) Price(src PriceSource) float64 {
	if q == nil {
		return 0
	}
	if src == PriceSourceUSD {
		return q.PriceUSD
	}
	return q.Last
}

// MarketData is one raw top-of-book update from the broker stream.
type MarketData struct {
	Symbol string
	Last   float64
	Bid    float64
	Ask    float64
	Close  float64
	Time   time.Time
}
