package repository

import (
	"context"
	"errors"
	"time"

	"FinYield/internal/domain/models"
)

// ErrNotFound is returned by lookups that match nothing.
var ErrNotFound = errors.New("not found")

// FlowSource provides raw cash-flow rows and per-instrument issuance index values.
type FlowSource interface {
	LoadFlows(ctx context.Context) ([]models.FlowRecord, error)
	LoadIssuanceIndex(ctx context.Context) (map[string]float64, error)
}

type HolidaySource interface {
	LoadHolidays(ctx context.Context) ([]time.Time, error)
}

// IndexStore persists inflation index observations.
type IndexStore interface {
	LoadIndexSeries(ctx context.Context, series string, upTo time.Time) ([]models.IndexPoint, error)
	UpsertIndexPoints(ctx context.Context, points []models.IndexPoint) error
}

// IndexFeed fetches an index series from its publisher.
type IndexFeed interface {
	FetchSeries(ctx context.Context, seriesID int) ([]models.IndexPoint, error)
}

// ResultStore persists valuation outcomes.
type ResultStore interface {
	StoreResults(ctx context.Context, results []*models.ValuationResult) error
	StoreSkips(ctx context.Context, skips []models.ValuationSkip) error
	LatestResults(ctx context.Context, kind models.InstrumentType, limit int) ([]*models.ValuationResult, error)
	LatestResult(ctx context.Context, instrumentID string) (*models.ValuationResult, error)
	Health(ctx context.Context) error
}

// QuoteStore holds the latest quote per symbol.
type QuoteStore interface {
	SaveQuote(ctx context.Context, q *models.Quote) error
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
	GetQuotes(ctx context.Context, symbols []string) (map[string]*models.Quote, error)
}

// ResultPublisher fans valuation results out to downstream consumers.
type ResultPublisher interface {
	PublishResults(ctx context.Context, results []*models.ValuationResult) error
	Close() error
}

// QuotePublisher ships quotes to the message bus.
type QuotePublisher interface {
	PublishQuote(ctx context.Context, q *models.Quote) error
}

type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.MarketData, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

type Metrics interface {
	RecordValuation(kind models.InstrumentType, result string)
	RecordSkip(reason models.SkipReason)
	RecordYield(instrument string, ytm float64, duration *float64)
	RecordQuote(backend string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
