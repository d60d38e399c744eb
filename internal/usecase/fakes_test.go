package usecase

import (
	"context"
	"sync"
	"time"

	"FinYield/internal/domain/models"
)

type nopMetrics struct {
	mu     sync.Mutex
	errors []string
	skips  []models.SkipReason
	quotes []string
}

func (m *nopMetrics) RecordValuation(models.InstrumentType, string) {}
func (m *nopMetrics) RecordSkip(r models.SkipReason) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skips = append(m.skips, r)
}
func (m *nopMetrics) RecordYield(string, float64, *float64) {}
func (m *nopMetrics) RecordQuote(b string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes = append(m.quotes, b)
}
func (m *nopMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, kind)
}
func (m *nopMetrics) RecordLatency(string, float64) {}

type fakeFlows struct {
	records  []models.FlowRecord
	issuance map[string]float64
	err      error
}

func (f *fakeFlows) LoadFlows(context.Context) ([]models.FlowRecord, error) {
	return f.records, f.err
}

func (f *fakeFlows) LoadIssuanceIndex(context.Context) (map[string]float64, error) {
	return f.issuance, nil
}

type fakeHolidays []time.Time

func (h fakeHolidays) LoadHolidays(context.Context) ([]time.Time, error) { return h, nil }

type fakeIndex struct {
	points   []models.IndexPoint
	upserted []models.IndexPoint
	upTo     time.Time
	calls    int
}

func (f *fakeIndex) LoadIndexSeries(_ context.Context, series string, upTo time.Time) ([]models.IndexPoint, error) {
	f.calls++
	f.upTo = upTo
	var out []models.IndexPoint
	for _, p := range f.points {
		if p.Series == series && !p.Date.After(upTo) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeIndex) UpsertIndexPoints(_ context.Context, pts []models.IndexPoint) error {
	f.upserted = append(f.upserted, pts...)
	return nil
}

type fakeResults struct {
	results []*models.ValuationResult
	skips   []models.ValuationSkip
	err     error
}

func (f *fakeResults) StoreResults(_ context.Context, rs []*models.ValuationResult) error {
	if f.err != nil {
		return f.err
	}
	f.results = append(f.results, rs...)
	return nil
}

func (f *fakeResults) StoreSkips(_ context.Context, s []models.ValuationSkip) error {
	f.skips = append(f.skips, s...)
	return nil
}

func (f *fakeResults) LatestResults(context.Context, models.InstrumentType, int) ([]*models.ValuationResult, error) {
	return f.results, nil
}

func (f *fakeResults) LatestResult(context.Context, string) (*models.ValuationResult, error) {
	return nil, nil
}

func (f *fakeResults) Health(context.Context) error { return nil }

type fakePublisher struct {
	results []*models.ValuationResult
	quotes  []*models.Quote
}

func (p *fakePublisher) PublishResults(_ context.Context, rs []*models.ValuationResult) error {
	p.results = append(p.results, rs...)
	return nil
}

func (p *fakePublisher) PublishQuote(_ context.Context, q *models.Quote) error {
	p.quotes = append(p.quotes, q)
	return nil
}

func (p *fakePublisher) Close() error { return nil }
