package usecase

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinYield/internal/domain/models"
	"FinYield/internal/repository"
	"FinYield/internal/services/calendar"
	"FinYield/internal/services/valuation"
	"FinYield/pkg/cache"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type runnerFixture struct {
	runner  *ValuationRunner
	results *fakeResults
	pub     *fakePublisher
	index   *fakeIndex
	metrics *nopMetrics
	lock    *cache.MemoryCache
}

func newRunnerFixture(t *testing.T) *runnerFixture {
	t.Helper()
	flows := &fakeFlows{
		records: []models.FlowRecord{
			{InstrumentID: "BULLET", PaymentDate: day(2026, 5, 3), Amount: "150", TypeTag: "Bono"},
			{InstrumentID: "CERX", PaymentDate: day(2025, 5, 3), Amount: "110,0", TypeTag: "Bono CER"},
			{InstrumentID: "ONX", PaymentDate: day(2025, 5, 3), Amount: "55", TypeTag: "ON"},
			{InstrumentID: "NOQUOTE", PaymentDate: day(2025, 5, 3), Amount: "100", TypeTag: "Bono"},
			{InstrumentID: "PAST", PaymentDate: day(2023, 1, 2), Amount: "100", TypeTag: "Bono"},
			{InstrumentID: "BROKEN", PaymentDate: day(2025, 1, 2), Amount: "abc", TypeTag: "Bono"},
		},
		issuance: map[string]float64{"CERX": 100},
	}
	idx := &fakeIndex{points: []models.IndexPoint{
		{Series: "cer", Date: day(2024, 4, 18), Value: 110},
		{Series: "cer", Date: day(2024, 4, 30), Value: 500},
	}}

	mc := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	t.Cleanup(func() { _ = mc.Close() })
	quotes := repository.NewQuoteCache(mc, "q:", time.Hour)
	ctx := context.Background()
	require.NoError(t, quotes.SaveQuote(ctx, &models.Quote{Symbol: "BULLET", Last: 100}))
	require.NoError(t, quotes.SaveQuote(ctx, &models.Quote{Symbol: "CERX", Last: 110}))
	require.NoError(t, quotes.SaveQuote(ctx, &models.Quote{Symbol: "ONX", Last: 50000, PriceUSD: 50}))

	f := &runnerFixture{
		results: &fakeResults{},
		pub:     &fakePublisher{},
		index:   idx,
		metrics: &nopMetrics{},
		lock:    mc,
	}
	f.runner = NewValuationRunner(flows, fakeHolidays(nil), idx, quotes, f.results, f.pub, mc, f.metrics, nil,
		valuation.NewValuer(), RunnerConfig{
			Location:     time.UTC,
			Anchor:       calendar.AnchorMidnight,
			LookbackDays: 10,
			IndexSeries:  "cer",
		})
	// Thursday; T+1 is Friday 2024-05-03
	f.runner.now = func() time.Time { return time.Date(2024, 5, 2, 15, 0, 0, 0, time.UTC) }
	f.runner.newID = func() string { return "run-1" }
	return f
}

func byID(rs []*models.ValuationResult) map[string]*models.ValuationResult {
	out := make(map[string]*models.ValuationResult, len(rs))
	for _, r := range rs {
		out[r.InstrumentID] = r
	}
	return out
}

func TestValuationRunnerRun(t *testing.T) {
	f := newRunnerFixture(t)
	summary, err := f.runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, day(2024, 5, 3), summary.Valuation)
	assert.Equal(t, day(2024, 4, 19), summary.Lookback)
	assert.Equal(t, 3, summary.Valued)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.BadRecords)
	assert.Equal(t, 1, summary.SkipsByKind[models.SkipMissingPrice])

	got := byID(f.results.results)
	require.Len(t, got, 3)

	bullet := got["BULLET"]
	assert.InDelta(t, math.Sqrt(1.5)-1, bullet.YTM, 1e-9)
	require.NotNil(t, bullet.DurationYears)
	assert.InDelta(t, 2.0, *bullet.DurationYears, 1e-9)
	require.NotNil(t, bullet.TNA)
	assert.InDelta(t, 0.25, *bullet.TNA, 1e-12)
	assert.Equal(t, "run-1", bullet.RunID)

	cer := got["CERX"]
	assert.Equal(t, models.InflationLinked, cer.Type)
	assert.InDelta(t, 100.0, cer.PriceUsed, 1e-9)
	assert.InDelta(t, 0.10, cer.YTM, 1e-9)
	assert.Nil(t, cer.TNA)

	on := got["ONX"]
	assert.InDelta(t, 50.0, on.PriceUsed, 1e-12)
	assert.InDelta(t, 0.10, on.YTM, 1e-9)

	require.Len(t, f.results.skips, 1)
	assert.Equal(t, "NOQUOTE", f.results.skips[0].InstrumentID)
	assert.Equal(t, valuation.StagePrice, f.results.skips[0].Stage)

	assert.Len(t, f.pub.results, 3)
	assert.Equal(t, day(2024, 4, 19), f.index.upTo)
}

func TestValuationRunnerMissingIndexSkips(t *testing.T) {
	f := newRunnerFixture(t)
	f.index.points = nil

	summary, err := f.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.SkipsByKind[models.SkipMissingIndex])
	assert.Contains(t, f.metrics.skips, models.SkipMissingIndex)
	assert.NotContains(t, byID(f.results.results), "CERX")
}

func TestValuationRunnerHonoursLock(t *testing.T) {
	f := newRunnerFixture(t)
	ok, err := f.lock.TryLock(context.Background(), runLockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.runner.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	require.NoError(t, f.lock.Unlock(context.Background(), runLockKey))
	_, err = f.runner.Run(context.Background())
	assert.NoError(t, err)
}

func TestValuationRunnerLoadFailure(t *testing.T) {
	f := newRunnerFixture(t)
	f.runner.flows = &fakeFlows{err: errors.New("clickhouse down")}

	_, err := f.runner.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load flows")
	assert.Contains(t, f.metrics.errors, "load")
}

func TestValuationRunnerStoreFailure(t *testing.T) {
	f := newRunnerFixture(t)
	f.results.err = errors.New("insert failed")

	summary, err := f.runner.Run(context.Background())
	require.Error(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 3, summary.Valued)
	assert.Empty(t, f.pub.results)
}
