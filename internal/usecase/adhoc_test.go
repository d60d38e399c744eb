package usecase

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinYield/internal/domain/models"
	"FinYield/internal/services/valuation"
)

func TestAdhocValuerExplicitDate(t *testing.T) {
	a := NewAdhocValuer(fakeHolidays(nil), valuation.NewValuer(), RunnerConfig{})
	res, err := a.Compute(context.Background(), &models.ComputeRequest{
		InstrumentID:  "X",
		Type:          string(models.PlainRate),
		Price:         100,
		ValuationDate: "2024-05-03",
		Flows: []models.ComputeFlow{
			{Date: "2026-05-03", Amount: 100},
			{Date: "2026-05-03", Amount: 50},
			{Date: "2020-01-01", Amount: 999},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, AdhocRunID, res.RunID)
	assert.InDelta(t, math.Sqrt(1.5)-1, res.YTM, 1e-9)
	require.NotNil(t, res.TNA)
	assert.InDelta(t, 0.25, *res.TNA, 1e-12)
}

func TestAdhocValuerInflationLinked(t *testing.T) {
	a := NewAdhocValuer(fakeHolidays(nil), valuation.NewValuer(), RunnerConfig{})
	req := &models.ComputeRequest{
		InstrumentID:  "CER",
		Type:          string(models.InflationLinked),
		Price:         121,
		ValuationDate: "2024-05-03",
		IndexIssuance: 100,
		IndexLookback: 110,
		Flows:         []models.ComputeFlow{{Date: "2025-05-03", Amount: 121}},
	}
	res, err := a.Compute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.InflationLinked, res.Type)
	assert.InDelta(t, 110.0, res.PriceUsed, 1e-9)
	assert.InDelta(t, 0.1, res.YTM, 1e-9)
	assert.Nil(t, res.TNA)

	req.IndexLookback = 0
	_, err = a.Compute(context.Background(), req)
	se, ok := valuation.AsSkip(err)
	require.True(t, ok)
	assert.Equal(t, models.SkipMissingIndex, se.Reason)
}

func TestAdhocValuerDefaultsToNextBusinessDay(t *testing.T) {
	a := NewAdhocValuer(fakeHolidays{day(2024, 5, 3)}, valuation.NewValuer(), RunnerConfig{})
	// Thursday; Friday is a holiday so T+1 is Monday 2024-05-06
	a.now = func() time.Time { return time.Date(2024, 5, 2, 15, 0, 0, 0, time.UTC) }

	res, err := a.Compute(context.Background(), &models.ComputeRequest{
		InstrumentID: "X",
		Type:         string(models.PlainRate),
		Price:        100,
		Flows:        []models.ComputeFlow{{Date: "2025-05-06", Amount: 110}},
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.1, res.YTM, 1e-9)
}

func TestAdhocValuerNoFutureFlows(t *testing.T) {
	a := NewAdhocValuer(fakeHolidays(nil), valuation.NewValuer(), RunnerConfig{})
	_, err := a.Compute(context.Background(), &models.ComputeRequest{
		InstrumentID:  "X",
		Type:          string(models.PlainRate),
		Price:         100,
		ValuationDate: "2024-05-03",
		Flows:         []models.ComputeFlow{{Date: "2024-05-03", Amount: 110}},
	})
	se, ok := valuation.AsSkip(err)
	require.True(t, ok)
	assert.Equal(t, models.SkipInsufficientFlows, se.Reason)
}
