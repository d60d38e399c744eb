package valuation

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinYield/internal/domain/models"
	"FinYield/internal/services/pricing"
	"FinYield/internal/services/yield"
)

var valuationAt = time.Date(2024, time.June, 10, 3, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func TestValuePlainBullet(t *testing.T) {
	v := NewValuer()
	res, err := v.Value(Input{
		Valuation: valuationAt,
		Price:     100,
		Schedule: models.Schedule{
			InstrumentID: "S30J6",
			Type:         models.PlainRate,
			Flows:        []models.CashFlow{{Date: day(730), Amount: 150}},
		},
	})
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(1.5)-1, res.YTM, 1e-9)
	require.NotNil(t, res.DurationYears)
	assert.InDelta(t, 2.0, *res.DurationYears, 1e-12)
	require.NotNil(t, res.TNA)
	assert.InDelta(t, 0.25, *res.TNA, 1e-12)
	assert.Equal(t, 100.0, res.PriceUsed)
}

func TestValueCouponBondHasNoTNA(t *testing.T) {
	v := NewValuer()
	res, err := v.Value(Input{
		Valuation: valuationAt,
		Price:     95,
		Schedule: models.Schedule{
			InstrumentID: "AL30",
			Type:         models.PlainRate,
			Flows: []models.CashFlow{
				{Date: day(-30), Amount: 5},
				{Date: day(180), Amount: 5},
				{Date: day(365), Amount: 105},
			},
		},
	})
	require.NoError(t, err)
	assert.Nil(t, res.TNA)
	require.NotNil(t, res.DurationYears)
	assert.Greater(t, *res.DurationYears, 180.0/365)
	assert.Less(t, *res.DurationYears, 1.0)
}

func TestValueInflationLinkedUsesAdjustedPrice(t *testing.T) {
	v := NewValuer()
	res, err := v.Value(Input{
		Valuation: valuationAt,
		Price:     300,
		Index:     pricing.IndexAdjustment{AtIssuance: 100, AtLookback: 300},
		Schedule: models.Schedule{
			InstrumentID: "TX26",
			Type:         models.InflationLinked,
			Flows:        []models.CashFlow{{Date: day(730), Amount: 150}},
		},
	})
	require.NoError(t, err)
	assert.InDelta(t, 100, res.PriceUsed, 1e-9)
	assert.InDelta(t, math.Sqrt(1.5)-1, res.YTM, 1e-9)
	assert.Nil(t, res.TNA, "TNA is only reported for plain-rate instruments")
}

func TestValueSkips(t *testing.T) {
	v := NewValuer()
	sched := models.Schedule{
		InstrumentID: "X",
		Type:         models.InflationLinked,
		Flows:        []models.CashFlow{{Date: day(365), Amount: 110}},
	}

	_, err := v.Value(Input{Valuation: valuationAt, Price: 0, Schedule: sched})
	se, ok := AsSkip(err)
	require.True(t, ok)
	assert.Equal(t, models.SkipMissingPrice, se.Reason)
	assert.True(t, errors.Is(err, pricing.ErrInvalidPrice))

	_, err = v.Value(Input{Valuation: valuationAt, Price: 100, Schedule: sched})
	se, ok = AsSkip(err)
	require.True(t, ok)
	assert.Equal(t, models.SkipMissingIndex, se.Reason)
	assert.Equal(t, StagePrice, se.Stage)

	past := sched
	past.Flows = []models.CashFlow{{Date: day(-1), Amount: 110}}
	_, err = v.Value(Input{Valuation: valuationAt, Price: 100, Schedule: past})
	se, ok = AsSkip(err)
	require.True(t, ok)
	assert.Equal(t, models.SkipInsufficientFlows, se.Reason)
}

func TestValueNonConvergentIsSkipped(t *testing.T) {
	v := NewValuer()
	_, err := v.Value(Input{
		Valuation: valuationAt,
		Price:     100,
		Schedule: models.Schedule{
			InstrumentID: "BAD",
			Type:         models.PlainRate,
			Flows:        []models.CashFlow{{Date: day(365), Amount: -50}},
		},
	})
	se, ok := AsSkip(err)
	require.True(t, ok)
	assert.Equal(t, models.SkipNonConvergentRoot, se.Reason)
	assert.Equal(t, StageSolve, se.Stage)
	assert.True(t, errors.Is(err, yield.ErrNoRoot))
	assert.Contains(t, se.Detail, "price_used=100.000000")
	assert.Contains(t, se.Detail, "first=2025-06-10")
}
