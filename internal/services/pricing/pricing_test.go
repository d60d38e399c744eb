package pricing

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinYield/internal/domain/models"
)

func TestAdjustPricePlainIsIdentity(t *testing.T) {
	got, err := AdjustPrice(models.PlainRate, 97.5, IndexAdjustment{})
	require.NoError(t, err)
	assert.Equal(t, 97.5, got)
}

func TestAdjustPriceIndexNeutral(t *testing.T) {
	got, err := AdjustPrice(models.InflationLinked, 1234.5, IndexAdjustment{AtIssuance: 45.6, AtLookback: 45.6})
	require.NoError(t, err)
	assert.InDelta(t, 1234.5, got, 1e-9)
}

func TestAdjustPriceIndexRatio(t *testing.T) {
	got, err := AdjustPrice(models.InflationLinked, 500, IndexAdjustment{AtIssuance: 100, AtLookback: 250})
	require.NoError(t, err)
	assert.InDelta(t, 200, got, 1e-9)
}

func TestAdjustPriceErrors(t *testing.T) {
	_, err := AdjustPrice(models.PlainRate, 0, IndexAdjustment{})
	assert.True(t, errors.Is(err, ErrInvalidPrice))

	_, err = AdjustPrice(models.PlainRate, math.NaN(), IndexAdjustment{})
	assert.True(t, errors.Is(err, ErrInvalidPrice))

	_, err = AdjustPrice(models.InflationLinked, 100, IndexAdjustment{AtIssuance: 0, AtLookback: 10})
	assert.True(t, errors.Is(err, ErrMissingIndex))

	_, err = AdjustPrice(models.InflationLinked, 100, IndexAdjustment{AtIssuance: 10, AtLookback: -1})
	assert.True(t, errors.Is(err, ErrMissingIndex))

	_, err = AdjustPrice(models.InflationLinked, -5, IndexAdjustment{AtIssuance: 10, AtLookback: 10})
	assert.True(t, errors.Is(err, ErrInvalidPrice))
}

func TestIndexSeriesAtFallsBackToPriorDate(t *testing.T) {
	d := func(m time.Month, day int) time.Time { return time.Date(2024, m, day, 0, 0, 0, 0, time.UTC) }
	s := NewIndexSeries([]models.IndexPoint{
		{Date: d(time.June, 5), Value: 102},
		{Date: d(time.June, 3), Value: 100},
		{Date: d(time.June, 4), Value: 101},
		{Date: d(time.June, 7), Value: 0},
	})
	require.Equal(t, 4, s.Len())

	v, ok := s.At(d(time.June, 4))
	require.True(t, ok)
	assert.Equal(t, 101.0, v)

	v, ok = s.At(d(time.June, 6))
	require.True(t, ok)
	assert.Equal(t, 102.0, v)

	_, ok = s.At(d(time.June, 2))
	assert.False(t, ok)

	_, ok = s.At(d(time.June, 8))
	assert.False(t, ok, "non-positive value counts as missing")

	var empty *IndexSeries
	_, ok = empty.At(d(time.June, 4))
	assert.False(t, ok)
}
