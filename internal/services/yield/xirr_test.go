package yield

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinYield/internal/domain/models"
)

var valuation = time.Date(2024, time.June, 10, 3, 0, 0, 0, time.UTC)

func at(days int) time.Time {
	return time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC).AddDate(0, 0, days)
}

func TestYearFractionIgnoresIntraday(t *testing.T) {
	assert.Equal(t, 2.0, YearFraction(valuation, at(730)))
	assert.Equal(t, 0.0, YearFraction(valuation, at(0)))

	local := time.FixedZone("ART", -3*3600)
	// 23:00 local on Jun 9 is Jun 10 in UTC
	from := time.Date(2024, time.June, 9, 23, 0, 0, 0, local)
	assert.Equal(t, 1.0/365, YearFraction(from, at(1)))
}

func TestXIRRConcreteScenario(t *testing.T) {
	flows := []models.CashFlow{
		{Date: valuation, Amount: -100},
		{Date: at(730), Amount: 150},
	}
	r, err := XIRR(flows)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(1.5)-1, r, 1e-9)
	assert.InDelta(t, 0.224745, r, 1e-6)
}

func TestXIRRSingleFlowRoundTrip(t *testing.T) {
	cases := []struct {
		price, payoff float64
		days          int
	}{
		{100, 150, 730},
		{95.5, 100, 90},
		{40, 100, 3650},
		{100, 80, 365},
		{1000, 1001, 7},
	}
	for _, c := range cases {
		flows := []models.CashFlow{
			{Date: valuation, Amount: -c.price},
			{Date: at(c.days), Amount: c.payoff},
		}
		r, err := XIRR(flows)
		require.NoError(t, err)

		T := float64(c.days) / 365
		implied := c.payoff / math.Pow(1+r, T)
		assert.InEpsilon(t, c.price, implied, 1e-8, "price %v payoff %v days %d", c.price, c.payoff, c.days)
	}
}

func TestXIRRCouponBondZeroesNPV(t *testing.T) {
	flows := []models.CashFlow{
		{Date: at(730), Amount: 104},
		{Date: valuation, Amount: -98},
		{Date: at(182), Amount: 4},
		{Date: at(365), Amount: 4},
		{Date: at(547), Amount: 4},
	}
	r, err := XIRR(flows)
	require.NoError(t, err)

	s := newStream(flows)
	assert.InDelta(t, 0, s.value(r), 1e-8)
	assert.Greater(t, r, 0.08)
}

func TestXIRRNoRootForSameSignFlows(t *testing.T) {
	flows := []models.CashFlow{
		{Date: valuation, Amount: -100},
		{Date: at(365), Amount: -50},
	}
	_, err := XIRR(flows)
	assert.True(t, errors.Is(err, ErrNoRoot))
}

func TestXIRRInsufficientFlows(t *testing.T) {
	_, err := XIRR([]models.CashFlow{{Date: valuation, Amount: -100}, {Date: at(30), Amount: 0}})
	assert.True(t, errors.Is(err, ErrInsufficientFlows))

	_, err = XIRR(nil)
	assert.True(t, errors.Is(err, ErrInsufficientFlows))
}

func TestXIRRFallsBackToBracketing(t *testing.T) {
	// the first Newton step from 0.10 lands below -99.99%
	flows := []models.CashFlow{
		{Date: valuation, Amount: -100},
		{Date: at(365), Amount: 50},
	}
	_, ok := newStream(flows).newton(defaultGuess)
	require.False(t, ok)

	r, err := XIRR(flows)
	require.NoError(t, err)
	assert.InDelta(t, -0.5, r, 1e-9)
}

func TestBisectLocatesKnownRoot(t *testing.T) {
	s := newStream([]models.CashFlow{
		{Date: valuation, Amount: -100},
		{Date: at(365), Amount: 110},
	})
	a, b, ok := s.bracket()
	require.True(t, ok)
	assert.LessOrEqual(t, a, 0.1)
	assert.GreaterOrEqual(t, b, 0.1)
	assert.InDelta(t, 0.1, s.bisect(a, b), 1e-9)
}
