package yield

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinYield/internal/domain/models"
)

func TestTNABullet(t *testing.T) {
	flows := []models.CashFlow{{Date: at(730), Amount: 150}}
	tna, ok := TNA(100, flows, valuation)
	require.True(t, ok)
	assert.InDelta(t, 0.25, tna, 1e-12)
}

func TestTNAUsesSharedYearFraction(t *testing.T) {
	flows := []models.CashFlow{{Date: at(91), Amount: 100}}
	tna, ok := TNA(92, flows, valuation)
	require.True(t, ok)
	assert.InDelta(t, (100.0/92-1)/YearFraction(valuation, at(91)), tna, 1e-12)
}

func TestTNAUndefinedWithCoupons(t *testing.T) {
	flows := []models.CashFlow{
		{Date: at(180), Amount: 5},
		{Date: at(365), Amount: 105},
	}
	_, ok := TNA(100, flows, valuation)
	assert.False(t, ok)
}

func TestTNAUndefinedEdgeCases(t *testing.T) {
	_, ok := TNA(100, nil, valuation)
	assert.False(t, ok)

	_, ok = TNA(0, []models.CashFlow{{Date: at(10), Amount: 100}}, valuation)
	assert.False(t, ok)

	_, ok = TNA(100, []models.CashFlow{{Date: at(10), Amount: -100}}, valuation)
	assert.False(t, ok)

	// zero amounts and past flows do not count
	tna, ok := TNA(100, []models.CashFlow{
		{Date: at(-10), Amount: 3},
		{Date: at(100), Amount: 0},
		{Date: at(365), Amount: 110},
	}, valuation)
	require.True(t, ok)
	assert.InDelta(t, 0.1, tna, 1e-12)
}
