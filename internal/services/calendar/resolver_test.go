package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveMidnightAnchor(t *testing.T) {
	loc := time.FixedZone("ART", -3*3600)
	r := NewResolver(New(nil), WithLocation(loc))

	// Friday 2024-06-07 22:00 local is already Saturday in UTC
	now := time.Date(2024, time.June, 8, 1, 0, 0, 0, time.UTC)
	res := r.Resolve(now)

	assert.Equal(t, time.Date(2024, time.June, 10, 0, 0, 0, 0, loc), res.T1)
	assert.Equal(t, time.Date(2024, time.June, 10, 3, 0, 0, 0, time.UTC), res.Valuation)
	assert.Equal(t, res.Valuation, res.Cutoff)
	assert.Equal(t, time.UTC, res.Valuation.Location())
}

func TestResolveEndOfDayAnchor(t *testing.T) {
	loc := time.FixedZone("ART", -3*3600)
	r := NewResolver(New(nil), WithLocation(loc), WithAnchor(AnchorEndOfDay))

	res := r.Resolve(time.Date(2024, time.June, 11, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, time.June, 13, 2, 59, 59, 0, time.UTC), res.Valuation)
}

func TestResolveLookback(t *testing.T) {
	cal := New(NewHolidaySet(date(2024, time.June, 17), date(2024, time.June, 20)))
	r := NewResolver(cal, WithLookbackDays(10))

	res := r.Resolve(time.Date(2024, time.June, 21, 12, 0, 0, 0, time.UTC))
	require.Equal(t, date(2024, time.June, 24), res.T1)
	// Jun 21,19,18,14,13,12,11,10,7,6
	assert.Equal(t, date(2024, time.June, 6), res.Lookback)
}

func TestParseAnchor(t *testing.T) {
	a, err := ParseAnchor("")
	require.NoError(t, err)
	assert.Equal(t, AnchorMidnight, a)

	a, err = ParseAnchor("END_OF_DAY")
	require.NoError(t, err)
	assert.Equal(t, AnchorEndOfDay, a)

	_, err = ParseAnchor("noon")
	assert.Error(t, err)
}

func TestLoadLocationFallback(t *testing.T) {
	assert.Equal(t, time.UTC, LoadLocation(""))
	assert.Equal(t, time.UTC, LoadLocation("Not/AZone"))
}

func TestResolveDateUsesCalendarDate(t *testing.T) {
	loc := time.FixedZone("ART", -3*3600)
	r := NewResolver(New(nil), WithLocation(loc))

	res := r.ResolveDate(time.Date(2024, 5, 4, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 5, 4, 3, 0, 0, 0, time.UTC), res.Valuation)
	assert.Equal(t, res.Valuation, res.Cutoff)
	// Saturday: lookback steps back over business days only
	assert.Equal(t, "2024-04-22", FormatDate(res.Lookback))
}
