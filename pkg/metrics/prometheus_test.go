package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"FinYield/internal/domain/models"
)

func TestRecorderCounters(t *testing.T) {
	r := NewWithRegisterer(prometheus.NewRegistry())

	r.RecordValuation(models.PlainRate, "ok")
	r.RecordValuation(models.PlainRate, "ok")
	r.RecordSkip(models.SkipMissingIndex)
	r.RecordQuote("redis")
	r.RecordError("store")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.valuations.WithLabelValues("PlainRate", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.skips.WithLabelValues("missing_index_data")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.quotes.WithLabelValues("redis")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errors.WithLabelValues("store")))
}

func TestRecordYieldDropsUndefinedDuration(t *testing.T) {
	r := NewWithRegisterer(prometheus.NewRegistry())

	d := 1.5
	r.RecordYield("AL30", 0.21, &d)
	assert.Equal(t, 0.21, testutil.ToFloat64(r.ytm.WithLabelValues("AL30")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.duration))

	r.RecordYield("AL30", 0.22, nil)
	assert.Equal(t, 0, testutil.CollectAndCount(r.duration))
}
