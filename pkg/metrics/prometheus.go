package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"FinYield/internal/domain/models"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	valuations *prometheus.CounterVec
	skips      *prometheus.CounterVec
	ytm        *prometheus.GaugeVec
	duration   *prometheus.GaugeVec
	quotes     *prometheus.CounterVec
	errors     *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// New registers the recorder's collectors on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the collectors on reg; tests pass a fresh
// prometheus.NewRegistry().
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		valuations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "finyield_valuations_total",
			Help: "Instruments processed per valuation pass, by type and result",
		}, []string{"type", "result"}),
		skips: f.NewCounterVec(prometheus.CounterOpts{
			Name: "finyield_skips_total",
			Help: "Instruments skipped, by reason",
		}, []string{"reason"}),
		ytm: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "finyield_ytm",
			Help: "Last solved annual yield per instrument",
		}, []string{"instrument"}),
		duration: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "finyield_duration_years",
			Help: "Last Macaulay duration per instrument",
		}, []string{"instrument"}),
		quotes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "finyield_quotes_total",
			Help: "Quotes pushed, by backend",
		}, []string{"backend"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "finyield_errors_total",
			Help: "Total number of errors encountered",
		}, []string{"kind"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "finyield_operation_duration_seconds",
			Help:    "Duration of operations in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (r *Recorder) RecordValuation(kind models.InstrumentType, result string) {
	r.valuations.WithLabelValues(string(kind), result).Inc()
}

func (r *Recorder) RecordSkip(reason models.SkipReason) {
	r.skips.WithLabelValues(string(reason)).Inc()
}

// RecordYield sets the yield gauge and, when defined, the duration gauge.
func (r *Recorder) RecordYield(instrument string, ytm float64, duration *float64) {
	r.ytm.WithLabelValues(instrument).Set(ytm)
	if duration != nil {
		r.duration.WithLabelValues(instrument).Set(*duration)
	} else {
		r.duration.DeleteLabelValues(instrument)
	}
}

func (r *Recorder) RecordQuote(backend string) {
	r.quotes.WithLabelValues(backend).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errors.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
