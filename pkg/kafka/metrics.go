package kafka

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type clientMetrics struct {
	published   *prometheus.CounterVec
	pubBytes    *prometheus.CounterVec
	pubLatency  *prometheus.HistogramVec
	handled     *prometheus.CounterVec
	handleTime  *prometheus.HistogramVec
	queueDepth  *prometheus.GaugeVec
	deadLetters *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metricsReg  prometheus.Registerer = prometheus.DefaultRegisterer
	m           *clientMetrics
)

// SetMetricsRegisterer must be called before the first producer or consumer
// is created; tests use it to isolate collectors.
func SetMetricsRegisterer(reg prometheus.Registerer) {
	if reg != nil {
		metricsReg = reg
	}
}

func kafkaMetrics() *clientMetrics {
	metricsOnce.Do(func() {
		f := promauto.With(metricsReg)
		m = &clientMetrics{
			published: f.NewCounterVec(prometheus.CounterOpts{
				Name: "finyield_kafka_producer_messages_total",
				Help: "Messages published to Kafka",
			}, []string{"topic", "result"}),
			pubBytes: f.NewCounterVec(prometheus.CounterOpts{
				Name: "finyield_kafka_producer_bytes_total",
				Help: "Payload bytes published",
			}, []string{"topic"}),
			pubLatency: f.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "finyield_kafka_producer_publish_seconds",
				Help:    "Publish latency",
				Buckets: prometheus.DefBuckets,
			}, []string{"topic"}),
			handled: f.NewCounterVec(prometheus.CounterOpts{
				Name: "finyield_kafka_consumer_messages_total",
				Help: "Messages handled, by result",
			}, []string{"topic", "result"}),
			handleTime: f.NewHistogramVec(prometheus.HistogramOpts{
				Name: "finyield_kafka_consumer_handle_seconds",
				Help: "Handling time per message",
			}, []string{"topic"}),
			queueDepth: f.NewGaugeVec(prometheus.GaugeOpts{
				Name: "finyield_kafka_consumer_queue_depth",
				Help: "Messages waiting for a worker",
			}, []string{"topic"}),
			deadLetters: f.NewCounterVec(prometheus.CounterOpts{
				Name: "finyield_kafka_consumer_dlq_total",
				Help: "Messages routed to the dead-letter topic",
			}, []string{"topic"}),
		}
	})
	return m
}

func (cm *clientMetrics) observePublish(topic string, bytes int64, count int, dur time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	cm.published.WithLabelValues(topic, result).Add(float64(count))
	cm.pubBytes.WithLabelValues(topic).Add(float64(bytes))
	cm.pubLatency.WithLabelValues(topic).Observe(dur.Seconds())
}
