package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"FinYield/internal/domain/models"
	drepo "FinYield/internal/domain/repository"
	pkgkafka "FinYield/pkg/kafka"
)

// KafkaQuotesHandler persists quotes consumed from the quotes topic.
type KafkaQuotesHandler struct {
	topic   string
	store   drepo.QuoteStore
	metrics drepo.Metrics
}

func NewKafkaQuotesHandler(topic string, store drepo.QuoteStore, metrics drepo.Metrics) *KafkaQuotesHandler {
	return &KafkaQuotesHandler{topic: topic, store: store, metrics: metrics}
}

var _ pkgkafka.MessageHandler = (*KafkaQuotesHandler)(nil)

func (h *KafkaQuotesHandler) Topic() string { return h.topic }

func (h *KafkaQuotesHandler) Handle(ctx context.Context, b []byte) error {
	var q models.Quote
	if err := json.Unmarshal(b, &q); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode quote: %w", err)
	}
	if q.Symbol == "" {
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("quote without symbol")
	}
	if !q.UpdatedAt.IsZero() {
		h.metrics.RecordLatency("quote_e2e", time.Since(q.UpdatedAt).Seconds())
	}

	start := time.Now()
	if err := h.store.SaveQuote(ctx, &q); err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordLatency("quote_store", time.Since(start).Seconds())
	h.metrics.RecordQuote("consumer")
	return nil
}
