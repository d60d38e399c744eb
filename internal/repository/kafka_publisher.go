package repository

import (
	"context"
	"fmt"

	"FinYield/internal/domain/models"
	domrepo "FinYield/internal/domain/repository"
	pkgkafka "FinYield/pkg/kafka"
)

// Producer is the subset of pkg/kafka.Producer the publisher needs.
type Producer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaPublisher fans valuation results and quotes out to Kafka topics,
// keyed by instrument id or symbol.
type KafkaPublisher struct {
	producer     Producer
	resultsTopic string
	quotesTopic  string
}

func NewKafkaPublisher(p Producer, resultsTopic, quotesTopic string) *KafkaPublisher {
	return &KafkaPublisher{producer: p, resultsTopic: resultsTopic, quotesTopic: quotesTopic}
}

var (
	_ domrepo.ResultPublisher = (*KafkaPublisher)(nil)
	_ domrepo.QuotePublisher  = (*KafkaPublisher)(nil)
)

func (k *KafkaPublisher) PublishResults(ctx context.Context, results []*models.ValuationResult) error {
	if len(results) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(results))
	for _, r := range results {
		msgs = append(msgs, pkgkafka.Message{Key: []byte(r.InstrumentID), Value: r})
	}
	if err := k.producer.PublishBatch(ctx, k.resultsTopic, msgs); err != nil {
		return fmt.Errorf("publish %d results: %w", len(results), err)
	}
	return nil
}

func (k *KafkaPublisher) PublishQuote(ctx context.Context, q *models.Quote) error {
	if q == nil {
		return fmt.Errorf("quote is nil")
	}
	return k.producer.Publish(ctx, k.quotesTopic, []byte(q.Symbol), q)
}

func (k *KafkaPublisher) Close() error { return k.producer.Close() }

// NopPublisher discards results when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishResults(context.Context, []*models.ValuationResult) error { return nil }
func (NopPublisher) PublishQuote(context.Context, *models.Quote) error               { return nil }
func (NopPublisher) Close() error                                                    { return nil }
