package usecase

import (
	"context"
	"fmt"
	"time"

	"FinYield/internal/domain/models"
	drepo "FinYield/internal/domain/repository"
)

// Quote backends.
const (
	BackendRedis = "redis"
	BackendKafka = "kafka"
)

// QuoteProcessor routes quotes to the configured backend: the quote store
// directly, or the quotes topic for KafkaQuotesHandler to persist.
type QuoteProcessor struct {
	pub     drepo.QuotePublisher
	store   drepo.QuoteStore
	metrics drepo.Metrics
	backend string
}

func NewQuoteProcessor(pub drepo.QuotePublisher, store drepo.QuoteStore, metrics drepo.Metrics, backend string) *QuoteProcessor {
	return &QuoteProcessor{pub: pub, store: store, metrics: metrics, backend: backend}
}

func (p *QuoteProcessor) Process(ctx context.Context, q *models.Quote) error {
	if q == nil {
		return fmt.Errorf("quote is nil")
	}
	start := time.Now()

	var err error
	switch p.backend {
	case BackendKafka:
		err = p.pub.PublishQuote(ctx, q)
	case BackendRedis:
		err = p.store.SaveQuote(ctx, q)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}
	if err != nil {
		p.metrics.RecordError("quote_process")
		return fmt.Errorf("process quote %s: %w", q.Symbol, err)
	}

	p.metrics.RecordQuote(p.backend)
	p.metrics.RecordLatency("quote_process", time.Since(start).Seconds())
	return nil
}
