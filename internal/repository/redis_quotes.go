package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"FinYield/internal/domain/models"
	domrepo "FinYield/internal/domain/repository"
	"FinYield/pkg/cache"
)

// QuoteCache keeps the latest quote per symbol in a cache.Service
// (Redis in production, MemoryCache in tests).
type QuoteCache struct {
	c      cache.Service
	prefix string
	ttl    time.Duration
}

func NewQuoteCache(c cache.Service, prefix string, ttl time.Duration) *QuoteCache {
	return &QuoteCache{c: c, prefix: prefix, ttl: ttl}
}

var _ domrepo.QuoteStore = (*QuoteCache)(nil)

func (q *QuoteCache) key(symbol string) string {
	return q.prefix + strings.ToUpper(strings.TrimSpace(symbol))
}

func (q *QuoteCache) SaveQuote(ctx context.Context, quote *models.Quote) error {
	if quote == nil || quote.Symbol == "" {
		return fmt.Errorf("quote without symbol")
	}
	if err := q.c.Set(ctx, q.key(quote.Symbol), quote, q.ttl); err != nil {
		return fmt.Errorf("save quote %s: %w", quote.Symbol, err)
	}
	return nil
}

func (q *QuoteCache) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	var out models.Quote
	if err := q.c.Get(ctx, q.key(symbol), &out); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, domrepo.ErrNotFound
		}
		return nil, fmt.Errorf("get quote %s: %w", symbol, err)
	}
	return &out, nil
}

// GetQuotes returns quotes keyed by the requested symbol; missing symbols
// are absent from the map.
func (q *QuoteCache) GetQuotes(ctx context.Context, symbols []string) (map[string]*models.Quote, error) {
	if len(symbols) == 0 {
		return map[string]*models.Quote{}, nil
	}
	keys := make([]string, len(symbols))
	bySymbol := make(map[string]string, len(symbols))
	for i, s := range symbols {
		keys[i] = q.key(s)
		bySymbol[keys[i]] = s
	}
	raw, err := cache.MGetTyped[models.Quote](ctx, q.c, keys...)
	if err != nil {
		return nil, fmt.Errorf("get quotes: %w", err)
	}
	out := make(map[string]*models.Quote, len(raw))
	for k, v := range raw {
		v := v
		out[bySymbol[k]] = &v
	}
	return out, nil
}
