package usecase

import (
	"context"
	"sync"

	"FinYield/internal/domain/models"
	drepo "FinYield/internal/domain/repository"
	mid "FinYield/internal/middleware"
	"FinYield/pkg/logger"
)

// QuoteCollector feeds the market stream into the quote pipeline. It can be
// started and stopped repeatedly, once per trading window.
type QuoteCollector struct {
	stream  drepo.MarketStream
	pipe    *mid.QuotePipeline
	metrics drepo.Metrics
	log     *logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func NewQuoteCollector(stream drepo.MarketStream, pipe *mid.QuotePipeline, metrics drepo.Metrics, log *logger.Logger) *QuoteCollector {
	if log == nil {
		log = logger.Nop()
	}
	return &QuoteCollector{stream: stream, pipe: pipe, metrics: metrics, log: log}
}

func (c *QuoteCollector) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *QuoteCollector) IsConnected() bool { return c.stream.IsConnected() }

// Start connects, subscribes and begins consuming. It is a no-op when the
// collector is already running.
func (c *QuoteCollector) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		_ = c.stream.Close()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true
	c.pipe.Start(runCtx)
	go c.consume(runCtx, c.done)
	c.log.Info("quote collector started")
	return nil
}

func (c *QuoteCollector) consume(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		data, errs := c.stream.Read(ctx)
		c.drain(ctx, data, errs)
		if ctx.Err() != nil {
			return
		}
		c.metrics.RecordError("stream")
		for {
			err := c.stream.Reconnect(ctx)
			if err == nil {
				break
			}
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("broker reconnect failed", logger.Error(err))
		}
		c.log.Info("broker reconnected")
	}
}

// drain returns when the stream reports an error, closes, or ctx ends.
func (c *QuoteCollector) drain(ctx context.Context, data <-chan *models.MarketData, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if ok && err != nil {
				c.log.Warn("market stream error", logger.Error(err))
			}
			return
		case md, ok := <-data:
			if !ok {
				return
			}
			if err := c.pipe.Observe(md); err != nil {
				c.log.Debug("market data rejected", logger.Error(err))
			}
		}
	}
}

// Stop halts consumption, flushes pending quotes and closes the stream.
func (c *QuoteCollector) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	cancel()
	err := c.stream.Close()
	<-done
	c.pipe.Stop()
	c.pipe.Flush(ctx)
	c.log.Info("quote collector stopped")
	return err
}
