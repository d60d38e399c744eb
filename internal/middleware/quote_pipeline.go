package middleware

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"FinYield/internal/domain/models"
	domrepo "FinYield/internal/domain/repository"
	"FinYield/pkg/logger"
)

// Proc is the downstream the pipeline pushes quotes to.
type Proc interface {
	Process(ctx context.Context, q *models.Quote) error
}

type tickerState struct {
	last, bid, ask, close float64
}

// QuotePipeline sits between the market stream and the quote backend. It
// keeps the latest top of book per ticker, derives change and the FX
// converted price, and pushes each ticker at most once per push interval.
type QuotePipeline struct {
	proc     Proc
	metrics  domrepo.Metrics
	log      *logger.Logger
	interval time.Duration
	tick     time.Duration
	fxDollar string
	fxLocal  string
	now      func() time.Time

	mu       sync.Mutex
	latest   map[string]*tickerState
	lastPush map[string]time.Time
	refs     map[string]float64

	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
}

type PipelineOption func(*QuotePipeline)

// WithPushInterval sets the minimum time between pushes of one ticker.
func WithPushInterval(d time.Duration) PipelineOption {
	return func(p *QuotePipeline) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithFXReferences sets the dollar and local legs of the FX ratio.
func WithFXReferences(dollar, local string) PipelineOption {
	return func(p *QuotePipeline) {
		p.fxDollar = dollar
		p.fxLocal = local
	}
}

func WithLogger(l *logger.Logger) PipelineOption {
	return func(p *QuotePipeline) {
		if l != nil {
			p.log = l
		}
	}
}

func withClock(now func() time.Time) PipelineOption {
	return func(p *QuotePipeline) { p.now = now }
}

func NewQuotePipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *QuotePipeline {
	p := &QuotePipeline{
		proc:     proc,
		metrics:  metrics,
		log:      logger.Nop(),
		interval: 10 * time.Second,
		tick:     time.Second,
		fxDollar: "AL30D",
		fxLocal:  "AL30",
		now:      time.Now,
		latest:   make(map[string]*tickerState),
		lastPush: make(map[string]time.Time),
		refs:     make(map[string]float64),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Observe records one market-data update. A missing close keeps the last
// known close of the ticker.
func (p *QuotePipeline) Observe(md *models.MarketData) error {
	if err := validateMarketData(md); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	st, ok := p.latest[md.Symbol]
	if !ok {
		st = &tickerState{}
		p.latest[md.Symbol] = st
	}
	st.last, st.bid, st.ask = md.Last, md.Bid, md.Ask
	if md.Close > 0 {
		st.close = md.Close
	}
	if md.Symbol == p.fxDollar || md.Symbol == p.fxLocal {
		p.refs[md.Symbol] = md.Last
	}
	return nil
}

// Flush pushes every ticker whose push interval has elapsed. Failed pushes
// are retried on the next flush.
func (p *QuotePipeline) Flush(ctx context.Context) int {
	now := p.now()
	due := p.dueQuotes(now)

	pushed := 0
	for _, q := range due {
		start := time.Now()
		if err := p.proc.Process(ctx, q); err != nil {
			p.metrics.RecordError("pipeline_process")
			p.log.Warn("quote push failed", logger.String("symbol", q.Symbol), logger.Error(err))
			continue
		}
		p.metrics.RecordLatency("pipeline_push", time.Since(start).Seconds())
		p.mu.Lock()
		p.lastPush[q.Symbol] = now
		p.mu.Unlock()
		pushed++
	}
	return pushed
}

func (p *QuotePipeline) dueQuotes(now time.Time) []*models.Quote {
	p.mu.Lock()
	defer p.mu.Unlock()

	fx := 0.0
	if d, l := p.refs[p.fxDollar], p.refs[p.fxLocal]; d > 0 && l > 0 {
		fx = d / l
	}
	out := make([]*models.Quote, 0, len(p.latest))
	for sym, st := range p.latest {
		if last, ok := p.lastPush[sym]; ok && now.Sub(last) < p.interval {
			continue
		}
		q := &models.Quote{
			Symbol:    sym,
			Last:      st.last,
			Bid:       st.bid,
			Ask:       st.ask,
			Close:     st.close,
			FXRate:    fx,
			PriceUSD:  st.last * fx,
			UpdatedAt: now.UTC(),
		}
		if st.close > 0 {
			q.Change = st.last/st.close - 1
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Start flushes once per second until Stop or ctx cancellation.
func (p *QuotePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	stop, done := p.stopCh, p.doneCh
	p.mu.Unlock()

	go func() {
		defer close(done)
		t := time.NewTicker(p.tick)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-t.C:
				p.Flush(ctx)
			}
		}
	}()
}

// Stop halts the flush loop and waits for it to exit.
func (p *QuotePipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	stop, done := p.stopCh, p.doneCh
	p.mu.Unlock()
	close(stop)
	<-done
}

func validateMarketData(md *models.MarketData) error {
	if md == nil {
		return fmt.Errorf("market data nil")
	}
	if md.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	if md.Last <= 0 {
		return fmt.Errorf("last price must be positive")
	}
	if md.Bid < 0 || md.Ask < 0 || md.Close < 0 {
		return fmt.Errorf("negative bid/ask/close")
	}
	return nil
}
