package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FinYield/internal/domain/models"
	"FinYield/pkg/logger"
)

// Runner is one valuation pass.
type Runner interface {
	Run(ctx context.Context) (*models.RunSummary, error)
}

// Collector is a startable quote source.
type Collector interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Running() bool
}

// Window is a local intraday [Start, Stop] range, inclusive on both ends.
type Window struct {
	Start time.Duration // offset from local midnight
	Stop  time.Duration
}

// ParseWindow parses "HH:MM" bounds.
func ParseWindow(start, stop string) (Window, error) {
	s, err := parseHHMM(start)
	if err != nil {
		return Window{}, fmt.Errorf("window start: %w", err)
	}
	e, err := parseHHMM(stop)
	if err != nil {
		return Window{}, fmt.Errorf("window stop: %w", err)
	}
	if s >= e {
		return Window{}, fmt.Errorf("window start %s must be before stop %s", start, stop)
	}
	return Window{Start: s, Stop: e}, nil
}

func parseHHMM(v string) (time.Duration, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Contains reports whether now, projected into loc, lies in the window.
func (w Window) Contains(now time.Time, loc *time.Location) bool {
	local := now.In(loc)
	y, m, d := local.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return !local.Before(midnight.Add(w.Start)) && !local.After(midnight.Add(w.Stop))
}

// Syncer refreshes the index series.
type Syncer interface {
	Sync(ctx context.Context) (int, error)
}

// Scheduler runs valuation passes every interval and keeps the quote
// collector running only inside the trading window.
type Scheduler struct {
	runner    Runner
	collector Collector
	log       *logger.Logger
	interval  time.Duration
	guard     time.Duration
	window    Window
	loc       *time.Location
	now       func() time.Time

	syncer    Syncer
	syncEvery time.Duration
}

func NewScheduler(runner Runner, collector Collector, log *logger.Logger, interval time.Duration, window Window, loc *time.Location) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		runner:    runner,
		collector: collector,
		log:       log,
		interval:  interval,
		guard:     5 * time.Second,
		window:    window,
		loc:       loc,
		now:       time.Now,
	}
}

// WithIndexSync also refreshes the index series every interval, starting
// before the first valuation pass.
func (s *Scheduler) WithIndexSync(syncer Syncer, every time.Duration) *Scheduler {
	s.syncer = syncer
	s.syncEvery = every
	return s
}

// Run blocks until ctx is cancelled. The first valuation pass starts
// immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	runTick := time.NewTicker(s.interval)
	defer runTick.Stop()
	guardTick := time.NewTicker(s.guard)
	defer guardTick.Stop()

	var syncC <-chan time.Time
	if s.syncer != nil && s.syncEvery > 0 {
		syncTick := time.NewTicker(s.syncEvery)
		defer syncTick.Stop()
		syncC = syncTick.C
		s.syncOnce(ctx)
	}

	s.checkWindow(ctx)
	s.runOnce(ctx)
	for {
		select {
		case <-syncC:
			s.syncOnce(ctx)
		case <-ctx.Done():
			if s.collector != nil && s.collector.Running() {
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				_ = s.collector.Stop(stopCtx)
				cancel()
			}
			return nil
		case <-guardTick.C:
			s.checkWindow(ctx)
		case <-runTick.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if _, err := s.runner.Run(ctx); err != nil {
		if errors.Is(err, ErrRunInProgress) {
			s.log.Info("valuation run skipped: lock held elsewhere")
			return
		}
		if ctx.Err() == nil {
			s.log.Error("valuation run failed", logger.Error(err))
		}
	}
}

func (s *Scheduler) syncOnce(ctx context.Context) {
	if _, err := s.syncer.Sync(ctx); err != nil && ctx.Err() == nil {
		s.log.Warn("index sync failed", logger.Error(err))
	}
}

func (s *Scheduler) checkWindow(ctx context.Context) {
	if s.collector == nil {
		return
	}
	inside := s.window.Contains(s.now(), s.loc)
	switch running := s.collector.Running(); {
	case inside && !running:
		if err := s.collector.Start(ctx); err != nil {
			s.log.Warn("quote collector start failed", logger.Error(err))
		}
	case !inside && running:
		if err := s.collector.Stop(ctx); err != nil {
			s.log.Warn("quote collector stop failed", logger.Error(err))
		}
	}
}
