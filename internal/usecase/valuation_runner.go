package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"FinYield/internal/domain/models"
	drepo "FinYield/internal/domain/repository"
	"FinYield/internal/services/calendar"
	"FinYield/internal/services/cashflow"
	"FinYield/internal/services/pricing"
	"FinYield/internal/services/valuation"
	"FinYield/pkg/cache"
	"FinYield/pkg/logger"
)

// ErrRunInProgress is returned when another process holds the run lock.
var ErrRunInProgress = errors.New("valuation run already in progress")

const runLockKey = "finyield:valuation:lock"

// RunnerConfig holds the per-deployment valuation settings.
type RunnerConfig struct {
	Location        *time.Location
	Anchor          calendar.Anchor
	LookbackDays    int
	IndexSeries     string
	DebugInstrument string
	LoadTimeout     time.Duration
	LockTTL         time.Duration
}

// ValuationRunner executes one valuation pass: load inputs, resolve T+1,
// aggregate flows, value every instrument and persist the outcome.
type ValuationRunner struct {
	flows    drepo.FlowSource
	holidays drepo.HolidaySource
	index    drepo.IndexStore
	quotes   drepo.QuoteStore
	results  drepo.ResultStore
	pub      drepo.ResultPublisher
	lock     cache.Service
	metrics  drepo.Metrics
	log      *logger.Logger
	valuer   *valuation.Valuer
	cfg      RunnerConfig

	now   func() time.Time
	newID func() string
}

func NewValuationRunner(
	flows drepo.FlowSource,
	holidays drepo.HolidaySource,
	index drepo.IndexStore,
	quotes drepo.QuoteStore,
	results drepo.ResultStore,
	pub drepo.ResultPublisher,
	lock cache.Service,
	metrics drepo.Metrics,
	log *logger.Logger,
	valuer *valuation.Valuer,
	cfg RunnerConfig,
) *ValuationRunner {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = 30 * time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ValuationRunner{
		flows:    flows,
		holidays: holidays,
		index:    index,
		quotes:   quotes,
		results:  results,
		pub:      pub,
		lock:     lock,
		metrics:  metrics,
		log:      log,
		valuer:   valuer,
		cfg:      cfg,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

type runInputs struct {
	records   []models.FlowRecord
	issuance  map[string]float64
	holidays  []time.Time
	series    *pricing.IndexSeries
	quotesMap map[string]*models.Quote
}

// Run performs one pass. Per-instrument failures become skips; only input
// loading, the run lock and result persistence fail the run.
func (r *ValuationRunner) Run(ctx context.Context) (*models.RunSummary, error) {
	start := time.Now()
	runID := r.newID()
	log := r.log.With(logger.String("run_id", runID))

	if r.lock != nil {
		ok, err := r.lock.TryLock(ctx, runLockKey, r.cfg.LockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire run lock: %w", err)
		}
		if !ok {
			return nil, ErrRunInProgress
		}
		defer func() {
			if err := r.lock.Unlock(context.Background(), runLockKey); err != nil {
				log.Warn("release run lock", logger.Error(err))
			}
		}()
	}

	in := &runInputs{}
	if err := r.loadBase(ctx, in); err != nil {
		r.metrics.RecordError("load")
		return nil, err
	}

	cal := calendar.New(calendar.NewHolidaySet(in.holidays...))
	res := calendar.NewResolver(cal,
		calendar.WithLocation(r.cfg.Location),
		calendar.WithAnchor(r.cfg.Anchor),
		calendar.WithLookbackDays(r.cfg.LookbackDays),
	).Resolve(r.now())

	agg := cashflow.Aggregate(in.records, res.Cutoff)
	for _, issue := range agg.Issues {
		log.Warn("invalid flow record",
			logger.Int("index", issue.Index),
			logger.String("instrument", issue.InstrumentID),
			logger.String("kind", string(issue.Kind)),
			logger.String("value", issue.Value),
		)
	}

	if err := r.loadMarket(ctx, in, agg.Schedules, res.Lookback); err != nil {
		r.metrics.RecordError("load")
		return nil, err
	}
	lookbackIndex, _ := in.series.At(cashflow.NormalizeDate(res.Lookback))

	summary := &models.RunSummary{
		RunID:       runID,
		Valuation:   res.Valuation,
		Lookback:    res.Lookback,
		BadRecords:  len(agg.Issues),
		SkipsByKind: make(map[models.SkipReason]int),
	}
	computedAt := r.now().UTC()
	results := make([]*models.ValuationResult, 0, len(agg.Schedules))
	var skips []models.ValuationSkip

	for _, sched := range agg.Schedules {
		quote := in.quotesMap[sched.InstrumentID]
		input := valuation.Input{
			Valuation: res.Valuation,
			Price:     quote.Price(sched.PriceSource),
			Schedule:  sched,
			Index: pricing.IndexAdjustment{
				AtIssuance: in.issuance[sched.InstrumentID],
				AtLookback: lookbackIndex,
			},
		}
		if r.cfg.DebugInstrument != "" && strings.EqualFold(r.cfg.DebugInstrument, sched.InstrumentID) {
			r.debugDump(log, input, quote)
		}

		out, err := r.valuer.Value(input)
		if err != nil {
			skip := r.skipFor(runID, sched.InstrumentID, err, computedAt)
			skips = append(skips, skip)
			summary.SkipsByKind[skip.Reason]++
			r.metrics.RecordSkip(skip.Reason)
			r.metrics.RecordValuation(sched.Type, "skipped")
			log.Warn("instrument skipped",
				logger.String("instrument", skip.InstrumentID),
				logger.String("reason", string(skip.Reason)),
				logger.String("stage", skip.Stage),
				logger.String("detail", skip.Detail),
			)
			continue
		}
		out.RunID = runID
		out.ComputedAt = computedAt
		results = append(results, out)
		r.metrics.RecordValuation(sched.Type, "ok")
		r.metrics.RecordYield(out.InstrumentID, out.YTM, out.DurationYears)
	}
	summary.Valued = len(results)
	summary.Skipped = len(skips)

	if err := r.persist(ctx, log, results, skips); err != nil {
		return summary, err
	}

	summary.Elapsed = time.Since(start)
	r.metrics.RecordLatency("valuation_run", summary.Elapsed.Seconds())
	log.Info("valuation run complete",
		logger.Time("valuation", res.Valuation),
		logger.String("lookback", calendar.FormatDate(res.Lookback)),
		logger.Int("valued", summary.Valued),
		logger.Int("skipped", summary.Skipped),
		logger.Int("bad_records", summary.BadRecords),
		logger.Duration("elapsed_ms", summary.Elapsed),
	)
	return summary, nil
}

func (r *ValuationRunner) loadBase(ctx context.Context, in *runInputs) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.LoadTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		in.records, err = r.flows.LoadFlows(gctx)
		if err != nil {
			return fmt.Errorf("load flows: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		in.issuance, err = r.flows.LoadIssuanceIndex(gctx)
		if err != nil {
			return fmt.Errorf("load issuance index: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		in.holidays, err = r.holidays.LoadHolidays(gctx)
		if err != nil {
			return fmt.Errorf("load holidays: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// loadMarket reads quotes for every scheduled instrument and, when any
// instrument is inflation-linked, the index series up to the lookback date.
func (r *ValuationRunner) loadMarket(ctx context.Context, in *runInputs, scheds []models.Schedule, lookback time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.LoadTimeout)
	defer cancel()

	ids := make([]string, 0, len(scheds))
	linked := false
	for _, s := range scheds {
		ids = append(ids, s.InstrumentID)
		linked = linked || s.Type == models.InflationLinked
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		in.quotesMap, err = r.quotes.GetQuotes(gctx, ids)
		if err != nil {
			return fmt.Errorf("load quotes: %w", err)
		}
		return nil
	})
	if linked {
		g.Go(func() error {
			pts, err := r.index.LoadIndexSeries(gctx, r.cfg.IndexSeries, cashflow.NormalizeDate(lookback))
			if err != nil {
				return fmt.Errorf("load index series %s: %w", r.cfg.IndexSeries, err)
			}
			in.series = pricing.NewIndexSeries(pts)
			return nil
		})
	}
	return g.Wait()
}

func (r *ValuationRunner) skipFor(runID, id string, err error, at time.Time) models.ValuationSkip {
	skip := models.ValuationSkip{
		RunID:        runID,
		InstrumentID: id,
		Reason:       models.SkipInvalidRecord,
		Detail:       err.Error(),
		ComputedAt:   at,
	}
	if se, ok := valuation.AsSkip(err); ok {
		skip.Reason = se.Reason
		skip.Stage = se.Stage
		skip.Detail = se.Error()
	}
	return skip
}

func (r *ValuationRunner) persist(ctx context.Context, log *logger.Logger, results []*models.ValuationResult, skips []models.ValuationSkip) error {
	start := time.Now()
	if err := r.results.StoreResults(ctx, results); err != nil {
		r.metrics.RecordError("store_results")
		return fmt.Errorf("store results: %w", err)
	}
	r.metrics.RecordLatency("store_results", time.Since(start).Seconds())

	if err := r.results.StoreSkips(ctx, skips); err != nil {
		r.metrics.RecordError("store_skips")
		log.Warn("store skips failed", logger.Int("skips", len(skips)), logger.Error(err))
	}
	if r.pub != nil {
		if err := r.pub.PublishResults(ctx, results); err != nil {
			r.metrics.RecordError("publish_results")
			log.Warn("publish results failed", logger.Int("results", len(results)), logger.Error(err))
		}
	}
	return nil
}

func (r *ValuationRunner) debugDump(log *logger.Logger, in valuation.Input, q *models.Quote) {
	flows := make([]string, 0, len(in.Schedule.Flows))
	for _, f := range in.Schedule.Flows {
		flows = append(flows, fmt.Sprintf("%s=%.6f", calendar.FormatDate(f.Date), f.Amount))
	}
	log.Debug("instrument inputs",
		logger.String("instrument", in.Schedule.InstrumentID),
		logger.String("type", string(in.Schedule.Type)),
		logger.String("price_source", string(in.Schedule.PriceSource)),
		logger.Float64("price", in.Price),
		logger.Bool("quoted", q != nil),
		logger.Float64("index_issuance", in.Index.AtIssuance),
		logger.Float64("index_lookback", in.Index.AtLookback),
		logger.Strings("flows", flows),
	)
}
