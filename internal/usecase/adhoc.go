package usecase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"FinYield/internal/domain/models"
	drepo "FinYield/internal/domain/repository"
	"FinYield/internal/services/calendar"
	"FinYield/internal/services/cashflow"
	"FinYield/internal/services/pricing"
	"FinYield/internal/services/valuation"
)

// AdhocRunID marks results computed on request rather than by a run.
const AdhocRunID = "adhoc"

// AdhocValuer values a caller-supplied cash-flow stream with the same core
// and date conventions as the scheduled runs.
type AdhocValuer struct {
	holidays drepo.HolidaySource
	valuer   *valuation.Valuer
	cfg      RunnerConfig
	now      func() time.Time
}

func NewAdhocValuer(holidays drepo.HolidaySource, valuer *valuation.Valuer, cfg RunnerConfig) *AdhocValuer {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &AdhocValuer{holidays: holidays, valuer: valuer, cfg: cfg, now: time.Now}
}

// Compute returns the metrics for req. Instruments that cannot be valued
// yield a *valuation.SkipError.
func (a *AdhocValuer) Compute(ctx context.Context, req *models.ComputeRequest) (*models.ValuationResult, error) {
	hs, err := a.holidays.LoadHolidays(ctx)
	if err != nil {
		return nil, fmt.Errorf("load holidays: %w", err)
	}
	resolver := calendar.NewResolver(calendar.New(calendar.NewHolidaySet(hs...)),
		calendar.WithLocation(a.cfg.Location),
		calendar.WithAnchor(a.cfg.Anchor),
		calendar.WithLookbackDays(a.cfg.LookbackDays),
	)

	var res calendar.Resolution
	if req.ValuationDate != "" {
		d, err := calendar.ParseDate(req.ValuationDate)
		if err != nil {
			return nil, fmt.Errorf("valuation_date: %w", err)
		}
		res = resolver.ResolveDate(d)
	} else {
		res = resolver.Resolve(a.now())
	}

	records := make([]models.FlowRecord, 0, len(req.Flows))
	for _, f := range req.Flows {
		d, err := calendar.ParseDate(f.Date)
		if err != nil {
			return nil, fmt.Errorf("flow date %q: %w", f.Date, err)
		}
		records = append(records, models.FlowRecord{
			InstrumentID: req.InstrumentID,
			PaymentDate:  d,
			Amount:       strconv.FormatFloat(f.Amount, 'f', -1, 64),
			TypeTag:      req.Type,
		})
	}

	sched := models.Schedule{InstrumentID: req.InstrumentID, Type: models.InstrumentType(req.Type)}
	if agg := cashflow.Aggregate(records, res.Cutoff); len(agg.Schedules) == 1 {
		sched.Flows = agg.Schedules[0].Flows
	}

	out, err := a.valuer.Value(valuation.Input{
		Valuation: res.Valuation,
		Price:     req.Price,
		Schedule:  sched,
		Index:     pricing.IndexAdjustment{AtIssuance: req.IndexIssuance, AtLookback: req.IndexLookback},
	})
	if err != nil {
		return nil, err
	}
	out.RunID = AdhocRunID
	out.ComputedAt = a.now().UTC()
	return out, nil
}
