// Package valuation runs the per-instrument pipeline: price adjustment,
// XIRR, Macaulay duration and bullet TNA.
package valuation

import (
	"errors"
	"fmt"
	"time"

	"FinYield/internal/domain/models"
	"FinYield/internal/services/pricing"
	"FinYield/internal/services/yield"
)

// Pipeline stages reported on SkipError.
const (
	StageFlows = "flows"
	StagePrice = "price"
	StageSolve = "solve"
)

// Input is everything needed to value one instrument.
type Input struct {
	Valuation time.Time
	Price     float64 // quoted, before index adjustment
	Schedule  models.Schedule
	Index     pricing.IndexAdjustment
}

// SkipError reports an instrument that could not be valued. It wraps the
// underlying cause so errors.Is works against the pricing and yield errors.
type SkipError struct {
	InstrumentID string
	Reason       models.SkipReason
	Stage        string
	Err          error
	Detail       string
}

func (e *SkipError) Error() string {
	msg := fmt.Sprintf("%s: %s at %s", e.InstrumentID, e.Reason, e.Stage)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *SkipError) Unwrap() error { return e.Err }

// AsSkip extracts a *SkipError from err.
func AsSkip(err error) (*SkipError, bool) {
	var se *SkipError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// Valuer values instruments. It holds no per-run state and is safe for
// concurrent use.
type Valuer struct {
	solverOpts []yield.Option
}

// NewValuer creates a Valuer; solver options are passed to every XIRR call.
func NewValuer(opts ...yield.Option) *Valuer {
	return &Valuer{solverOpts: opts}
}

// Value computes the metrics of one instrument. RunID and ComputedAt are
// left for the caller. Any skip is returned as *SkipError.
func (v *Valuer) Value(in Input) (*models.ValuationResult, error) {
	id := in.Schedule.InstrumentID

	future := FutureFlows(in.Schedule.Flows, in.Valuation)
	if len(future) == 0 {
		return nil, &SkipError{
			InstrumentID: id,
			Reason:       models.SkipInsufficientFlows,
			Stage:        StageFlows,
			Err:          yield.ErrInsufficientFlows,
			Detail:       "no non-zero flow after valuation",
		}
	}

	price, err := pricing.AdjustPrice(in.Schedule.Type, in.Price, in.Index)
	if err != nil {
		reason := models.SkipMissingPrice
		if errors.Is(err, pricing.ErrMissingIndex) {
			reason = models.SkipMissingIndex
		}
		return nil, &SkipError{InstrumentID: id, Reason: reason, Stage: StagePrice, Err: err}
	}

	stream := make([]models.CashFlow, 0, len(future)+1)
	stream = append(stream, models.CashFlow{Date: in.Valuation, Amount: -price})
	stream = append(stream, future...)

	r, err := yield.XIRR(stream, v.solverOpts...)
	if err != nil {
		reason := models.SkipNonConvergentRoot
		if errors.Is(err, yield.ErrInsufficientFlows) {
			reason = models.SkipInsufficientFlows
		}
		return nil, &SkipError{
			InstrumentID: id,
			Reason:       reason,
			Stage:        StageSolve,
			Err:          err,
			Detail:       describe(price, future),
		}
	}

	res := &models.ValuationResult{
		InstrumentID: id,
		Type:         in.Schedule.Type,
		YTM:          r,
		PriceUsed:    price,
	}
	if d, ok := yield.MacaulayDuration(r, yield.PositiveLeg(in.Valuation, future)); ok {
		res.DurationYears = &d
	}
	if in.Schedule.Type == models.PlainRate {
		if tna, ok := yield.TNA(price, future, in.Valuation); ok {
			res.TNA = &tna
		}
	}
	return res, nil
}

// FutureFlows returns the non-zero flows paid strictly after valuation.
func FutureFlows(flows []models.CashFlow, valuation time.Time) []models.CashFlow {
	out := make([]models.CashFlow, 0, len(flows))
	for _, f := range flows {
		if f.Amount != 0 && f.Date.After(valuation) {
			out = append(out, f)
		}
	}
	return out
}

func describe(price float64, flows []models.CashFlow) string {
	var sum float64
	for _, f := range flows {
		sum += f.Amount
	}
	first, last := flows[0].Date, flows[len(flows)-1].Date
	return fmt.Sprintf("price_used=%.6f flows=%d sum=%.6f first=%s last=%s",
		price, len(flows), sum, first.Format("2006-01-02"), last.Format("2006-01-02"))
}
