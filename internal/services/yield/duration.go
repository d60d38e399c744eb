package yield

import (
	"math"
	"time"

	"FinYield/internal/domain/models"
)

// TimedFlow is a cash flow expressed as a year fraction from valuation.
type TimedFlow struct {
	T      float64
	Amount float64
}

// PositiveLeg returns the strictly positive flows paid after valuation, timed
// from valuation.
func PositiveLeg(valuation time.Time, flows []models.CashFlow) []TimedFlow {
	leg := make([]TimedFlow, 0, len(flows))
	for _, f := range flows {
		if f.Amount <= 0 || !f.Date.After(valuation) {
			continue
		}
		leg = append(leg, TimedFlow{T: YearFraction(valuation, f.Date), Amount: f.Amount})
	}
	return leg
}

// MacaulayDuration returns the present-value weighted mean time of leg at
// rate r. ok is false when r <= -99.99% or the present value is not positive.
func MacaulayDuration(r float64, leg []TimedFlow) (float64, bool) {
	if r <= rateFloor {
		return 0, false
	}
	var pv, weighted float64
	for _, f := range leg {
		disc := f.Amount / math.Pow(1+r, f.T)
		pv += disc
		weighted += f.T * disc
	}
	if !(pv > 0) {
		return 0, false
	}
	d := weighted / pv
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, false
	}
	return d, true
}
