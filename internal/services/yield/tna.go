package yield

import (
	"time"

	"FinYield/internal/domain/models"
)

// TNA returns the simple annual rate ((payoff/price) - 1) / t of a bullet
// instrument. It is defined only when exactly one non-zero flow is paid
// after valuation, that payoff and price are positive, and t > 0.
func TNA(price float64, flows []models.CashFlow, valuation time.Time) (float64, bool) {
	if !(price > 0) {
		return 0, false
	}
	var (
		payoff models.CashFlow
		count  int
	)
	for _, f := range flows {
		if f.Amount == 0 || !f.Date.After(valuation) {
			continue
		}
		count++
		payoff = f
	}
	if count != 1 || payoff.Amount <= 0 {
		return 0, false
	}
	t := YearFraction(valuation, payoff.Date)
	if t <= 0 {
		return 0, false
	}
	return (payoff.Amount/price - 1) / t, true
}
