package yield

import (
	"errors"
	"math"
	"sort"

	"FinYield/internal/domain/models"
)

var (
	// ErrNoRoot is returned when no phase of the solver finds a root.
	ErrNoRoot = errors.New("xirr: no convergent root")
	// ErrInsufficientFlows is returned for fewer than two non-zero flows.
	ErrInsufficientFlows = errors.New("xirr: at least two non-zero cash flows required")
)

const (
	defaultGuess = 0.10

	newtonMaxIter  = 80
	newtonMinSlope = 1e-18
	newtonStepTol  = 1e-12

	// rateFloor keeps 1+r strictly positive.
	rateFloor = -0.9999

	expandLower     = 0.0
	expandUpper     = 10.0
	expandCeiling   = 200.0
	expandMaxDouble = 12

	bisectMaxIter = 200
	bisectFTol    = 1e-10
	bisectXTol    = 1e-12
)

var probeGrid = []float64{-0.9, -0.5, -0.1, 0.0, 0.02, 0.05, 0.08, 0.10, 0.15, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0}

type solverConfig struct {
	guess float64
}

// Option configures XIRR.
type Option func(*solverConfig)

// WithGuess sets the Newton starting rate.
func WithGuess(g float64) Option {
	return func(c *solverConfig) {
		if !math.IsNaN(g) && !math.IsInf(g, 0) && g > rateFloor {
			c.guess = g
		}
	}
}

// XIRR solves for the annual rate r zeroing sum(cf_i / (1+r)^t_i), where t_i
// is the ACT/365 year fraction from the earliest flow date.
//
// Newton-Raphson runs first; if it fails to converge the root is bracketed
// from a fixed probe grid, or by doubling an upper bound from [0, 10], and
// then bisected.
func XIRR(flows []models.CashFlow, opts ...Option) (float64, error) {
	cfg := solverConfig{guess: defaultGuess}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := newStream(flows)
	if len(s.amounts) < 2 {
		return 0, ErrInsufficientFlows
	}

	if r, ok := s.newton(cfg.guess); ok {
		return r, nil
	}

	a, b, ok := s.bracket()
	if !ok {
		return 0, ErrNoRoot
	}
	return s.bisect(a, b), nil
}

// stream is a date-sorted flow list reduced to year fractions.
type stream struct {
	times   []float64
	amounts []float64
}

func newStream(flows []models.CashFlow) stream {
	nz := make([]models.CashFlow, 0, len(flows))
	for _, f := range flows {
		if f.Amount != 0 {
			nz = append(nz, f)
		}
	}
	sort.SliceStable(nz, func(i, j int) bool { return nz[i].Date.Before(nz[j].Date) })

	s := stream{
		times:   make([]float64, len(nz)),
		amounts: make([]float64, len(nz)),
	}
	for i, f := range nz {
		s.times[i] = YearFraction(nz[0].Date, f.Date)
		s.amounts[i] = f.Amount
	}
	return s
}

// npv returns f(r) and f'(r). Both are +Inf outside the domain 1+r > 0.
func (s stream) npv(r float64) (f, df float64) {
	one := 1 + r
	if one <= 0 {
		return math.Inf(1), math.Inf(1)
	}
	for i, t := range s.times {
		cf := s.amounts[i]
		f += cf / math.Pow(one, t)
		df += cf * -t * math.Pow(one, -t-1)
	}
	return f, df
}

func (s stream) value(r float64) float64 {
	f, _ := s.npv(r)
	return f
}

func (s stream) newton(guess float64) (float64, bool) {
	r := guess
	for i := 0; i < newtonMaxIter; i++ {
		f, df := s.npv(r)
		if !(math.Abs(df) > newtonMinSlope) {
			return 0, false
		}
		next := r - f/df
		if math.IsNaN(next) || math.IsInf(next, 0) || next <= rateFloor {
			return 0, false
		}
		if math.Abs(next-r) < newtonStepTol {
			return next, true
		}
		r = next
	}
	return 0, false
}

func (s stream) bracket() (float64, float64, bool) {
	prevX := probeGrid[0]
	prevY := s.value(prevX)
	for _, x := range probeGrid[1:] {
		y := s.value(x)
		if !math.IsNaN(prevY) && !math.IsNaN(y) && prevY*y <= 0 {
			return prevX, x, true
		}
		prevX, prevY = x, y
	}

	a, b := expandLower, expandUpper
	fa, fb := s.value(a), s.value(b)
	for n := 0; fa*fb > 0 && b < expandCeiling && n < expandMaxDouble; n++ {
		b *= 2
		fb = s.value(b)
	}
	if !(fa*fb <= 0) {
		return 0, 0, false
	}
	return a, b, true
}

func (s stream) bisect(lo, hi float64) float64 {
	flo := s.value(lo)
	var m float64
	for i := 0; i < bisectMaxIter; i++ {
		m = 0.5 * (lo + hi)
		fm := s.value(m)
		if math.Abs(fm) < bisectFTol || hi-lo < bisectXTol {
			return m
		}
		if flo*fm <= 0 {
			hi = m
		} else {
			lo, flo = m, fm
		}
	}
	return m
}
