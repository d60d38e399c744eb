package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Anchor selects the intraday instant of the valuation day.
type Anchor string

const (
	// AnchorMidnight values at 00:00:00 local time of T+1.
	AnchorMidnight Anchor = "midnight"
	// AnchorEndOfDay values at 23:59:59 local time of T+1.
	AnchorEndOfDay Anchor = "end_of_day"
)

// DefaultLookbackDays is the business-day distance of the index lookup date.
const DefaultLookbackDays = 10

// ParseAnchor normalizes a configured anchor name.
func ParseAnchor(s string) (Anchor, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "midnight", "start_of_day":
		return AnchorMidnight, nil
	case "end_of_day", "eod":
		return AnchorEndOfDay, nil
	default:
		return "", fmt.Errorf("unknown valuation anchor %q", s)
	}
}

// Resolution is the set of dates used by one valuation run.
type Resolution struct {
	// Cutoff filters future flows: only payments strictly after it count.
	Cutoff time.Time
	// Valuation is the instant every year fraction is measured from (UTC).
	Valuation time.Time
	// T1 is the next local business day after today, at local midnight.
	T1 time.Time
	// Lookback is T1 minus the configured number of business days.
	Lookback time.Time
}

// Resolver derives the T+1 valuation instant and the index lookback date.
type Resolver struct {
	cal      *Calendar
	loc      *time.Location
	anchor   Anchor
	lookback int
}

// ResolverOption configures Resolver.
type ResolverOption func(*Resolver)

// WithLocation sets the local market timezone.
func WithLocation(loc *time.Location) ResolverOption {
	return func(r *Resolver) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// WithAnchor sets the valuation-day anchor.
func WithAnchor(a Anchor) ResolverOption {
	return func(r *Resolver) {
		if a != "" {
			r.anchor = a
		}
	}
}

// WithLookbackDays sets the index lookback in business days.
func WithLookbackDays(n int) ResolverOption {
	return func(r *Resolver) {
		if n >= 0 {
			r.lookback = n
		}
	}
}

// NewResolver creates a Resolver; defaults are UTC, midnight and 10 days.
func NewResolver(cal *Calendar, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		cal:      cal,
		loc:      time.UTC,
		anchor:   AnchorMidnight,
		lookback: DefaultLookbackDays,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve computes the run dates for the given current instant.
func (r *Resolver) Resolve(now time.Time) Resolution {
	t1 := r.cal.NextBusinessDay(Day(now.In(r.loc)))
	return r.resolution(t1)
}

// ResolveDate computes the run dates for an explicit valuation date. Only
// the calendar date of d is used; it need not be a business day.
func (r *Resolver) ResolveDate(d time.Time) Resolution {
	y, m, dd := d.Date()
	return r.resolution(time.Date(y, m, dd, 0, 0, 0, 0, r.loc))
}

func (r *Resolver) resolution(t1 time.Time) Resolution {
	valuation := t1
	if r.anchor == AnchorEndOfDay {
		y, m, d := t1.Date()
		valuation = time.Date(y, m, d, 23, 59, 59, 0, r.loc)
	}
	valuation = valuation.UTC()

	return Resolution{
		Cutoff:    valuation,
		Valuation: valuation,
		T1:        t1,
		Lookback:  r.cal.OffsetBusinessDays(t1, -r.lookback),
	}
}

// LoadLocation loads an IANA zone, falling back to UTC when unavailable.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
