package cashflow

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"FinYield/internal/domain/models"
)

// IssueKind classifies a rejected flow record.
type IssueKind string

const (
	IssueInvalidAmount     IssueKind = "invalid_amount"
	IssueMissingInstrument IssueKind = "missing_instrument_id"
	IssueMissingDate       IssueKind = "missing_payment_date"
)

// RecordIssue describes one flow record that failed validation.
type RecordIssue struct {
	Index        int
	InstrumentID string
	Kind         IssueKind
	Value        string
	Err          error
}

func (i RecordIssue) Error() string {
	if i.Err != nil {
		return fmt.Sprintf("record %d (%s): %s: %v", i.Index, i.InstrumentID, i.Kind, i.Err)
	}
	return fmt.Sprintf("record %d (%s): %s", i.Index, i.InstrumentID, i.Kind)
}

func (i RecordIssue) Unwrap() error { return i.Err }

// Result is the output of Aggregate. Schedules are ordered by instrument id.
type Result struct {
	Schedules []models.Schedule
	Issues    []RecordIssue
}

// inflationTags are normalized tags (lowercase letters only) of
// index-linked instruments. Matching is exact: "Cero" and "Dollar Linked"
// stay plain rate.
var inflationTags = map[string]struct{}{
	"cer":             {},
	"uva":             {},
	"inflacion":       {},
	"inflación":       {},
	"inflation":       {},
	"inflationlinked": {},
}

// ClassifyTag maps a free-text type tag to an instrument type.
func ClassifyTag(tag string) models.InstrumentType {
	if _, ok := inflationTags[normalizeTag(tag)]; ok {
		return models.InflationLinked
	}
	return models.PlainRate
}

// normalizeTag lowercases tag and drops everything but letters, so that
// "Inflation-linked" and "inflation linked" compare equal.
func normalizeTag(tag string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, tag)
}

// PriceSourceForTag returns the quote field used for instruments with tag.
// Corporate bonds ("ON", "Obligación Negociable") are valued off USD prices.
func PriceSourceForTag(tag string) models.PriceSource {
	t := strings.ToLower(strings.TrimSpace(tag))
	if t == "on" || strings.HasPrefix(t, "obligac") {
		return models.PriceSourceUSD
	}
	return models.PriceSourceLast
}

type instrumentAcc struct {
	kind   models.InstrumentType
	source models.PriceSource
	byDate map[time.Time]decimal.Decimal
}

// Aggregate validates raw flow records and builds per-instrument schedules
// of flows paid strictly after cutoff. Same-date amounts are summed, zero
// sums are dropped, and instruments left without flows are omitted.
//
// Instrument type and price source are resolved over all valid records of an
// instrument, including past ones; any inflation-linked tag wins.
func Aggregate(records []models.FlowRecord, cutoff time.Time) Result {
	var res Result
	accs := make(map[string]*instrumentAcc)

	for i, rec := range records {
		id := strings.TrimSpace(rec.InstrumentID)
		if id == "" {
			res.Issues = append(res.Issues, RecordIssue{Index: i, Kind: IssueMissingInstrument, Value: rec.Amount})
			continue
		}
		if rec.PaymentDate.IsZero() {
			res.Issues = append(res.Issues, RecordIssue{Index: i, InstrumentID: id, Kind: IssueMissingDate})
			continue
		}
		amount, err := ParseAmount(rec.Amount)
		if err != nil {
			res.Issues = append(res.Issues, RecordIssue{Index: i, InstrumentID: id, Kind: IssueInvalidAmount, Value: rec.Amount, Err: err})
			continue
		}

		acc, ok := accs[id]
		if !ok {
			acc = &instrumentAcc{
				kind:   models.PlainRate,
				source: models.PriceSourceLast,
				byDate: make(map[time.Time]decimal.Decimal),
			}
			accs[id] = acc
		}
		if ClassifyTag(rec.TypeTag) == models.InflationLinked {
			acc.kind = models.InflationLinked
		}
		if PriceSourceForTag(rec.TypeTag) == models.PriceSourceUSD {
			acc.source = models.PriceSourceUSD
		}

		day := NormalizeDate(rec.PaymentDate)
		if !day.After(cutoff) {
			continue
		}
		acc.byDate[day] = acc.byDate[day].Add(amount)
	}

	ids := make([]string, 0, len(accs))
	for id := range accs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		acc := accs[id]
		flows := make([]models.CashFlow, 0, len(acc.byDate))
		for day, sum := range acc.byDate {
			if sum.IsZero() {
				continue
			}
			flows = append(flows, models.CashFlow{Date: day, Amount: sum.InexactFloat64()})
		}
		if len(flows) == 0 {
			continue
		}
		sort.Slice(flows, func(a, b int) bool { return flows[a].Date.Before(flows[b].Date) })
		res.Schedules = append(res.Schedules, models.Schedule{
			InstrumentID: id,
			Type:         acc.kind,
			PriceSource:  acc.source,
			Flows:        flows,
		})
	}
	return res
}

// NormalizeDate maps t to UTC midnight of its calendar date.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
