package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FinYield/internal/domain/models"
	domrepo "FinYield/internal/domain/repository"
	pkgch "FinYield/pkg/clickhouse"
	applogger "FinYield/pkg/logger"
)

// Table names inside the configured database.
const (
	TableHolidays    = "holidays"
	TableFlows       = "instrument_flows"
	TableDetails     = "instrument_details"
	TableIndexSeries = "index_series"
	TableResults     = "valuation_results"
	TableSkips       = "valuation_skips"
)

// Schema returns the idempotent DDL for database.
func Schema(database string) []string {
	t := func(name string) string { return database + "." + name }
	return []string{
		"CREATE DATABASE IF NOT EXISTS " + database,
		"CREATE TABLE IF NOT EXISTS " + t(TableHolidays) + " (holiday_date Date) ENGINE=ReplacingMergeTree ORDER BY holiday_date",
		"CREATE TABLE IF NOT EXISTS " + t(TableFlows) + " (instrument_id String, payment_date Date, amount String, type_tag String) ENGINE=MergeTree ORDER BY (instrument_id, payment_date)",
		"CREATE TABLE IF NOT EXISTS " + t(TableDetails) + " (instrument_id String, index_at_issuance Float64) ENGINE=ReplacingMergeTree ORDER BY instrument_id",
		"CREATE TABLE IF NOT EXISTS " + t(TableIndexSeries) + " (series String, date Date, value Float64) ENGINE=ReplacingMergeTree ORDER BY (series, date)",
		"CREATE TABLE IF NOT EXISTS " + t(TableResults) + " (instrument_id String, run_id String, instrument_type LowCardinality(String), ytm Float64, duration_years Nullable(Float64), tna Nullable(Float64), price_used Float64, computed_at DateTime64(3, 'UTC')) ENGINE=ReplacingMergeTree(computed_at) ORDER BY instrument_id",
		"CREATE TABLE IF NOT EXISTS " + t(TableSkips) + " (run_id String, instrument_id String, reason LowCardinality(String), stage LowCardinality(String), detail String, computed_at DateTime64(3, 'UTC')) ENGINE=MergeTree ORDER BY (computed_at, instrument_id) TTL toDateTime(computed_at) + INTERVAL 30 DAY",
	}
}

// ClickHouseStore backs every valuation input and output table.
type ClickHouseStore struct {
	ch *pkgch.Client
	db *sql.DB
	l  *applogger.Logger
}

var (
	_ domrepo.FlowSource    = (*ClickHouseStore)(nil)
	_ domrepo.HolidaySource = (*ClickHouseStore)(nil)
	_ domrepo.IndexStore    = (*ClickHouseStore)(nil)
	_ domrepo.ResultStore   = (*ClickHouseStore)(nil)
)

func NewClickHouseStore(ch *pkgch.Client, l *applogger.Logger) *ClickHouseStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &ClickHouseStore{ch: ch, db: ch.DB(), l: l}
}

func (s *ClickHouseStore) LoadFlows(ctx context.Context) ([]models.FlowRecord, error) {
	q := fmt.Sprintf("SELECT instrument_id, payment_date, amount, type_tag FROM %s ORDER BY instrument_id, payment_date", s.ch.Table(TableFlows))
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		s.l.Error("clickhouse load_flows query error", applogger.Error(err))
		return nil, fmt.Errorf("load flows: %w", err)
	}
	defer rows.Close()

	out := make([]models.FlowRecord, 0, 1024)
	for rows.Next() {
		var r models.FlowRecord
		if err := rows.Scan(&r.InstrumentID, &r.PaymentDate, &r.Amount, &r.TypeTag); err != nil {
			return nil, fmt.Errorf("scan flow: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *ClickHouseStore) LoadIssuanceIndex(ctx context.Context) (map[string]float64, error) {
	q := fmt.Sprintf("SELECT instrument_id, index_at_issuance FROM %s FINAL", s.ch.Table(TableDetails))
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		s.l.Error("clickhouse load_details query error", applogger.Error(err))
		return nil, fmt.Errorf("load issuance index: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var (
			id string
			v  float64
		)
		if err := rows.Scan(&id, &v); err != nil {
			return nil, fmt.Errorf("scan detail: %w", err)
		}
		out[strings.TrimSpace(id)] = v
	}
	return out, rows.Err()
}

func (s *ClickHouseStore) LoadHolidays(ctx context.Context) ([]time.Time, error) {
	q := fmt.Sprintf("SELECT DISTINCT holiday_date FROM %s ORDER BY holiday_date", s.ch.Table(TableHolidays))
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		s.l.Error("clickhouse load_holidays query error", applogger.Error(err))
		return nil, fmt.Errorf("load holidays: %w", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan holiday: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *ClickHouseStore) LoadIndexSeries(ctx context.Context, series string, upTo time.Time) ([]models.IndexPoint, error) {
	q := fmt.Sprintf("SELECT series, date, value FROM %s FINAL WHERE series = ? AND date <= ? ORDER BY date", s.ch.Table(TableIndexSeries))
	rows, err := s.db.QueryContext(ctx, q, series, upTo)
	if err != nil {
		s.l.Error("clickhouse load_index query error", applogger.String("series", series), applogger.Error(err))
		return nil, fmt.Errorf("load index series %s: %w", series, err)
	}
	defer rows.Close()

	var out []models.IndexPoint
	for rows.Next() {
		var p models.IndexPoint
		if err := rows.Scan(&p.Series, &p.Date, &p.Value); err != nil {
			return nil, fmt.Errorf("scan index point: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpsertIndexPoints inserts points; ReplacingMergeTree keeps one row per
// (series, date).
func (s *ClickHouseStore) UpsertIndexPoints(ctx context.Context, points []models.IndexPoint) error {
	rows := make([][]any, 0, len(points))
	for _, p := range points {
		rows = append(rows, []any{p.Series, p.Date, p.Value})
	}
	q := fmt.Sprintf("INSERT INTO %s (series, date, value)", s.ch.Table(TableIndexSeries))
	if err := s.ch.InsertRows(ctx, q, rows); err != nil {
		return fmt.Errorf("upsert index points: %w", err)
	}
	return nil
}

func (s *ClickHouseStore) StoreResults(ctx context.Context, results []*models.ValuationResult) error {
	rows := make([][]any, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		rows = append(rows, []any{
			r.InstrumentID, r.RunID, string(r.Type), r.YTM,
			r.DurationYears, r.TNA, r.PriceUsed, r.ComputedAt,
		})
	}
	q := fmt.Sprintf("INSERT INTO %s (instrument_id, run_id, instrument_type, ytm, duration_years, tna, price_used, computed_at)", s.ch.Table(TableResults))
	if err := s.ch.InsertRows(ctx, q, rows); err != nil {
		return fmt.Errorf("store results: %w", err)
	}
	return nil
}

func (s *ClickHouseStore) StoreSkips(ctx context.Context, skips []models.ValuationSkip) error {
	rows := make([][]any, 0, len(skips))
	for _, k := range skips {
		rows = append(rows, []any{k.RunID, k.InstrumentID, string(k.Reason), k.Stage, k.Detail, k.ComputedAt})
	}
	q := fmt.Sprintf("INSERT INTO %s (run_id, instrument_id, reason, stage, detail, computed_at)", s.ch.Table(TableSkips))
	if err := s.ch.InsertRows(ctx, q, rows); err != nil {
		return fmt.Errorf("store skips: %w", err)
	}
	return nil
}

const resultColumns = "instrument_id, run_id, instrument_type, ytm, duration_years, tna, price_used, computed_at"

func (s *ClickHouseStore) LatestResults(ctx context.Context, kind models.InstrumentType, limit int) ([]*models.ValuationResult, error) {
	q := fmt.Sprintf("SELECT %s FROM %s FINAL", resultColumns, s.ch.Table(TableResults))
	var args []any
	if kind != "" {
		q += " WHERE instrument_type = ?"
		args = append(args, string(kind))
	}
	q += " ORDER BY instrument_id LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("latest results: %w", err)
	}
	defer rows.Close()

	var out []*models.ValuationResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *ClickHouseStore) LatestResult(ctx context.Context, instrumentID string) (*models.ValuationResult, error) {
	q := fmt.Sprintf("SELECT %s FROM %s FINAL WHERE instrument_id = ? LIMIT 1", resultColumns, s.ch.Table(TableResults))
	rows, err := s.db.QueryContext(ctx, q, instrumentID)
	if err != nil {
		return nil, fmt.Errorf("latest result %s: %w", instrumentID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, domrepo.ErrNotFound
	}
	return scanResult(rows)
}

func (s *ClickHouseStore) Health(ctx context.Context) error {
	return s.ch.Health(ctx)
}

func scanResult(rows *sql.Rows) (*models.ValuationResult, error) {
	var (
		r        models.ValuationResult
		kind     string
		dur, tna sql.NullFloat64
	)
	if err := rows.Scan(&r.InstrumentID, &r.RunID, &kind, &r.YTM, &dur, &tna, &r.PriceUsed, &r.ComputedAt); err != nil {
		return nil, fmt.Errorf("scan result: %w", err)
	}
	r.Type = models.InstrumentType(kind)
	if dur.Valid {
		v := dur.Float64
		r.DurationYears = &v
	}
	if tna.Valid {
		v := tna.Float64
		r.TNA = &v
	}
	return &r, nil
}
