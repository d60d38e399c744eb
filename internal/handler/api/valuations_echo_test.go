package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinYield/internal/domain/models"
	domrepo "FinYield/internal/domain/repository"
	"FinYield/internal/repository"
	"FinYield/internal/service/ratelimit"
	"FinYield/internal/services/valuation"
	"FinYield/internal/usecase"
	"FinYield/pkg/cache"
	xlogger "FinYield/pkg/logger"
)

type stubResults struct {
	rows      []*models.ValuationResult
	kind      models.InstrumentType
	limit     int
	healthErr error
}

func (s *stubResults) StoreResults(context.Context, []*models.ValuationResult) error { return nil }
func (s *stubResults) StoreSkips(context.Context, []models.ValuationSkip) error      { return nil }
func (s *stubResults) Health(context.Context) error                                  { return s.healthErr }

func (s *stubResults) LatestResults(_ context.Context, kind models.InstrumentType, limit int) ([]*models.ValuationResult, error) {
	s.kind, s.limit = kind, limit
	return s.rows, nil
}

func (s *stubResults) LatestResult(_ context.Context, id string) (*models.ValuationResult, error) {
	for _, r := range s.rows {
		if r.InstrumentID == id {
			return r, nil
		}
	}
	return nil, domrepo.ErrNotFound
}

type noHolidays struct{}

func (noHolidays) LoadHolidays(context.Context) ([]time.Time, error) { return nil, nil }

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func setup(t *testing.T) (*echo.Echo, *stubResults, *repository.QuoteCache) {
	t.Helper()
	results := &stubResults{rows: []*models.ValuationResult{
		{InstrumentID: "TX26", Type: models.InflationLinked, YTM: 0.05},
		{InstrumentID: "S31L5", Type: models.PlainRate, YTM: 0.4},
	}}
	mc := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	t.Cleanup(func() { _ = mc.Close() })
	quotes := repository.NewQuoteCache(mc, "q:", time.Hour)

	h := NewValuationsHandler(xlogger.Nop(), results, quotes,
		usecase.NewAdhocValuer(noHolidays{}, valuation.NewValuer(), usecase.RunnerConfig{}))
	e := echo.New()
	h.RegisterRoutes(e)
	return e, results, quotes
}

func do(e *echo.Echo, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, r)
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestListValuations(t *testing.T) {
	e, results, _ := setup(t)

	rec, env := do(e, http.MethodGet, "/api/valuations?type=PlainRate&limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.PlainRate, results.kind)
	assert.Equal(t, 10, results.limit)
	assert.Contains(t, string(env.Data), `"total":2`)

	_, _ = do(e, http.MethodGet, "/api/valuations", "")
	assert.Equal(t, 500, results.limit)

	rec, _ = do(e, http.MethodGet, "/api/valuations?type=Equity", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetValuation(t *testing.T) {
	e, _, _ := setup(t)

	rec, env := do(e, http.MethodGet, "/api/valuations/TX26", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var res models.ValuationResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 0.05, res.YTM)

	rec, _ = do(e, http.MethodGet, "/api/valuations/NOPE", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestComputeValuation(t *testing.T) {
	e, _, _ := setup(t)

	rec, env := do(e, http.MethodPost, "/api/valuations/compute",
		`{"price":100,"valuation_date":"2024-05-03","flows":[{"date":"2025-05-03","amount":110}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res models.ValuationResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "adhoc", res.InstrumentID)
	assert.InDelta(t, 0.1, res.YTM, 1e-9)
	require.NotNil(t, res.TNA)
	assert.InDelta(t, 0.1, *res.TNA, 1e-12)
}

func TestComputeValuationErrors(t *testing.T) {
	e, _, _ := setup(t)

	rec, _ := do(e, http.MethodPost, "/api/valuations/compute", `{"price":0,"flows":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(e, http.MethodPost, "/api/valuations/compute",
		`{"price":100,"valuation_date":"2024-05-03","flows":[{"date":"2020-01-01","amount":110}]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_INSUFFICIENT_CASH_FLOWS")
}

func TestGetQuote(t *testing.T) {
	e, _, quotes := setup(t)
	require.NoError(t, quotes.SaveQuote(context.Background(), &models.Quote{Symbol: "AL30", Last: 80000}))

	rec, env := do(e, http.MethodGet, "/api/quotes/al30", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"last":80000`)

	rec, _ = do(e, http.MethodGet, "/api/quotes/GD30", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	e, results, _ := setup(t)
	rec, _ := do(e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	results.healthErr = errors.New("down")
	rec, _ = do(e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestComputeRateLimited(t *testing.T) {
	results := &stubResults{}
	mc := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	t.Cleanup(func() { _ = mc.Close() })
	h := NewValuationsHandler(xlogger.Nop(), results, repository.NewQuoteCache(mc, "q:", time.Hour),
		usecase.NewAdhocValuer(noHolidays{}, valuation.NewValuer(), usecase.RunnerConfig{})).
		WithComputeLimit(ratelimit.New(1, 0))
	e := echo.New()
	h.RegisterRoutes(e)

	body := `{"price":100,"valuation_date":"2024-05-03","flows":[{"date":"2025-05-03","amount":110}]}`
	rec, _ := do(e, http.MethodPost, "/api/valuations/compute", body)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(e, http.MethodPost, "/api/valuations/compute", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_RATE_LIMITED")
}
