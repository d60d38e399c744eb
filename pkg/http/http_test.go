package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleFlow struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

type sampleRequest struct {
	Name  string       `json:"name" default:"adhoc"`
	Price float64      `json:"price" validate:"gt=0"`
	Flows []sampleFlow `json:"flows" validate:"required,min=1,dive"`
}

func bind(t *testing.T, body string, req interface{}) []ValidationError {
	t.Helper()
	e := echo.New()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return ReadAndValidateRequest(e.NewContext(r, httptest.NewRecorder()), req)
}

func TestReadAndValidateRequestDefaults(t *testing.T) {
	var req sampleRequest
	errs := bind(t, `{"price":95,"flows":[{"date":"2025-01-02"}]}`, &req)
	assert.Empty(t, errs)
	assert.Equal(t, "adhoc", req.Name)
}

func TestReadAndValidateRequestFieldPaths(t *testing.T) {
	var req sampleRequest
	errs := bind(t, `{"price":0,"flows":[{"date":"02/01/2025"}]}`, &req)
	require.Len(t, errs, 2)
	fields := []string{errs[0].Field, errs[1].Field}
	assert.Contains(t, fields, "price")
	assert.Contains(t, fields, "flows[0].date")
}

func TestReadAndValidateRequestBadJSON(t *testing.T) {
	var req sampleRequest
	errs := bind(t, `{"price":`, &req)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_BIND", errs[0].Code)
}

func TestAppErrorResponse(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	err := NotFoundErrorf("valuation %s not found", "TX26").WithError(errors.New("missing"))
	require.NoError(t, AppErrorResponse(c, err))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusNotFound, body.Status)
}

func TestClientGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "3" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(WithTimeout(0), WithHeader("User-Agent", "finyield"))
	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, c.GetJSON(context.Background(), srv.URL, map[string][]string{"limit": {"3"}}, &out))
	assert.True(t, out.OK)

	err := c.GetJSON(context.Background(), srv.URL, nil, &out)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
}

type pingHandler struct{}

func (pingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ping", func(c echo.Context) error { return SuccessResponse(c, "pong") })
}

func TestServerRoutesAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewServer(nil, []Handler{pingHandler{}}, WithMetrics("/metrics", reg, reg))

	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `finyield_http_requests_total{class="2xx",method="GET",route="/ping"} 1`)
}
