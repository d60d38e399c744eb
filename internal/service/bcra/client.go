// Package bcra reads monetary statistics series from the central bank API.
package bcra

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"FinYield/internal/domain/models"
	drepo "FinYield/internal/domain/repository"
	xhttp "FinYield/pkg/http"
)

// ErrUnexpectedPayload is returned when the response has no detail rows.
var ErrUnexpectedPayload = errors.New("bcra: unexpected series payload")

const pageSize = "3000"

// Client implements IndexFeed against /monetarias/{id}.
type Client struct {
	baseURL string
	series  string
	limit   int
	http    *xhttp.Client
}

type Config struct {
	BaseURL            string
	Series             string
	Limit              int
	Timeout            time.Duration
	InsecureSkipVerify bool
}

func New(cfg Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		series:  cfg.Series,
		limit:   cfg.Limit,
		http: xhttp.NewClient(
			xhttp.WithTimeout(cfg.Timeout),
			xhttp.WithInsecureSkipVerify(cfg.InsecureSkipVerify),
		),
	}
}

var _ drepo.IndexFeed = (*Client)(nil)

type seriesResponse struct {
	Results []struct {
		Detalle []struct {
			Fecha string   `json:"fecha"`
			Valor *float64 `json:"valor"`
		} `json:"detalle"`
	} `json:"results"`
}

// FetchSeries returns the most recent observations of the series, oldest
// first, capped at the configured limit. Rows with unparseable dates or
// missing values are skipped.
func (c *Client) FetchSeries(ctx context.Context, seriesID int) ([]models.IndexPoint, error) {
	url := fmt.Sprintf("%s/monetarias/%d", c.baseURL, seriesID)
	var resp seriesResponse
	err := c.http.GetJSON(ctx, url, map[string][]string{"limit": {pageSize}, "offset": {"0"}}, &resp)
	if err != nil {
		return nil, fmt.Errorf("fetch series %d: %w", seriesID, err)
	}
	if len(resp.Results) == 0 || resp.Results[0].Detalle == nil {
		return nil, ErrUnexpectedPayload
	}

	points := make([]models.IndexPoint, 0, len(resp.Results[0].Detalle))
	for _, row := range resp.Results[0].Detalle {
		if row.Valor == nil || len(row.Fecha) < 10 {
			continue
		}
		d, err := time.ParseInLocation("2006-01-02", row.Fecha[:10], time.UTC)
		if err != nil {
			continue
		}
		points = append(points, models.IndexPoint{Series: c.series, Date: d, Value: *row.Valor})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	if c.limit > 0 && len(points) > c.limit {
		points = points[len(points)-c.limit:]
	}
	return points, nil
}
