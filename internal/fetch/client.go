// Package fetch refreshes the bar cache from the upstream market-data
// service. The service is an opaque batch source: one request per
// instrument returns its daily front-adjusted OHLCV history as JSON.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/leiwong/rpscan/internal/cache"
	"github.com/leiwong/rpscan/pkg/httputil"
	"github.com/leiwong/rpscan/pkg/logger"
)

// Client calls the upstream daily-bar endpoint.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a market-data client.
func NewClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("module", "fetch"),
		baseURL:    baseURL,
	}
}

// barResponse is the upstream envelope. Bar fields arrive as strings and
// are stored verbatim; numeric coercion is the cache loader's job.
type barResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"msg"`
	Data    []cache.Record `json:"data"`
}

// FetchDailyBars fetches the daily bar history for one exchange-prefixed
// code (e.g. "sh.600519") over a date range.
func (c *Client) FetchDailyBars(ctx context.Context, code string, from, to time.Time) ([]cache.Record, error) {
	params := url.Values{}
	params.Set("code", code)
	params.Set("start", from.Format("2006-01-02"))
	params.Set("end", to.Format("2006-01-02"))
	params.Set("freq", "d")
	params.Set("adjust", "front")

	fullURL := fmt.Sprintf("%s/api/v1/kline/daily?%s", c.baseURL, params.Encode())

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("fetch bars for %s: %w", code, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch bars for %s: unexpected status code %d", code, resp.StatusCode)
	}

	var envelope barResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode bars for %s: %w", code, err)
	}
	if envelope.Code != "" && envelope.Code != "0" {
		return nil, fmt.Errorf("upstream error for %s: %s", code, envelope.Message)
	}

	c.logger.WithFields(map[string]interface{}{
		"code":  code,
		"count": len(envelope.Data),
	}).Debug("Fetched daily bars")

	return envelope.Data, nil
}
