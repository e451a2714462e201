// Package finnhub fetches last-trade quotes from the Finnhub REST API.
package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"

	"github.com/hyowon/folio/pkg/config"
	"github.com/hyowon/folio/pkg/httputil"
	"github.com/hyowon/folio/pkg/logger"
)

// Client calls the Finnhub quote endpoint. Quotes are best-effort inputs:
// retries are disabled, a failed symbol simply stays unpriced.
type Client struct {
	http    *httputil.Client
	baseURL string
	apiKey  string
	logger  *logger.Logger
}

// New creates a Finnhub client from config. The shared rate limiter keeps
// the free-tier request budget regardless of how many symbols a refresh
// fans out to.
func New(cfg *config.Config, log *logger.Logger) *Client {
	httpClient := httputil.NewWithTimeout(log, cfg.Finnhub.Timeout).
		DisableRetry().
		WithRateLimiter(rate.NewLimiter(rate.Limit(cfg.PriceRate), 1))

	return &Client{
		http:    httpClient,
		baseURL: cfg.Finnhub.BaseURL,
		apiKey:  cfg.Finnhub.APIKey,
		logger:  log,
	}
}

// quoteResponse is the subset of Finnhub's /quote payload we read. "c" is
// the current (last) price; Finnhub reports 0 for unknown symbols.
type quoteResponse struct {
	Current float64 `json:"c"`
}

// Quote returns the last price for one symbol
func (c *Client) Quote(ctx context.Context, symbol string) (float64, error) {
	endpoint := fmt.Sprintf("%s/quote?symbol=%s&token=%s",
		c.baseURL, url.QueryEscape(symbol), url.QueryEscape(c.apiKey))

	resp, err := c.http.Get(ctx, endpoint)
	if err != nil {
		return 0, fmt.Errorf("quote %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("quote %s: status %d", symbol, resp.StatusCode)
	}

	var quote quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return 0, fmt.Errorf("quote %s: decode: %w", symbol, err)
	}
	if quote.Current == 0 {
		return 0, fmt.Errorf("quote %s: no price available", symbol)
	}
	return quote.Current, nil
}
