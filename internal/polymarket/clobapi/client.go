package clobapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/liyuxiao2/polytracker/internal/config"
	"github.com/liyuxiao2/polytracker/internal/metrics"
	"github.com/liyuxiao2/polytracker/internal/ratelimit"
)

// Client handles communication with the Polymarket CLOB API
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *ratelimit.Limiter
}

// NewClient creates a new CLOB API client
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:    cfg.ClobAPI.BaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    ratelimit.New(cfg.ClobAPI.PricesRPS),
	}
}

// GetMidpoint fetches the current midpoint price for an outcome token.
// Returns ok=false when the book is empty and no midpoint exists.
func (c *Client) GetMidpoint(ctx context.Context, tokenID string) (float64, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, false, fmt.Errorf("rate limit wait: %w", err)
	}

	u, err := url.Parse(c.baseURL + "/midpoint")
	if err != nil {
		return 0, false, fmt.Errorf("parse URL: %w", err)
	}
	q := u.Query()
	q.Set("token_id", tokenID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return 0, false, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.RecordAPIRequest("clob", "/midpoint", time.Since(start), err)
	if err != nil {
		return 0, false, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, false, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var payload midpointResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, false, fmt.Errorf("decode response: %w", err)
	}
	if payload.Mid == "" {
		return 0, false, nil
	}

	mid, err := decimal.NewFromString(payload.Mid)
	if err != nil {
		return 0, false, fmt.Errorf("parse midpoint %q: %w", payload.Mid, err)
	}

	f, _ := mid.Float64()
	return f, true, nil
}

// GetBook fetches the full order book for an outcome token
func (c *Client) GetBook(ctx context.Context, tokenID string) (*Book, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u, err := url.Parse(c.baseURL + "/book")
	if err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}
	q := u.Query()
	q.Set("token_id", tokenID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.RecordAPIRequest("clob", "/book", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var book Book
	if err := json.NewDecoder(resp.Body).Decode(&book); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &book, nil
}
