// Package pricing provides the market-price inputs of the engine: a spot
// price HTTP client, a live WebSocket ticker feed, and a date-keyed
// historical price table. All of it runs before or around the engine; the
// engine itself only ever sees plain numbers and lookup functions.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultTimeout    = 15 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1 * time.Second
	DefaultMaxDelay   = 10 * time.Second
)

// Quote is one spot-price observation.
type Quote struct {
	Currency  string
	Price     float64
	FetchedAt time.Time
}

// SpotClient fetches the current BTC spot price from a Coinbase-style
// endpoint: GET {base}/v2/prices/BTC-{CUR}/spot returning
// {"data":{"base":"BTC","currency":"USD","amount":"43250.12"}}.
type SpotClient struct {
	baseURL    string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration
}

// SpotOption configures SpotClient.
type SpotOption func(*SpotClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) SpotOption {
	return func(c *SpotClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) SpotOption {
	return func(c *SpotClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) SpotOption {
	return func(c *SpotClient) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) SpotOption {
	return func(c *SpotClient) {
		c.client = client
	}
}

// NewSpotClient creates a spot-price client.
func NewSpotClient(baseURL string, opts ...SpotOption) *SpotClient {
	c := &SpotClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		maxDelay:   DefaultMaxDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// spotResponse is the raw wire shape.
type spotResponse struct {
	Data struct {
		Base     string `json:"base"`
		Currency string `json:"currency"`
		Amount   string `json:"amount"`
	} `json:"data"`
}

// Current fetches the spot price of BTC in the given fiat currency, with
// retries and exponential backoff on transport and 5xx/429 failures.
func (c *SpotClient) Current(ctx context.Context, currency string) (*Quote, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "USD"
	}
	url := fmt.Sprintf("%s/v2/prices/BTC-%s/spot", c.baseURL, currency)

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		quote, retryable, err := c.fetch(ctx, url, currency)
		if err == nil {
			return quote, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// fetch performs one request. The second return value reports whether the
// failure is worth retrying.
func (c *SpotClient) fetch(ctx context.Context, url, currency string) (*Quote, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("http request: %w", err)
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, true, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, fmt.Errorf("rate limited (429)")
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("server error %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var parsed spotResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, false, fmt.Errorf("unmarshal response: %w", err)
	}

	price, err := strconv.ParseFloat(parsed.Data.Amount, 64)
	if err != nil {
		return nil, false, fmt.Errorf("parse price %q: %w", parsed.Data.Amount, err)
	}
	if price <= 0 {
		return nil, false, fmt.Errorf("non-positive price %v", price)
	}

	quoted := parsed.Data.Currency
	if quoted == "" {
		quoted = currency
	}

	return &Quote{
		Currency:  quoted,
		Price:     price,
		FetchedAt: time.Now().UTC(),
	}, false, nil
}
