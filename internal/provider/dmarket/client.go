// Package dmarket implements the MarketDataProvider capability against the
// DMarket exchange REST API.
package dmarket

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/skinwatch/skinarb/internal/domain"
)

// DefaultBaseURL is the production DMarket API root.
const DefaultBaseURL = "https://api.dmarket.com"

// ClientConfig holds connection and throttling parameters for the DMarket
// REST client.
type ClientConfig struct {
	BaseURL   string
	APIKey    string
	APISecret string

	// Limiter, when set, throttles outbound requests under the given budget.
	Limiter          domain.RateLimiter
	RequestsPerMin   int
	RateLimitKeyName string
}

// Client is the signed REST client for api.dmarket.com.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client

	limiter  domain.RateLimiter
	rlKey    string
	rlBudget int
}

// NewClient creates a DMarket REST client. Requests are signed only when an
// API secret is configured; the public market endpoints also accept unsigned
// requests.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	rlKey := cfg.RateLimitKeyName
	if rlKey == "" {
		rlKey = "dmarket"
	}
	return &Client{
		baseURL:   baseURL,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter:  cfg.Limiter,
		rlKey:    rlKey,
		rlBudget: cfg.RequestsPerMin,
	}
}

// get performs a signed GET request against path with the given query
// parameters and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if c.limiter != nil && c.rlBudget > 0 {
		if err := c.limiter.Wait(ctx, c.rlKey, c.rlBudget, time.Minute); err != nil {
			return fmt.Errorf("dmarket: rate limit wait: %w", err)
		}
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("dmarket: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req, http.MethodGet, path, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("dmarket: %s: %w: %w", path, domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("dmarket: %s: %w", path, domain.ErrRateLimited)
	case resp.StatusCode >= 500:
		return fmt.Errorf("dmarket: %s: status %d: %w", path, resp.StatusCode, domain.ErrProviderUnavailable)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("dmarket: %s: status %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("dmarket: %s: decode response: %w", path, err)
	}
	return nil
}

// authorize attaches the DMarket auth headers. The signature is an
// HMAC-SHA256 over METHOD + PATH + BODY + TIMESTAMP using the API secret,
// sent alongside the timestamp:
//
//	X-Api-Key:      <api key>
//	X-Sign-Date:    <unix seconds>
//	X-Request-Sign: <hex hmac>
func (c *Client) authorize(req *http.Request, method, path, body string) {
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
	if c.apiSecret == "" {
		return
	}

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(method + path + body + ts))

	req.Header.Set("X-Sign-Date", ts)
	req.Header.Set("X-Request-Sign", hex.EncodeToString(mac.Sum(nil)))
}
