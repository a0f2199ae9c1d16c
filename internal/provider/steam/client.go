// Package steam implements the MarketDataProvider capability against the
// public Steam Community Market endpoints.
package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/skinwatch/skinarb/internal/domain"
)

// DefaultBaseURL is the Steam Community Market root.
const DefaultBaseURL = "https://steamcommunity.com"

// ClientConfig holds connection and throttling parameters for the Steam
// market client. Steam enforces aggressive per-IP throttling, so a limiter
// is strongly recommended.
type ClientConfig struct {
	BaseURL        string
	Limiter        domain.RateLimiter
	RequestsPerMin int
}

// Client fetches public Steam Community Market data. No authentication is
// required.
type Client struct {
	baseURL    string
	httpClient *http.Client

	limiter  domain.RateLimiter
	rlBudget int
}

// NewClient creates a Steam Community Market client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter:  cfg.Limiter,
		rlBudget: cfg.RequestsPerMin,
	}
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if c.limiter != nil && c.rlBudget > 0 {
		if err := c.limiter.Wait(ctx, "steam", c.rlBudget, time.Minute); err != nil {
			return fmt.Errorf("steam: rate limit wait: %w", err)
		}
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("steam: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("steam: %s: %w: %w", path, domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("steam: %s: %w", path, domain.ErrRateLimited)
	case resp.StatusCode >= 500:
		return fmt.Errorf("steam: %s: status %d: %w", path, resp.StatusCode, domain.ErrProviderUnavailable)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("steam: %s: status %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("steam: %s: decode response: %w", path, err)
	}
	return nil
}

// parseMoney converts Steam display prices such as "$1,250.00" or "45.50 USD"
// to a float amount.
func parseMoney(raw string) (float64, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.':
			return r
		default:
			return -1
		}
	}, raw)
	if cleaned == "" {
		return 0, fmt.Errorf("no numeric value in %q", raw)
	}
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", raw, err)
	}
	return amount, nil
}
