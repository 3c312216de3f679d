// Package kalshi implements the Kalshi adapter. Kalshi quotes prices in
// integer cents; the adapter keeps only binary markets with both ask sides
// present and converts cents into fixed-point decimals.
package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/platform/apierror"
	"github.com/alanyoungcy/arbscan/internal/ratelimit"
	"github.com/alanyoungcy/arbscan/internal/retry"
)

// DefaultSiteURL is the public market page root used to build market links.
const DefaultSiteURL = "https://kalshi.com"

// Client is the Kalshi adapter.
type Client struct {
	baseURL    string
	siteURL    string
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	retryOpts  retry.Options
}

// NewClient creates a Kalshi adapter.
//
// baseURL is the API root, e.g. "https://api.elections.kalshi.com/trade-api/v2".
func NewClient(baseURL string, timeout time.Duration, limiter *ratelimit.Limiter) *Client {
	opts := retry.DefaultOptions()
	opts.ShouldRetry = apierror.Retryable
	opts.DelayFor = apierror.SuggestedDelay

	return &Client{
		baseURL:    baseURL,
		siteURL:    DefaultSiteURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		retryOpts:  opts,
	}
}

// Platform returns the Kalshi platform tag.
func (c *Client) Platform() domain.Platform { return domain.PlatformKalshi }

// FetchMarkets returns up to limit normalized binary markets. Markets that
// are not binary or are missing an ask side are dropped, not errors.
func (c *Client) FetchMarkets(ctx context.Context, limit int) ([]domain.StandardMarket, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("status", "open")
	path := "/markets?" + params.Encode()

	var markets []domain.StandardMarket
	err := retry.Do(ctx, c.retryOpts, func(ctx context.Context) error {
		body, err := c.doGet(ctx, path)
		if err != nil {
			return err
		}

		var resp struct {
			Markets []APIMarket `json:"markets"`
			Cursor  string      `json:"cursor"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return apierror.Validation(c.Platform(), body, err)
		}

		markets = markets[:0]
		for i := range resp.Markets {
			if !resp.Markets[i].Tradeable() {
				continue
			}
			sm, err := resp.Markets[i].ToStandardMarket(c.siteURL)
			if err != nil {
				return apierror.Validation(c.Platform(), body, err)
			}
			markets = append(markets, sm)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("kalshi: fetch markets: %w", err)
	}
	return markets, nil
}

// FetchMarketByID returns one market by ticker, or (nil, nil) on HTTP 404.
// A market that exists but is not a tradeable binary market also yields
// (nil, nil).
func (c *Client) FetchMarketByID(ctx context.Context, id string) (*domain.StandardMarket, error) {
	path := "/markets/" + url.PathEscape(id)

	var market *domain.StandardMarket
	err := retry.Do(ctx, c.retryOpts, func(ctx context.Context) error {
		body, err := c.doGet(ctx, path)
		if err != nil {
			return err
		}

		var resp struct {
			Market APIMarket `json:"market"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return apierror.Validation(c.Platform(), body, err)
		}
		if !resp.Market.Tradeable() {
			market = nil
			return nil
		}
		sm, err := resp.Market.ToStandardMarket(c.siteURL)
		if err != nil {
			return apierror.Validation(c.Platform(), body, err)
		}
		market = &sm
		return nil
	})
	if err != nil {
		if apierror.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("kalshi: fetch market %s: %w", id, err)
	}
	return market, nil
}

// doGet sends a rate-limited GET request and classifies failures.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	var body []byte
	err := c.limiter.Schedule(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return apierror.Classify(err, c.Platform())
		}
		defer resp.Body.Close()

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return apierror.Classify(err, c.Platform())
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return apierror.HTTPStatus(c.Platform(), resp.StatusCode, apierror.RetryAfterHeader(resp), body)
		}
		return nil
	})
	return body, err
}
