// Package polymarket implements the Polymarket adapter against the Gamma
// API. Market discovery is an unauthenticated JSON GET; outcomes and prices
// arrive as JSON-encoded string arrays and are normalized into fixed-point
// decimals.
package polymarket

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
const DefaultSiteURL = "https://polymarket.com"

// Client is the Polymarket adapter. All requests go through the platform
// rate limiter and are retried on transient failures.
type Client struct {
	baseURL    string
	siteURL    string
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	retryOpts  retry.Options
}

// NewClient creates a Polymarket adapter.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
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

// Platform returns the Polymarket platform tag.
func (c *Client) Platform() domain.Platform { return domain.PlatformPolymarket }

// FetchMarkets returns up to limit normalized binary markets.
func (c *Client) FetchMarkets(ctx context.Context, limit int) ([]domain.StandardMarket, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("active", "true")
	params.Set("closed", "false")
	path := "/markets?" + params.Encode()

	var markets []domain.StandardMarket
	err := retry.Do(ctx, c.retryOpts, func(ctx context.Context) error {
		body, err := c.doGet(ctx, path)
		if err != nil {
			return err
		}

		var apiMarkets []APIMarket
		if err := json.Unmarshal(body, &apiMarkets); err != nil {
			return apierror.Validation(c.Platform(), body, err)
		}

		markets = markets[:0]
		for i := range apiMarkets {
			// Multi-outcome markets are skipped; a malformed payload still fails.
			var names []string
			if json.Unmarshal([]byte(apiMarkets[i].Outcomes), &names) == nil && len(names) != 2 {
				continue
			}
			sm, err := apiMarkets[i].ToStandardMarket(c.siteURL)
			if err != nil {
				return apierror.Validation(c.Platform(), body, err)
			}
			markets = append(markets, sm)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("polymarket: fetch markets: %w", err)
	}
	return markets, nil
}

// FetchMarketByID returns one market by its Gamma id, or (nil, nil) when
// the API responds 404.
func (c *Client) FetchMarketByID(ctx context.Context, id string) (*domain.StandardMarket, error) {
	path := "/markets/" + url.PathEscape(id)

	var market *domain.StandardMarket
	err := retry.Do(ctx, c.retryOpts, func(ctx context.Context) error {
		body, err := c.doGet(ctx, path)
		if err != nil {
			return err
		}

		var apiMarket APIMarket
		if err := json.Unmarshal(body, &apiMarket); err != nil {
			return apierror.Validation(c.Platform(), body, err)
		}
		sm, err := apiMarket.ToStandardMarket(c.siteURL)
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
		return nil, fmt.Errorf("polymarket: fetch market %s: %w", id, err)
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
