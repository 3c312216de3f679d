// Package manifold implements the Manifold adapter against the v0 API.
// Manifold quotes a single probability per binary market; the adapter derives
// Yes/No prices from it and filters out resolved and non-binary markets.
// Because filtering happens client-side, listing requests over-fetch at twice
// the requested limit and trim after the filter.
package manifold

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

// Client is the Manifold adapter.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	retryOpts  retry.Options
}

// NewClient creates a Manifold adapter.
//
// baseURL is the API root, e.g. "https://api.manifold.markets/v0".
func NewClient(baseURL string, timeout time.Duration, limiter *ratelimit.Limiter) *Client {
	opts := retry.DefaultOptions()
	opts.ShouldRetry = apierror.Retryable
	opts.DelayFor = apierror.SuggestedDelay

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		retryOpts:  opts,
	}
}

// Platform returns the Manifold platform tag.
func (c *Client) Platform() domain.Platform { return domain.PlatformManifold }

// FetchMarkets returns up to limit normalized binary markets. The API has no
// server-side binary filter, so the request asks for 2x limit and trims the
// filtered result.
func (c *Client) FetchMarkets(ctx context.Context, limit int) ([]domain.StandardMarket, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit*2))
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
			if !apiMarkets[i].Tradeable() {
				continue
			}
			sm, err := apiMarkets[i].ToStandardMarket()
			if err != nil {
				return apierror.Validation(c.Platform(), body, err)
			}
			markets = append(markets, sm)
			if len(markets) == limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("manifold: fetch markets: %w", err)
	}
	return markets, nil
}

// FetchMarketByID returns one market by id, or (nil, nil) on HTTP 404. A
// market that exists but is resolved or not binary also yields (nil, nil).
func (c *Client) FetchMarketByID(ctx context.Context, id string) (*domain.StandardMarket, error) {
	path := "/market/" + url.PathEscape(id)

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
		if !apiMarket.Tradeable() {
			market = nil
			return nil
		}
		sm, err := apiMarket.ToStandardMarket()
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
		return nil, fmt.Errorf("manifold: fetch market %s: %w", id, err)
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
