package domain

import "context"

// Adapter fetches and normalizes markets from one platform. Implementations
// rate-limit, retry, and schema-validate internally; every returned market
// satisfies StandardMarket.Validate.
type Adapter interface {
	// Platform returns the platform tag this adapter serves.
	Platform() Platform
	// FetchMarkets returns up to limit normalized binary markets.
	FetchMarkets(ctx context.Context, limit int) ([]StandardMarket, error)
	// FetchMarketByID returns one market, or (nil, nil) when the platform
	// reports HTTP 404 for the id.
	FetchMarketByID(ctx context.Context, id string) (*StandardMarket, error)
}
