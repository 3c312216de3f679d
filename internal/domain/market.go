// Package domain defines the core types shared by every layer of the
// scanner: normalized markets, cross-platform matches, arbitrage
// opportunities, scan jobs, and the interfaces implemented by the cache,
// queue, and platform adapters.
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Platform identifies one of the supported prediction-market platforms.
type Platform string

const (
	PlatformPolymarket Platform = "PM"
	PlatformKalshi     Platform = "KAL"
	PlatformManifold   Platform = "MAN"
)

// Platforms lists every supported platform tag.
var Platforms = []Platform{PlatformPolymarket, PlatformKalshi, PlatformManifold}

// Valid reports whether p is one of the known platform tags.
func (p Platform) Valid() bool {
	switch p {
	case PlatformPolymarket, PlatformKalshi, PlatformManifold:
		return true
	}
	return false
}

// Name returns the human-readable platform name for display in alerts and
// logs.
func (p Platform) Name() string {
	switch p {
	case PlatformPolymarket:
		return "Polymarket"
	case PlatformKalshi:
		return "Kalshi"
	case PlatformManifold:
		return "Manifold"
	}
	return string(p)
}

// Outcome is one side of a binary market with its current price.
type Outcome struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// StandardMarket is the normalized representation of one binary prediction
// market, produced by a platform adapter. Prices are fixed-point decimals in
// [0,1]; a valid market always has exactly two outcomes.
type StandardMarket struct {
	ID        string          `json:"id"`
	Platform  Platform        `json:"platform"`
	Title     string          `json:"title"`
	URL       string          `json:"url"`
	Outcomes  []Outcome       `json:"outcomes"`
	EndDate   *time.Time      `json:"end_date,omitempty"`
	Liquidity decimal.Decimal `json:"liquidity,omitempty"`
	Category  string          `json:"category,omitempty"`
}

// Validate checks the StandardMarket invariants: non-empty id and title,
// exactly two outcomes, and every price within [0,1].
func (m *StandardMarket) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("market: empty id")
	}
	if m.Title == "" {
		return fmt.Errorf("market %s: empty title", m.ID)
	}
	if !m.Platform.Valid() {
		return fmt.Errorf("market %s: unknown platform %q", m.ID, m.Platform)
	}
	if len(m.Outcomes) != 2 {
		return fmt.Errorf("market %s: expected 2 outcomes, got %d", m.ID, len(m.Outcomes))
	}
	one := decimal.NewFromInt(1)
	for _, o := range m.Outcomes {
		if o.Price.IsNegative() || o.Price.GreaterThan(one) {
			return fmt.Errorf("market %s: outcome %q price %s out of [0,1]", m.ID, o.Name, o.Price)
		}
	}
	return nil
}
