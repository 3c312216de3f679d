package manifold

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// APIMarket represents a market as returned by the Manifold v0 API.
// Probability is decoded as json.Number so the quoted value reaches the
// fixed-point layer without an intermediate binary float.
type APIMarket struct {
	ID          string       `json:"id"`
	Question    string       `json:"question"`
	URL         string       `json:"url"`
	OutcomeType string       `json:"outcomeType"` // "BINARY", "MULTIPLE_CHOICE", ...
	Probability *json.Number `json:"probability"`
	IsResolved  bool         `json:"isResolved"`
	CloseTime   int64        `json:"closeTime"` // epoch milliseconds
	Liquidity   json.Number  `json:"totalLiquidity"`
	GroupSlugs  []string     `json:"groupSlugs"`
}

var one = decimal.NewFromInt(1)

// Tradeable reports whether the market is an unresolved binary market with a
// quoted probability.
func (m *APIMarket) Tradeable() bool {
	return m.OutcomeType == "BINARY" && !m.IsResolved && m.Probability != nil
}

// ToStandardMarket converts the probability quote into Yes/No outcome prices
// (Yes at p, No at 1-p) and normalizes the market.
func (m *APIMarket) ToStandardMarket() (domain.StandardMarket, error) {
	if !m.Tradeable() {
		return domain.StandardMarket{}, fmt.Errorf("market %s is not a tradeable binary market", m.ID)
	}

	prob, err := decimal.NewFromString(m.Probability.String())
	if err != nil {
		return domain.StandardMarket{}, fmt.Errorf("parse probability %q: %w", m.Probability.String(), err)
	}

	sm := domain.StandardMarket{
		ID:       m.ID,
		Platform: domain.PlatformManifold,
		Title:    m.Question,
		URL:      m.URL,
		Outcomes: []domain.Outcome{
			{Name: "Yes", Price: prob},
			{Name: "No", Price: one.Sub(prob)},
		},
	}

	if len(m.GroupSlugs) > 0 {
		sm.Category = m.GroupSlugs[0]
	}
	if m.CloseTime > 0 {
		t := time.UnixMilli(m.CloseTime).UTC()
		sm.EndDate = &t
	}
	if m.Liquidity != "" {
		if liq, err := decimal.NewFromString(m.Liquidity.String()); err == nil {
			sm.Liquidity = liq
		}
	}

	if err := sm.Validate(); err != nil {
		return domain.StandardMarket{}, err
	}
	return sm, nil
}
