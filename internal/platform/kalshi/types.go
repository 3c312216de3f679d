package kalshi

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// APIMarket represents a market as returned by the Kalshi REST API. Prices
// and liquidity are integer cents.
type APIMarket struct {
	Ticker     string `json:"ticker"`
	Title      string `json:"title"`
	MarketType string `json:"market_type"` // "binary", "scalar"
	Status     string `json:"status"`      // "open" or "active" both observed
	YesAsk     int64  `json:"yes_ask"`
	NoAsk      int64  `json:"no_ask"`
	Liquidity  int64  `json:"liquidity"`
	CloseTime  string `json:"close_time"`
	Category   string `json:"category"`
}

var cents = decimal.NewFromInt(100)

// Tradeable reports whether the market is a binary market with both ask
// sides quoted. The API emits both "open" and "active" for live markets, so
// status alone never disqualifies a market.
func (m *APIMarket) Tradeable() bool {
	return m.MarketType == "binary" && m.YesAsk > 0 && m.NoAsk > 0
}

// ToStandardMarket converts cent-denominated prices into fixed-point
// decimals in [0,1] and normalizes the market.
func (m *APIMarket) ToStandardMarket(siteURL string) (domain.StandardMarket, error) {
	if !m.Tradeable() {
		return domain.StandardMarket{}, fmt.Errorf("market %s is not a tradeable binary market", m.Ticker)
	}

	sm := domain.StandardMarket{
		ID:       m.Ticker,
		Platform: domain.PlatformKalshi,
		Title:    m.Title,
		URL:      siteURL + "/markets/" + m.Ticker,
		Outcomes: []domain.Outcome{
			{Name: "Yes", Price: decimal.NewFromInt(m.YesAsk).Div(cents)},
			{Name: "No", Price: decimal.NewFromInt(m.NoAsk).Div(cents)},
		},
		Liquidity: decimal.NewFromInt(m.Liquidity).Div(cents),
		Category:  m.Category,
	}

	if m.CloseTime != "" {
		if t, err := time.Parse(time.RFC3339, m.CloseTime); err == nil {
			sm.EndDate = &t
		}
	}

	if err := sm.Validate(); err != nil {
		return domain.StandardMarket{}, err
	}
	return sm, nil
}
