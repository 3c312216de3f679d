package polymarket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// APIMarket represents a market as returned by the Polymarket Gamma API.
// Outcomes and prices arrive as JSON-encoded string arrays, e.g.
// "[\"Yes\",\"No\"]" and "[\"0.45\",\"0.55\"]".
type APIMarket struct {
	ID            string `json:"id"`
	Question      string `json:"question"`
	Slug          string `json:"slug"`
	Outcomes      string `json:"outcomes"`
	OutcomePrices string `json:"outcomePrices"`
	EndDateISO    string `json:"endDate"`
	Liquidity     string `json:"liquidity"`
	Category      string `json:"category"`
	Active        bool   `json:"active"`
	Closed        bool   `json:"closed"`
}

// ToStandardMarket parses the JSON-encoded outcome arrays and converts the
// market into its normalized form. It returns an error when the payload does
// not describe a valid binary market.
func (m *APIMarket) ToStandardMarket(siteURL string) (domain.StandardMarket, error) {
	var names []string
	if err := json.Unmarshal([]byte(m.Outcomes), &names); err != nil {
		return domain.StandardMarket{}, fmt.Errorf("parse outcomes: %w", err)
	}
	var prices []string
	if err := json.Unmarshal([]byte(m.OutcomePrices), &prices); err != nil {
		return domain.StandardMarket{}, fmt.Errorf("parse outcome prices: %w", err)
	}
	if len(names) != 2 || len(prices) != 2 {
		return domain.StandardMarket{}, fmt.Errorf("expected 2 outcomes, got %d names / %d prices", len(names), len(prices))
	}

	outcomes := make([]domain.Outcome, 2)
	for i := range names {
		price, err := decimal.NewFromString(prices[i])
		if err != nil {
			return domain.StandardMarket{}, fmt.Errorf("parse price %q: %w", prices[i], err)
		}
		outcomes[i] = domain.Outcome{Name: names[i], Price: price}
	}

	sm := domain.StandardMarket{
		ID:       m.ID,
		Platform: domain.PlatformPolymarket,
		Title:    m.Question,
		URL:      siteURL + "/market/" + m.Slug,
		Outcomes: outcomes,
		Category: m.Category,
	}

	if m.EndDateISO != "" {
		if t, err := time.Parse(time.RFC3339, m.EndDateISO); err == nil {
			sm.EndDate = &t
		}
	}
	if m.Liquidity != "" {
		if liq, err := decimal.NewFromString(m.Liquidity); err == nil {
			sm.Liquidity = liq
		}
	}

	if err := sm.Validate(); err != nil {
		return domain.StandardMarket{}, err
	}
	return sm, nil
}
