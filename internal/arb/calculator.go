// Package arb computes arbitrage opportunities from matched market pairs.
// All arithmetic stays in fixed-point decimals end to end.
package arb

import (
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// DefaultFeeRates are the taker fee rates per platform.
func DefaultFeeRates() map[domain.Platform]decimal.Decimal {
	return map[domain.Platform]decimal.Decimal{
		domain.PlatformPolymarket: decimal.RequireFromString("0.02"),
		domain.PlatformKalshi:     decimal.RequireFromString("0.07"),
		domain.PlatformManifold:   decimal.Zero,
	}
}

// Options tune the calculator's opportunity filters.
type Options struct {
	// MinROI is the minimum return on cost, as a fraction (0.01 = 1%).
	MinROI decimal.Decimal
	// MinLiquidity drops matches where a market reports liquidity below
	// this floor. Markets that report no liquidity are not dropped.
	MinLiquidity decimal.Decimal
}

// DefaultOptions returns the standard calculator filters.
func DefaultOptions() Options {
	return Options{
		MinROI:       decimal.RequireFromString("0.01"),
		MinLiquidity: decimal.NewFromInt(100),
	}
}

// Calculator evaluates matched pairs for cross-platform arbitrage.
type Calculator struct {
	fees   map[domain.Platform]decimal.Decimal
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// NewCalculator creates a calculator with the given fee table. Platforms
// absent from the table are treated as fee-free.
func NewCalculator(fees map[domain.Platform]decimal.Decimal, opts Options, logger *slog.Logger) *Calculator {
	return &Calculator{
		fees:   fees,
		opts:   opts,
		logger: logger.With(slog.String("component", "calculator")),
		now:    time.Now,
	}
}

// FindArbitrage evaluates both buy directions for every binary match and
// returns the profitable opportunities.
func (c *Calculator) FindArbitrage(matches []domain.MarketMatch) []domain.ArbitrageOpportunity {
	var opps []domain.ArbitrageOpportunity
	for i := range matches {
		m := &matches[i]
		if len(m.MarketA.Outcomes) != 2 || len(m.MarketB.Outcomes) != 2 {
			continue
		}
		if c.illiquid(&m.MarketA) || c.illiquid(&m.MarketB) {
			continue
		}
		// Buy opposite outcomes on each platform. A payout of 1 is
		// guaranteed on exactly one leg.
		for _, dir := range [2][2]int{{0, 1}, {1, 0}} {
			if opp, ok := c.evaluate(m, dir[0], dir[1]); ok {
				opps = append(opps, opp)
			}
		}
	}
	if len(opps) > 0 {
		c.logger.Info("arbitrage found", slog.Int("opportunities", len(opps)), slog.Int("matches", len(matches)))
	}
	return opps
}

func (c *Calculator) evaluate(m *domain.MarketMatch, idxA, idxB int) (domain.ArbitrageOpportunity, bool) {
	priceA := m.MarketA.Outcomes[idxA].Price
	priceB := m.MarketB.Outcomes[idxB].Price

	totalCost := priceA.Add(priceB)
	if totalCost.GreaterThanOrEqual(one) {
		return domain.ArbitrageOpportunity{}, false
	}

	feesA := priceA.Mul(c.rate(m.MarketA.Platform))
	feesB := priceB.Mul(c.rate(m.MarketB.Platform))
	totalFees := feesA.Add(feesB)
	netCost := totalCost.Add(totalFees)
	profitMargin := one.Sub(netCost)

	if !profitMargin.IsPositive() {
		return domain.ArbitrageOpportunity{}, false
	}
	roi := profitMargin.Div(netCost).Mul(hundred)
	if roi.LessThan(c.opts.MinROI.Mul(hundred)) {
		return domain.ArbitrageOpportunity{}, false
	}

	return domain.ArbitrageOpportunity{
		LegA:         leg(&m.MarketA, idxA),
		LegB:         leg(&m.MarketB, idxB),
		TotalCost:    totalCost,
		FeesA:        feesA,
		FeesB:        feesB,
		TotalFees:    totalFees,
		NetCost:      netCost,
		ProfitMargin: profitMargin,
		ROI:          roi,
		IsProfitable: true,
		MatchScore:   m.Score,
		Timestamp:    c.now().UTC(),
	}, true
}

// illiquid reports whether the market quotes a liquidity figure below the
// configured floor. A zero figure means the platform did not report one.
func (c *Calculator) illiquid(m *domain.StandardMarket) bool {
	return m.Liquidity.IsPositive() && m.Liquidity.LessThan(c.opts.MinLiquidity)
}

func (c *Calculator) rate(p domain.Platform) decimal.Decimal {
	if r, ok := c.fees[p]; ok {
		return r
	}
	return decimal.Zero
}

func leg(m *domain.StandardMarket, idx int) domain.Leg {
	return domain.Leg{
		MarketID: m.ID,
		Platform: m.Platform,
		Title:    m.Title,
		URL:      m.URL,
		Outcome:  m.Outcomes[idx].Name,
		Price:    m.Outcomes[idx].Price,
		EndDate:  m.EndDate,
	}
}
