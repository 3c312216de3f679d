package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Leg is one side of an arbitrage: the outcome bought on a given market and
// the price paid for it.
type Leg struct {
	MarketID string          `json:"market_id"`
	Platform Platform        `json:"platform"`
	Title    string          `json:"title"`
	URL      string          `json:"url"`
	Outcome  string          `json:"outcome"`
	Price    decimal.Decimal `json:"price"`
	EndDate  *time.Time      `json:"end_date,omitempty"`
}

// ArbitrageOpportunity is one realised buy-direction across a matched pair
// of binary markets. All money-valued fields are fixed-point decimals.
type ArbitrageOpportunity struct {
	LegA Leg `json:"leg_a"`
	LegB Leg `json:"leg_b"`

	TotalCost    decimal.Decimal `json:"total_cost"`
	FeesA        decimal.Decimal `json:"fees_a"`
	FeesB        decimal.Decimal `json:"fees_b"`
	TotalFees    decimal.Decimal `json:"total_fees"`
	NetCost      decimal.Decimal `json:"net_cost"`
	ProfitMargin decimal.Decimal `json:"profit_margin"`
	ROI          decimal.Decimal `json:"roi"`
	IsProfitable bool            `json:"is_profitable"`

	MatchScore int       `json:"match_score"`
	Timestamp  time.Time `json:"timestamp"`
}
