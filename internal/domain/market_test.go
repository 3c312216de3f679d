package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validMarket() StandardMarket {
	return StandardMarket{
		ID:       "mkt-1",
		Platform: PlatformPolymarket,
		Title:    "US recession in 2025?",
		URL:      "https://polymarket.com/market/us-recession-2025",
		Outcomes: []Outcome{
			{Name: "Yes", Price: decimal.RequireFromString("0.45")},
			{Name: "No", Price: decimal.RequireFromString("0.55")},
		},
	}
}

func TestPlatformValid(t *testing.T) {
	for _, p := range Platforms {
		if !p.Valid() {
			t.Errorf("%s not valid", p)
		}
	}
	if Platform("NYSE").Valid() {
		t.Error("unknown tag accepted")
	}
	if Platform("").Valid() {
		t.Error("empty tag accepted")
	}
}

func TestPlatformName(t *testing.T) {
	tests := []struct {
		p    Platform
		want string
	}{
		{PlatformPolymarket, "Polymarket"},
		{PlatformKalshi, "Kalshi"},
		{PlatformManifold, "Manifold"},
		{Platform("XX"), "XX"},
	}
	for _, tt := range tests {
		if got := tt.p.Name(); got != tt.want {
			t.Errorf("Name(%s) = %q, want %q", tt.p, got, tt.want)
		}
	}
}

func TestMarketValidate(t *testing.T) {
	if err := ptr(validMarket()).Validate(); err != nil {
		t.Fatalf("valid market rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*StandardMarket)
		want   string
	}{
		{"empty id", func(m *StandardMarket) { m.ID = "" }, "empty id"},
		{"empty title", func(m *StandardMarket) { m.Title = "" }, "empty title"},
		{"unknown platform", func(m *StandardMarket) { m.Platform = "NYSE" }, `unknown platform "NYSE"`},
		{"one outcome", func(m *StandardMarket) { m.Outcomes = m.Outcomes[:1] }, "expected 2 outcomes, got 1"},
		{
			"three outcomes",
			func(m *StandardMarket) {
				m.Outcomes = append(m.Outcomes, Outcome{Name: "Maybe", Price: decimal.Zero})
			},
			"expected 2 outcomes, got 3",
		},
		{
			"negative price",
			func(m *StandardMarket) { m.Outcomes[0].Price = decimal.RequireFromString("-0.01") },
			"out of [0,1]",
		},
		{
			"price above one",
			func(m *StandardMarket) { m.Outcomes[1].Price = decimal.RequireFromString("1.01") },
			"out of [0,1]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validMarket()
			tt.mutate(&m)
			err := m.Validate()
			if err == nil {
				t.Fatal("Validate accepted an invalid market")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestMarketValidateBoundaryPrices(t *testing.T) {
	m := validMarket()
	m.Outcomes[0].Price = decimal.Zero
	m.Outcomes[1].Price = decimal.NewFromInt(1)
	if err := m.Validate(); err != nil {
		t.Errorf("boundary prices rejected: %v", err)
	}
}

func TestPairKey(t *testing.T) {
	job := ScanJob{PlatformA: PlatformPolymarket, PlatformB: PlatformKalshi}
	if got := job.PairKey(); got != "PMxKAL" {
		t.Errorf("PairKey = %q, want PMxKAL", got)
	}
	reversed := ScanJob{PlatformA: PlatformKalshi, PlatformB: PlatformPolymarket}
	if job.PairKey() == reversed.PairKey() {
		t.Error("pair key does not distinguish direction")
	}
}

func TestCacheKeys(t *testing.T) {
	if got := MarketsKey(PlatformManifold); got != "markets:MAN" {
		t.Errorf("MarketsKey = %q", got)
	}
	if got := AlertSentKey("a", "b"); got != "alert:sent:a:b" {
		t.Errorf("AlertSentKey = %q", got)
	}
	at := time.UnixMilli(1754000000000).UTC()
	if got := ScanResultsKey(at); got != "scan:results:1754000000000" {
		t.Errorf("ScanResultsKey = %q", got)
	}
}

func ptr(m StandardMarket) *StandardMarket { return &m }
