package polymarket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/ratelimit"
)

func testLimiter() *ratelimit.Limiter {
	return ratelimit.New(domain.PlatformPolymarket, ratelimit.Config{
		MaxConcurrent:  5,
		MinInterval:    time.Millisecond,
		Capacity:       1000,
		RefillAmount:   1000,
		RefillInterval: time.Millisecond,
	}, ratelimit.Hooks{})
}

const marketJSON = `{
	"id": "mkt-1",
	"question": "US recession in 2025?",
	"slug": "us-recession-2025",
	"outcomes": "[\"Yes\",\"No\"]",
	"outcomePrices": "[\"0.45\",\"0.55\"]",
	"endDate": "2025-12-31T00:00:00Z",
	"liquidity": "12345.67",
	"category": "Economics",
	"active": true,
	"closed": false
}`

func TestFetchMarkets(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("[" + marketJSON + "]"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, testLimiter())
	markets, err := c.FetchMarkets(context.Background(), 100)
	if err != nil {
		t.Fatalf("FetchMarkets returned %v", err)
	}
	if len(markets) != 1 {
		t.Fatalf("got %d markets, want 1", len(markets))
	}

	m := markets[0]
	if m.ID != "mkt-1" || m.Platform != domain.PlatformPolymarket {
		t.Errorf("ID/Platform = %s/%s", m.ID, m.Platform)
	}
	if m.Title != "US recession in 2025?" {
		t.Errorf("Title = %q", m.Title)
	}
	if m.URL != DefaultSiteURL+"/market/us-recession-2025" {
		t.Errorf("URL = %q", m.URL)
	}
	if len(m.Outcomes) != 2 {
		t.Fatalf("got %d outcomes", len(m.Outcomes))
	}
	if m.Outcomes[0].Name != "Yes" || !m.Outcomes[0].Price.Equal(decimal.RequireFromString("0.45")) {
		t.Errorf("outcome[0] = %s at %s", m.Outcomes[0].Name, m.Outcomes[0].Price)
	}
	if m.Outcomes[1].Name != "No" || !m.Outcomes[1].Price.Equal(decimal.RequireFromString("0.55")) {
		t.Errorf("outcome[1] = %s at %s", m.Outcomes[1].Name, m.Outcomes[1].Price)
	}
	if m.EndDate == nil || !m.EndDate.Equal(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("EndDate = %v", m.EndDate)
	}
	if !m.Liquidity.Equal(decimal.RequireFromString("12345.67")) {
		t.Errorf("Liquidity = %s", m.Liquidity)
	}

	for key, want := range map[string]string{"limit": "100", "active": "true", "closed": "false"} {
		if got := gotQuery.Get(key); got != want {
			t.Errorf("query %s = %q, want %q", key, got, want)
		}
	}
}

func TestFetchMarketsMalformedPayloadNotRetried(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(`{"not": "an array"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, testLimiter())
	if _, err := c.FetchMarkets(context.Background(), 10); err == nil {
		t.Fatal("FetchMarkets succeeded on malformed payload")
	}
	if requests != 1 {
		t.Errorf("server saw %d requests, want 1", requests)
	}
}

func TestFetchMarketsClientErrorNotRetried(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, testLimiter())
	if _, err := c.FetchMarkets(context.Background(), 10); err == nil {
		t.Fatal("FetchMarkets succeeded on a 400 response")
	}
	if requests != 1 {
		t.Errorf("server saw %d requests, want 1", requests)
	}
}

func TestFetchMarketsRateLimitRetried(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("[" + marketJSON + "]"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, testLimiter())
	markets, err := c.FetchMarkets(context.Background(), 10)
	if err != nil {
		t.Fatalf("FetchMarkets returned %v", err)
	}
	if len(markets) != 1 {
		t.Errorf("got %d markets, want 1", len(markets))
	}
	if requests != 2 {
		t.Errorf("server saw %d requests, want 2", requests)
	}
}

func TestFetchMarketByID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets/mkt-1" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(marketJSON))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, testLimiter())

	t.Run("found", func(t *testing.T) {
		m, err := c.FetchMarketByID(context.Background(), "mkt-1")
		if err != nil {
			t.Fatalf("FetchMarketByID returned %v", err)
		}
		if m == nil || m.ID != "mkt-1" {
			t.Fatalf("market = %+v", m)
		}
	})

	t.Run("missing yields nil without error", func(t *testing.T) {
		m, err := c.FetchMarketByID(context.Background(), "nope")
		if err != nil {
			t.Fatalf("FetchMarketByID returned %v", err)
		}
		if m != nil {
			t.Fatalf("market = %+v, want nil", m)
		}
	})
}
