package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	cacheredis "github.com/alanyoungcy/arbscan/internal/cache/redis"
	"github.com/alanyoungcy/arbscan/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCache(t *testing.T) *cacheredis.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return cacheredis.NewStore(cacheredis.NewFromExisting(rdb))
}

type fakePinger struct {
	err error
}

func (p *fakePinger) Ping(ctx context.Context) error { return p.err }

func TestHealthCheckOK(t *testing.T) {
	h := NewHealthHandler(&fakePinger{}, testLogger())

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" || body["redis"] != "up" {
		t.Errorf("body = %v", body)
	}
}

func TestHealthCheckDegraded(t *testing.T) {
	h := NewHealthHandler(&fakePinger{err: errors.New("connection refused")}, testLogger())

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "degraded" || body["redis"] != "down" {
		t.Errorf("body = %v", body)
	}
}

func TestHealthCheckWithoutStore(t *testing.T) {
	h := NewHealthHandler(nil, testLogger())

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestListOpportunities(t *testing.T) {
	cache := testCache(t)
	ctx := context.Background()

	opps := []domain.ArbitrageOpportunity{{
		LegA: domain.Leg{MarketID: "pm-1", Platform: domain.PlatformPolymarket},
		LegB: domain.Leg{MarketID: "kal-1", Platform: domain.PlatformKalshi},
		ROI:  decimal.RequireFromString("2.82"),
	}}
	if err := cache.Set(ctx, domain.OpportunitiesKey, opps, domain.OpportunitiesTTL); err != nil {
		t.Fatalf("Set returned %v", err)
	}

	h := NewOpportunitiesHandler(cache, testLogger())
	rec := httptest.NewRecorder()
	h.ListOpportunities(rec, httptest.NewRequest(http.MethodGet, "/api/opportunities", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Opportunities []domain.ArbitrageOpportunity `json:"opportunities"`
		Count         int                           `json:"count"`
		Stale         bool                          `json:"stale"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Count != 1 || body.Stale {
		t.Errorf("count/stale = %d/%v", body.Count, body.Stale)
	}
	if !body.Opportunities[0].ROI.Equal(decimal.RequireFromString("2.82")) {
		t.Errorf("ROI = %s", body.Opportunities[0].ROI)
	}
}

func TestListOpportunitiesEmptyCache(t *testing.T) {
	h := NewOpportunitiesHandler(testCache(t), testLogger())
	rec := httptest.NewRecorder()
	h.ListOpportunities(rec, httptest.NewRequest(http.MethodGet, "/api/opportunities", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Opportunities []domain.ArbitrageOpportunity `json:"opportunities"`
		Count         int                           `json:"count"`
		Stale         bool                          `json:"stale"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Count != 0 || !body.Stale || body.Opportunities == nil {
		t.Errorf("count/stale/opps = %d/%v/%v", body.Count, body.Stale, body.Opportunities)
	}
}

func TestListMarkets(t *testing.T) {
	cache := testCache(t)
	ctx := context.Background()

	markets := []domain.StandardMarket{{
		ID:       "mkt-1",
		Platform: domain.PlatformManifold,
		Title:    "US recession in 2025?",
		Outcomes: []domain.Outcome{
			{Name: "Yes", Price: decimal.RequireFromString("0.42")},
			{Name: "No", Price: decimal.RequireFromString("0.58")},
		},
	}}
	if err := cache.Set(ctx, domain.MarketsKey(domain.PlatformManifold), markets, domain.MarketsTTL); err != nil {
		t.Fatalf("Set returned %v", err)
	}

	h := NewOpportunitiesHandler(cache, testLogger())
	req := httptest.NewRequest(http.MethodGet, "/api/markets/MAN", nil)
	req.SetPathValue("platform", "MAN")
	rec := httptest.NewRecorder()
	h.ListMarkets(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Platform domain.Platform         `json:"platform"`
		Markets  []domain.StandardMarket `json:"markets"`
		Count    int                     `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Platform != domain.PlatformManifold || body.Count != 1 {
		t.Errorf("platform/count = %s/%d", body.Platform, body.Count)
	}
	if body.Markets[0].ID != "mkt-1" {
		t.Errorf("market id = %s", body.Markets[0].ID)
	}
}

func TestListMarketsUnknownPlatform(t *testing.T) {
	h := NewOpportunitiesHandler(testCache(t), testLogger())
	req := httptest.NewRequest(http.MethodGet, "/api/markets/NYSE", nil)
	req.SetPathValue("platform", "NYSE")
	rec := httptest.NewRecorder()
	h.ListMarkets(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

type fakeQueue struct {
	stats domain.QueueStats
	err   error
}

func (q *fakeQueue) Enqueue(ctx context.Context, job domain.ScanJob) (string, error) {
	return "", nil
}
func (q *fakeQueue) EnqueueRecurring(ctx context.Context, job domain.ScanJob, every time.Duration) error {
	return nil
}
func (q *fakeQueue) Stats(ctx context.Context) (domain.QueueStats, error) { return q.stats, q.err }
func (q *fakeQueue) Drain(ctx context.Context) error                      { return nil }
func (q *fakeQueue) Close() error                                         { return nil }

type fakeStatsCache struct {
	domain.Cache
	stats domain.CacheStats
	err   error
}

func (c *fakeStatsCache) Stats(ctx context.Context) (domain.CacheStats, error) {
	return c.stats, c.err
}

func TestGetStatus(t *testing.T) {
	q := &fakeQueue{stats: domain.QueueStats{Waiting: 2, Completed: 5}}
	c := &fakeStatsCache{stats: domain.CacheStats{Keys: 7, MemoryHuman: "1.2M"}}
	h := NewStatusHandler(q, c, time.Now().Add(-time.Minute), testLogger())

	rec := httptest.NewRecorder()
	h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		UptimeSeconds int64             `json:"uptime_seconds"`
		Queue         domain.QueueStats `json:"queue"`
		Cache         domain.CacheStats `json:"cache"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.UptimeSeconds < 59 {
		t.Errorf("uptime = %d, want about a minute", body.UptimeSeconds)
	}
	if body.Queue.Waiting != 2 || body.Queue.Completed != 5 {
		t.Errorf("queue = %+v", body.Queue)
	}
	if body.Cache.Keys != 7 || body.Cache.MemoryHuman != "1.2M" {
		t.Errorf("cache = %+v", body.Cache)
	}
}

func TestGetStatusQueueUnavailable(t *testing.T) {
	q := &fakeQueue{err: errors.New("redis down")}
	h := NewStatusHandler(q, &fakeStatsCache{}, time.Now(), testLogger())

	rec := httptest.NewRecorder()
	h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}
