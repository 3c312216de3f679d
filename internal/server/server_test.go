package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	cacheredis "github.com/alanyoungcy/arbscan/internal/cache/redis"
	"github.com/alanyoungcy/arbscan/internal/metrics"
	"github.com/alanyoungcy/arbscan/internal/queue"
	"github.com/alanyoungcy/arbscan/internal/server/handler"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testServer(t *testing.T, cfg Config) http.Handler {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	client := cacheredis.NewFromExisting(rdb)
	store := cacheredis.NewStore(client)
	q := queue.New(client)

	logger := testLogger()
	handlers := Handlers{
		Health:        handler.NewHealthHandler(client, logger),
		Status:        handler.NewStatusHandler(q, store, time.Now(), logger),
		Opportunities: handler.NewOpportunitiesHandler(store, logger),
	}
	srv := NewServer(cfg, handlers, metrics.New().Registry(), nil, logger)
	return srv.httpServer.Handler
}

func get(h http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthBypassesAuth(t *testing.T) {
	h := testServer(t, Config{Port: 8000, APIKey: "sekrit"})

	rec := get(h, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", rec.Code)
	}
}

func TestAPIRoutesRequireKey(t *testing.T) {
	h := testServer(t, Config{Port: 8000, APIKey: "sekrit"})

	for _, path := range []string{"/api/opportunities", "/api/markets/PM", "/metrics"} {
		if rec := get(h, path, nil); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s without key = %d, want 401", path, rec.Code)
		}
		rec := get(h, path, map[string]string{"X-API-Key": "sekrit"})
		if rec.Code != http.StatusOK {
			t.Errorf("%s with key = %d, want 200", path, rec.Code)
		}
	}
}

func TestMetricsEndpointServesCollectors(t *testing.T) {
	h := testServer(t, Config{Port: 8000})

	rec := get(h, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "arbscan_scan_duration_seconds") {
		t.Error("metrics output missing scanner collectors")
	}
}

func TestUnknownRoute(t *testing.T) {
	h := testServer(t, Config{Port: 8000})

	if rec := get(h, "/api/nope", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown route = %d, want 404", rec.Code)
	}
}

func TestCORSHeadersApplied(t *testing.T) {
	h := testServer(t, Config{Port: 8000, CORSOrigins: []string{"http://localhost:3000"}})

	rec := get(h, "/api/opportunities", map[string]string{"Origin": "http://localhost:3000"})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("allow-origin = %q", got)
	}
}
