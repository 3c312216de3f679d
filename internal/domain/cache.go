package domain

import (
	"context"
	"strconv"
	"time"
)

// CacheStats summarizes the state of the cache backing store.
type CacheStats struct {
	Keys        int64  `json:"keys"`
	MemoryHuman string `json:"memory_human"`
}

// Cache is the single shared mutable store of the scanner. Values are
// JSON-serialized; decimal prices and timestamps survive a round-trip
// without precision loss. Get reports found=false on a missing or expired
// key rather than an error.
type Cache interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string, dst any) (found bool, err error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (CacheStats, error)
}

// LockManager provides distributed locking so that two scanner processes
// sharing one backing store never run the same platform pair concurrently.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// Cache key namespaces and their TTLs.
const (
	MarketsTTL       = 120 * time.Second
	OpportunitiesTTL = 120 * time.Second
	ScanResultsTTL   = time.Hour
)

// MarketsKey is the cache key for a platform's market snapshot.
func MarketsKey(p Platform) string { return "markets:" + string(p) }

// OpportunitiesKey is the cache key for the latest opportunity set.
const OpportunitiesKey = "opportunities:latest"

// ScanResultsKey is the timestamped cache key for one scan's full result.
func ScanResultsKey(at time.Time) string {
	return "scan:results:" + strconv.FormatInt(at.UnixMilli(), 10)
}

// AlertSentKey is the cooldown marker key for an alerted market pair.
func AlertSentKey(idA, idB string) string {
	return "alert:sent:" + idA + ":" + idB
}
