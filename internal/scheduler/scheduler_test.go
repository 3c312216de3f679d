package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	cacheredis "github.com/alanyoungcy/arbscan/internal/cache/redis"
	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/queue"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countingProcessor struct {
	calls atomic.Int64
}

func (p *countingProcessor) Process(ctx context.Context, job domain.ScanJob, progress func(int)) (domain.ScanResult, error) {
	p.calls.Add(1)
	return domain.ScanResult{}, nil
}

func testDeps(t *testing.T) (*queue.Queue, *cacheredis.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	client := cacheredis.NewFromExisting(rdb)
	return queue.New(client), cacheredis.NewStore(client)
}

func TestDefaultPairs(t *testing.T) {
	pairs := DefaultPairs(25)
	if len(pairs) != 3 {
		t.Fatalf("got %d pairs, want 3", len(pairs))
	}
	seen := map[string]bool{}
	for _, p := range pairs {
		if p.Limit != 25 {
			t.Errorf("pair %s has limit %d, want 25", p.PairKey(), p.Limit)
		}
		if seen[p.PairKey()] {
			t.Errorf("duplicate pair %s", p.PairKey())
		}
		seen[p.PairKey()] = true
	}
}

func TestRunEnrollsAndProcessesPairs(t *testing.T) {
	q, cache := testDeps(t)
	proc := &countingProcessor{}
	w := queue.NewWorker(q, proc, queue.WorkerOptions{
		MaxAttempts:    1,
		InitialBackoff: time.Second,
		PollInterval:   time.Millisecond,
	}, testLogger())

	s := New(Config{
		Pairs:         DefaultPairs(10),
		Interval:      time.Minute,
		StatsInterval: time.Hour,
	}, q, w, cache, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// Each enrolment's first run is due immediately; wait for the worker to
	// pick all three up.
	deadline := time.After(2 * time.Second)
	for proc.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("worker processed %d jobs before deadline, want 3", proc.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v, want nil on cancellation", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}

	stats, err := q.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats returned %v", err)
	}
	if stats.Completed < 3 {
		t.Errorf("Completed = %d, want >= 3", stats.Completed)
	}
	// The recurring enrolments stay parked for their next due time.
	if stats.Delayed != 3 {
		t.Errorf("Delayed = %d, want 3", stats.Delayed)
	}
}

func TestRunFailsWhenEnrolmentFails(t *testing.T) {
	q, cache := testDeps(t)
	proc := &countingProcessor{}
	w := queue.NewWorker(q, proc, queue.WorkerOptions{
		MaxAttempts:    1,
		InitialBackoff: time.Second,
		PollInterval:   time.Millisecond,
	}, testLogger())

	if err := q.Close(); err != nil {
		t.Fatalf("Close returned %v", err)
	}

	s := New(Config{
		Pairs:         DefaultPairs(10),
		Interval:      time.Minute,
		StatsInterval: time.Hour,
	}, q, w, cache, testLogger())

	if err := s.Run(context.Background()); err == nil {
		t.Fatal("Run succeeded with a closed queue")
	}
}
