package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeProcessor fails the first failures attempts, then succeeds.
type fakeProcessor struct {
	failures int
	calls    int
	result   domain.ScanResult
}

func (p *fakeProcessor) Process(ctx context.Context, job domain.ScanJob, progress func(int)) (domain.ScanResult, error) {
	p.calls++
	progress(50)
	if p.calls <= p.failures {
		return domain.ScanResult{}, errors.New("platform unavailable")
	}
	return p.result, nil
}

func workerOptions() WorkerOptions {
	return WorkerOptions{
		MaxAttempts:    3,
		InitialBackoff: 2 * time.Second,
		PollInterval:   time.Millisecond,
	}
}

func TestWorkerCompletesJob(t *testing.T) {
	q := testQueue(t)
	ctx := context.Background()

	proc := &fakeProcessor{result: domain.ScanResult{MatchesFound: 4}}
	w := NewWorker(q, proc, workerOptions(), testLogger())

	var completedID string
	var completedResult domain.ScanResult
	w.OnCompleted = func(jobID string, result domain.ScanResult) {
		completedID = jobID
		completedResult = result
	}

	id, _ := q.Enqueue(ctx, testJob())
	if err := w.tick(ctx); err != nil {
		t.Fatalf("tick returned %v", err)
	}

	if proc.calls != 1 {
		t.Errorf("processor called %d times, want 1", proc.calls)
	}
	if completedID != id {
		t.Errorf("OnCompleted fired for %s, want %s", completedID, id)
	}
	if completedResult.MatchesFound != 4 {
		t.Errorf("result MatchesFound = %d, want 4", completedResult.MatchesFound)
	}

	stats, _ := q.Stats(ctx)
	if stats.Completed != 1 || stats.Waiting != 0 || stats.Active != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestWorkerRetriesThenSucceeds(t *testing.T) {
	q := testQueue(t)
	ctx := context.Background()

	now := time.Now()
	q.now = func() time.Time { return now }

	proc := &fakeProcessor{failures: 1, result: domain.ScanResult{}}
	w := NewWorker(q, proc, workerOptions(), testLogger())

	q.Enqueue(ctx, testJob())

	// First pass fails and parks the job as delayed.
	if err := w.tick(ctx); err != nil {
		t.Fatalf("tick returned %v", err)
	}
	stats, _ := q.Stats(ctx)
	if stats.Delayed != 1 {
		t.Fatalf("Delayed = %d after first attempt, want 1", stats.Delayed)
	}

	// Once the backoff elapses the retry runs and completes.
	now = now.Add(5 * time.Second)
	if err := w.tick(ctx); err != nil {
		t.Fatalf("tick returned %v", err)
	}
	if proc.calls != 2 {
		t.Errorf("processor called %d times, want 2", proc.calls)
	}
	stats, _ = q.Stats(ctx)
	if stats.Completed != 1 || stats.Delayed != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestWorkerExhaustsAttempts(t *testing.T) {
	q := testQueue(t)
	ctx := context.Background()

	now := time.Now()
	q.now = func() time.Time { return now }

	proc := &fakeProcessor{failures: 100}
	opts := workerOptions()
	opts.MaxAttempts = 2
	w := NewWorker(q, proc, opts, testLogger())

	var failedID string
	w.OnFailed = func(jobID string, reason error) { failedID = jobID }

	id, _ := q.Enqueue(ctx, testJob())

	if err := w.tick(ctx); err != nil {
		t.Fatalf("tick returned %v", err)
	}
	now = now.Add(time.Minute)
	if err := w.tick(ctx); err != nil {
		t.Fatalf("tick returned %v", err)
	}

	if proc.calls != 2 {
		t.Errorf("processor called %d times, want 2", proc.calls)
	}
	if failedID != id {
		t.Errorf("OnFailed fired for %q, want %s", failedID, id)
	}

	stats, _ := q.Stats(ctx)
	if stats.Failed != 1 || stats.Delayed != 0 {
		t.Errorf("stats = %+v", stats)
	}
	rec, _ := q.Job(ctx, id)
	if rec.State != domain.JobFailed {
		t.Errorf("State = %s, want failed", rec.State)
	}
}

func TestWorkerTickDrainsAllPending(t *testing.T) {
	q := testQueue(t)
	ctx := context.Background()

	proc := &fakeProcessor{}
	w := NewWorker(q, proc, workerOptions(), testLogger())

	for i := 0; i < 3; i++ {
		q.Enqueue(ctx, testJob())
	}
	if err := w.tick(ctx); err != nil {
		t.Fatalf("tick returned %v", err)
	}
	if proc.calls != 3 {
		t.Errorf("processor called %d times, want 3", proc.calls)
	}
}

func TestWorkerRunStopsOnCancel(t *testing.T) {
	q := testQueue(t)
	proc := &fakeProcessor{}
	w := NewWorker(q, proc, workerOptions(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}
