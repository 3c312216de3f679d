package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// Processor executes one scan job. The progress callback receives milestone
// percentages as the job advances.
type Processor interface {
	Process(ctx context.Context, job domain.ScanJob, progress func(int)) (domain.ScanResult, error)
}

// WorkerOptions tune the worker's retry and polling behavior.
type WorkerOptions struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	PollInterval   time.Duration
}

// DefaultWorkerOptions returns the standard worker policy.
func DefaultWorkerOptions() WorkerOptions {
	return WorkerOptions{
		MaxAttempts:    3,
		InitialBackoff: 2 * time.Second,
		PollInterval:   time.Second,
	}
}

// Worker pulls scan jobs off the queue one at a time and runs them through
// the Processor. Failed attempts are rescheduled with exponential backoff
// until the attempt cap, then parked as failed.
type Worker struct {
	queue     *Queue
	processor Processor
	opts      WorkerOptions
	logger    *slog.Logger

	// OnCompleted and OnFailed, when set, observe terminal job states.
	OnCompleted func(jobID string, result domain.ScanResult)
	OnFailed    func(jobID string, reason error)
}

// NewWorker creates a worker bound to the queue and processor.
func NewWorker(q *Queue, p Processor, opts WorkerOptions, logger *slog.Logger) *Worker {
	return &Worker{
		queue:     q,
		processor: p,
		opts:      opts,
		logger:    logger.With(slog.String("component", "worker")),
	}
}

// Run processes jobs until ctx is cancelled. An in-flight job observes the
// cancellation through its own context and finishes or aborts on its next
// suspension point.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		if err := w.tick(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Error("queue poll failed", slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// tick promotes due jobs and drains the pending list.
func (w *Worker) tick(ctx context.Context) error {
	if err := w.queue.promoteDue(ctx); err != nil {
		return err
	}
	for {
		rec, err := w.queue.pop(ctx)
		if err != nil {
			return err
		}
		if rec == nil {
			return nil
		}
		w.process(ctx, rec)
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (w *Worker) process(ctx context.Context, rec *domain.JobRecord) {
	logger := w.logger.With(
		slog.String("job_id", rec.ID),
		slog.String("pair", rec.Job.PairKey()),
		slog.Int("attempt", rec.Attempts))
	logger.Info("job started")

	result, err := w.processor.Process(ctx, rec.Job, func(p int) {
		w.queue.setProgress(ctx, rec, p)
	})
	if err == nil {
		if ferr := w.queue.finish(ctx, rec, nil); ferr != nil {
			logger.Error("job bookkeeping failed", slog.String("error", ferr.Error()))
		}
		logger.Info("job completed",
			slog.Int("opportunities", len(result.Opportunities)),
			slog.Int64("duration_ms", result.DurationMs))
		if w.OnCompleted != nil {
			w.OnCompleted(rec.ID, result)
		}
		return
	}

	if rec.Attempts < w.opts.MaxAttempts {
		delay := w.opts.InitialBackoff << (rec.Attempts - 1)
		logger.Warn("job attempt failed, retrying",
			slog.String("error", err.Error()),
			slog.Duration("delay", delay))
		if qerr := w.queue.requeueDelayed(ctx, rec, delay, err); qerr != nil {
			logger.Error("job reschedule failed", slog.String("error", qerr.Error()))
		}
		return
	}

	logger.Error("job failed", slog.String("error", err.Error()))
	if ferr := w.queue.finish(ctx, rec, err); ferr != nil {
		logger.Error("job bookkeeping failed", slog.String("error", ferr.Error()))
	}
	if w.OnFailed != nil {
		w.OnFailed(rec.ID, err)
	}
}
