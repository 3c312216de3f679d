// Package queue implements the durable scan-job queue and its worker on
// Redis. Jobs wait in a list, delayed retries and recurring enrolments live
// in sorted sets keyed by ready time, and each job's record is a JSON string
// with its own key. Everything is reconstructible, so retention is bounded
// by count and age rather than kept forever.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	cacheredis "github.com/alanyoungcy/arbscan/internal/cache/redis"
	"github.com/alanyoungcy/arbscan/internal/domain"
)

const (
	pendingKey    = "queue:pending"
	delayedKey    = "queue:delayed"
	activeKey     = "queue:active"
	completedKey  = "queue:completed"
	failedKey     = "queue:failed"
	recurringSet  = "queue:recurring"
	recurringJobs = "queue:recurring:jobs"

	completedRetainCount = 100
	completedRetainAge   = 24 * time.Hour
	failedRetainCount    = 50
)

func jobKey(id string) string { return "queue:job:" + id }

// recurringEntry is the stored form of one recurring enrolment.
type recurringEntry struct {
	Job   domain.ScanJob `json:"job"`
	Every time.Duration  `json:"every"`
}

// Queue is the Redis-backed domain.JobQueue.
type Queue struct {
	rdb *goredis.Client
	now func() time.Time

	mu     sync.Mutex
	closed bool
}

// New creates a Queue backed by the given Redis client.
func New(c *cacheredis.Client) *Queue {
	return &Queue{rdb: c.Underlying(), now: time.Now}
}

// Enqueue stores the job record and pushes its id onto the pending list.
func (q *Queue) Enqueue(ctx context.Context, job domain.ScanJob) (string, error) {
	if err := q.check(); err != nil {
		return "", err
	}

	rec := domain.JobRecord{
		ID:         uuid.New().String(),
		Job:        job,
		State:      domain.JobWaiting,
		EnqueuedAt: q.now().UTC(),
	}
	if err := q.writeRecord(ctx, &rec, 0); err != nil {
		return "", err
	}
	if err := q.rdb.LPush(ctx, pendingKey, rec.ID).Err(); err != nil {
		return "", fmt.Errorf("queue: push %s: %w", rec.ID, err)
	}
	return rec.ID, nil
}

// EnqueueRecurring enrolls the job at the given cadence, replacing any
// existing enrolment for the same platform pair. The first run becomes due
// immediately.
func (q *Queue) EnqueueRecurring(ctx context.Context, job domain.ScanJob, every time.Duration) error {
	if err := q.check(); err != nil {
		return err
	}
	if every <= 0 {
		return fmt.Errorf("queue: recurring cadence must be positive, got %s", every)
	}

	entry, err := json.Marshal(recurringEntry{Job: job, Every: every})
	if err != nil {
		return fmt.Errorf("queue: marshal recurring %s: %w", job.PairKey(), err)
	}

	pair := job.PairKey()
	pipe := q.rdb.TxPipeline()
	pipe.HSet(ctx, recurringJobs, pair, entry)
	pipe.ZAdd(ctx, recurringSet, goredis.Z{Score: float64(q.now().UnixMilli()), Member: pair})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("queue: enroll recurring %s: %w", pair, err)
	}
	return nil
}

// Stats counts jobs per state. Delayed counts retries waiting out their
// backoff plus the next scheduled run of each recurring enrolment.
func (q *Queue) Stats(ctx context.Context) (domain.QueueStats, error) {
	pipe := q.rdb.Pipeline()
	waiting := pipe.LLen(ctx, pendingKey)
	active := pipe.SCard(ctx, activeKey)
	completed := pipe.LLen(ctx, completedKey)
	failed := pipe.LLen(ctx, failedKey)
	delayed := pipe.ZCard(ctx, delayedKey)
	recurring := pipe.ZCard(ctx, recurringSet)
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.QueueStats{}, fmt.Errorf("queue: stats: %w", err)
	}
	return domain.QueueStats{
		Waiting:   waiting.Val(),
		Active:    active.Val(),
		Completed: completed.Val(),
		Failed:    failed.Val(),
		Delayed:   delayed.Val() + recurring.Val(),
	}, nil
}

// Drain removes all waiting jobs and delayed retries. Active jobs and
// recurring enrolments are untouched.
func (q *Queue) Drain(ctx context.Context) error {
	for {
		id, err := q.rdb.RPop(ctx, pendingKey).Result()
		if errors.Is(err, goredis.Nil) {
			break
		}
		if err != nil {
			return fmt.Errorf("queue: drain pending: %w", err)
		}
		_ = q.rdb.Del(ctx, jobKey(id)).Err()
	}
	ids, err := q.rdb.ZRange(ctx, delayedKey, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("queue: drain delayed: %w", err)
	}
	for _, id := range ids {
		_ = q.rdb.Del(ctx, jobKey(id)).Err()
	}
	if err := q.rdb.Del(ctx, delayedKey).Err(); err != nil {
		return fmt.Errorf("queue: drain delayed: %w", err)
	}
	return nil
}

// Close marks the queue closed. The underlying Redis connection is owned by
// the caller and stays open.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}

func (q *Queue) check() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return domain.ErrQueueClosed
	}
	return nil
}

// promoteDue moves delayed jobs and due recurring enrolments onto the
// pending list. Called by the worker before each pop.
func (q *Queue) promoteDue(ctx context.Context) error {
	nowMs := q.now().UnixMilli()
	max := strconv.FormatInt(nowMs, 10)

	due, err := q.rdb.ZRangeByScore(ctx, delayedKey, &goredis.ZRangeBy{Min: "-inf", Max: max}).Result()
	if err != nil {
		return fmt.Errorf("queue: promote delayed: %w", err)
	}
	for _, id := range due {
		pipe := q.rdb.TxPipeline()
		pipe.ZRem(ctx, delayedKey, id)
		pipe.LPush(ctx, pendingKey, id)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("queue: promote %s: %w", id, err)
		}
		if rec, err := q.readRecord(ctx, id); err == nil && rec != nil {
			rec.State = domain.JobWaiting
			_ = q.writeRecord(ctx, rec, 0)
		}
	}

	pairs, err := q.rdb.ZRangeByScore(ctx, recurringSet, &goredis.ZRangeBy{Min: "-inf", Max: max}).Result()
	if err != nil {
		return fmt.Errorf("queue: promote recurring: %w", err)
	}
	for _, pair := range pairs {
		raw, err := q.rdb.HGet(ctx, recurringJobs, pair).Result()
		if errors.Is(err, goredis.Nil) {
			_ = q.rdb.ZRem(ctx, recurringSet, pair).Err()
			continue
		}
		if err != nil {
			return fmt.Errorf("queue: recurring %s: %w", pair, err)
		}
		var entry recurringEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return fmt.Errorf("queue: recurring %s: %w", pair, err)
		}
		if _, err := q.Enqueue(ctx, entry.Job); err != nil {
			return err
		}
		next := float64(q.now().Add(entry.Every).UnixMilli())
		if err := q.rdb.ZAdd(ctx, recurringSet, goredis.Z{Score: next, Member: pair}).Err(); err != nil {
			return fmt.Errorf("queue: reschedule %s: %w", pair, err)
		}
	}
	return nil
}

// pop takes the next pending job id, marks it active, and returns its record.
// It returns (nil, nil) when the queue is empty.
func (q *Queue) pop(ctx context.Context) (*domain.JobRecord, error) {
	id, err := q.rdb.RPop(ctx, pendingKey).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("queue: pop: %w", err)
	}

	rec, err := q.readRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		// Record expired or drained while the id sat in the list.
		return nil, nil
	}

	rec.State = domain.JobActive
	rec.Attempts++
	if err := q.writeRecord(ctx, rec, 0); err != nil {
		return nil, err
	}
	if err := q.rdb.SAdd(ctx, activeKey, id).Err(); err != nil {
		return nil, fmt.Errorf("queue: mark active %s: %w", id, err)
	}
	return rec, nil
}

// requeueDelayed schedules a failed attempt's retry.
func (q *Queue) requeueDelayed(ctx context.Context, rec *domain.JobRecord, delay time.Duration, cause error) error {
	rec.State = domain.JobDelayed
	rec.LastError = cause.Error()
	if err := q.writeRecord(ctx, rec, 0); err != nil {
		return err
	}
	readyAt := float64(q.now().Add(delay).UnixMilli())
	pipe := q.rdb.TxPipeline()
	pipe.SRem(ctx, activeKey, rec.ID)
	pipe.ZAdd(ctx, delayedKey, goredis.Z{Score: readyAt, Member: rec.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("queue: delay %s: %w", rec.ID, err)
	}
	return nil
}

// finish records a terminal state and applies the retention policy.
func (q *Queue) finish(ctx context.Context, rec *domain.JobRecord, cause error) error {
	rec.FinishedAt = q.now().UTC()

	listKey := completedKey
	retain := int64(completedRetainCount)
	ttl := completedRetainAge
	if cause != nil {
		rec.State = domain.JobFailed
		rec.LastError = cause.Error()
		listKey = failedKey
		retain = failedRetainCount
		ttl = 0
	} else {
		rec.State = domain.JobCompleted
		rec.LastError = ""
		rec.Progress = 100
	}

	if err := q.writeRecord(ctx, rec, ttl); err != nil {
		return err
	}
	pipe := q.rdb.TxPipeline()
	pipe.SRem(ctx, activeKey, rec.ID)
	pipe.LPush(ctx, listKey, rec.ID)
	pipe.LTrim(ctx, listKey, 0, retain-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("queue: finish %s: %w", rec.ID, err)
	}
	return nil
}

// setProgress persists a progress milestone on the active record.
func (q *Queue) setProgress(ctx context.Context, rec *domain.JobRecord, progress int) {
	rec.Progress = progress
	_ = q.writeRecord(ctx, rec, 0)
}

func (q *Queue) writeRecord(ctx context.Context, rec *domain.JobRecord, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("queue: marshal job %s: %w", rec.ID, err)
	}
	if err := q.rdb.Set(ctx, jobKey(rec.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("queue: store job %s: %w", rec.ID, err)
	}
	return nil
}

func (q *Queue) readRecord(ctx context.Context, id string) (*domain.JobRecord, error) {
	data, err := q.rdb.Get(ctx, jobKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("queue: load job %s: %w", id, err)
	}
	var rec domain.JobRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("queue: decode job %s: %w", id, err)
	}
	return &rec, nil
}

// Job returns a stored job record by id, or (nil, nil) when unknown.
func (q *Queue) Job(ctx context.Context, id string) (*domain.JobRecord, error) {
	return q.readRecord(ctx, id)
}

// Compile-time interface check.
var _ domain.JobQueue = (*Queue)(nil)
