// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package outbox implements a durable, badger-backed job queue that
// decouples best-effort side effects (notification sends, calendar syncs)
// from the core state-transition transaction (SPEC_FULL.md §3's outbox
// pattern). A job enqueued here survives a process restart; the engine's
// state transition itself never blocks on delivery.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Job is a unit of best-effort work: a notification send or a calendar
// sync, identified by Type and carrying an opaque Payload the Worker
// interprets.
type Job struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Payload       json.RawMessage `json:"payload"`
	Attempts      int             `json:"attempts"`
	CreatedAt     time.Time       `json:"created_at"`
	NextAttemptAt time.Time       `json:"next_attempt_at"`
	LastError     string          `json:"last_error,omitempty"`
}

// recordKey is where the job's JSON body lives: "job:<id>".
func recordKey(id string) []byte { return []byte("job:" + id) }

// dueKey indexes jobs by when they next become eligible for delivery, so a
// prefix scan in key order yields the most-overdue job first:
// "due:<unix-nano, zero-padded>:<id>".
func dueKey(nextAttemptAt time.Time, id string) []byte {
	return []byte(fmt.Sprintf("due:%020d:%s", nextAttemptAt.UnixNano(), id))
}

// Queue is a durable FIFO-by-due-time job queue backed by badger.
type Queue struct {
	db *badger.DB
}

// Open opens (creating if needed) a badger-backed queue at path.
func Open(path string) (*Queue, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Queue{db: db}, nil
}

// Close releases the underlying badger database.
func (q *Queue) Close() error { return q.db.Close() }

// Enqueue persists a new job, due immediately unless delay > 0.
func (q *Queue) Enqueue(_ context.Context, id, jobType string, payload any, delay time.Duration) error {
	now := time.Now()
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job := Job{
		ID:            id,
		Type:          jobType,
		Payload:       body,
		CreatedAt:     now,
		NextAttemptAt: now.Add(delay),
	}
	return q.put(job)
}

func (q *Queue) put(job Job) error {
	buf, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(recordKey(job.ID), buf); err != nil {
			return err
		}
		return txn.Set(dueKey(job.NextAttemptAt, job.ID), []byte(job.ID))
	})
}

// Claim returns up to limit jobs whose NextAttemptAt has passed, ordered by
// how overdue they are. Claim does not remove jobs from the queue — the
// caller must call Complete or Retry once it knows the outcome, matching
// the teacher's Badger store's pattern of a scan-then-mutate pass rather
// than an atomic pop (see ScanSessions in the teacher's badger store).
func (q *Queue) Claim(ctx context.Context, now time.Time, limit int) ([]Job, error) {
	var out []Job
	err := q.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte("due:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if limit > 0 && len(out) >= limit {
				break
			}

			var id []byte
			item := it.Item()
			if err := item.Value(func(val []byte) error {
				id = append(id[:0], val...)
				return nil
			}); err != nil {
				continue
			}

			recItem, err := txn.Get(recordKey(string(id)))
			if err != nil {
				continue
			}
			var job Job
			if err := recItem.Value(func(val []byte) error {
				return json.Unmarshal(val, &job)
			}); err != nil {
				continue
			}
			if job.NextAttemptAt.After(now) {
				// due: keys are in ascending time order; nothing past this
				// point is eligible yet.
				break
			}
			out = append(out, job)
		}
		return nil
	})
	return out, err
}

// Complete removes a successfully delivered job from the queue.
func (q *Queue) Complete(_ context.Context, job Job) error {
	return q.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(recordKey(job.ID)); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		return txn.Delete(dueKey(job.NextAttemptAt, job.ID))
	})
}

// Retry reschedules job after delay, bumping Attempts and recording
// lastErr. The stale due-index entry is removed first since dueKey embeds
// the old NextAttemptAt.
func (q *Queue) Retry(_ context.Context, job Job, delay time.Duration, lastErr error) error {
	staleDueKey := dueKey(job.NextAttemptAt, job.ID)
	job.Attempts++
	job.NextAttemptAt = time.Now().Add(delay)
	if lastErr != nil {
		job.LastError = lastErr.Error()
	}

	buf, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(staleDueKey); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		if err := txn.Set(recordKey(job.ID), buf); err != nil {
			return err
		}
		return txn.Set(dueKey(job.NextAttemptAt, job.ID), []byte(job.ID))
	})
}
