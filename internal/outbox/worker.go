// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package outbox

import (
	"context"
	"time"

	"github.com/ManuGH/waitlistd/internal/log"
)

// Handler processes one job's payload. A returned error causes a Retry with
// backoff; nil marks the job Complete.
type Handler func(ctx context.Context, job Job) error

// Worker drains a Queue on an interval, dispatching each claimed job to the
// Handler registered for its Type.
type Worker struct {
	queue    *Queue
	handlers map[string]Handler
	interval time.Duration
	pageSize int
	maxDelay time.Duration
}

// NewWorker returns a Worker bound to queue, polling every interval.
func NewWorker(queue *Queue, interval time.Duration, pageSize int) *Worker {
	if pageSize <= 0 {
		pageSize = 25
	}
	return &Worker{
		queue:    queue,
		handlers: make(map[string]Handler),
		interval: interval,
		pageSize: pageSize,
		maxDelay: 10 * time.Minute,
	}
}

// Register binds a Handler to a job Type.
func (w *Worker) Register(jobType string, h Handler) {
	w.handlers[jobType] = h
}

// Run starts the poll loop.
func (w *Worker) Run(ctx context.Context) {
	if w.interval <= 0 {
		return
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.TickOnce(ctx)
		}
	}
}

// TickOnce claims and dispatches one batch of due jobs, returning how many
// completed successfully.
func (w *Worker) TickOnce(ctx context.Context) int {
	jobs, err := w.queue.Claim(ctx, time.Now(), w.pageSize)
	if err != nil {
		log.WithComponent("outbox").Error().Err(err).Msg("claim failed")
		return 0
	}

	completed := 0
	for _, job := range jobs {
		handler, ok := w.handlers[job.Type]
		if !ok {
			log.WithComponent("outbox").Warn().Str("job_type", job.Type).Msg("no handler registered, dropping job")
			_ = w.queue.Complete(ctx, job)
			continue
		}

		if err := handler(ctx, job); err != nil {
			delay := backoffDelay(job.Attempts, w.maxDelay)
			if retryErr := w.queue.Retry(ctx, job, delay, err); retryErr != nil {
				log.WithComponent("outbox").Error().Err(retryErr).Str("job_id", job.ID).Msg("failed to reschedule job")
			}
			continue
		}
		if err := w.queue.Complete(ctx, job); err != nil {
			log.WithComponent("outbox").Error().Err(err).Str("job_id", job.ID).Msg("failed to mark job complete")
			continue
		}
		completed++
	}
	return completed
}

// backoffDelay doubles per attempt starting at 30s, capped at max.
func backoffDelay(attempts int, max time.Duration) time.Duration {
	delay := 30 * time.Second
	for i := 0; i < attempts; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	return delay
}
