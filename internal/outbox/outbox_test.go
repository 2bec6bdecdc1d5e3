// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestQueue(t *testing.T) *Queue {
	t.Helper()
	q, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func TestQueue_EnqueueAndClaim(t *testing.T) {
	q := openTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "job-1", "notify", map[string]string{"entry_id": "e1"}, 0))

	jobs, err := q.Claim(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "job-1", jobs[0].ID)
	assert.Equal(t, "notify", jobs[0].Type)
}

func TestQueue_DelayedJobNotClaimedEarly(t *testing.T) {
	q := openTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "job-1", "notify", map[string]string{}, time.Hour))

	jobs, err := q.Claim(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestQueue_CompleteRemovesJob(t *testing.T) {
	q := openTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "job-1", "notify", map[string]string{}, 0))
	jobs, err := q.Claim(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	require.NoError(t, q.Complete(ctx, jobs[0]))

	jobs, err = q.Claim(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestQueue_RetryReschedulesWithDelay(t *testing.T) {
	q := openTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "job-1", "notify", map[string]string{}, 0))
	jobs, err := q.Claim(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	require.NoError(t, q.Retry(ctx, jobs[0], time.Hour, errors.New("transient")))

	jobs, err = q.Claim(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	jobs, err = q.Claim(ctx, time.Now().Add(2*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, 1, jobs[0].Attempts)
	assert.Equal(t, "transient", jobs[0].LastError)
}

func TestWorker_TickOnce_CompletesSuccessfulJob(t *testing.T) {
	q := openTestQueue(t)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, "job-1", "notify", map[string]string{}, 0))

	w := NewWorker(q, time.Minute, 10)
	var handled int
	w.Register("notify", func(_ context.Context, _ Job) error {
		handled++
		return nil
	})

	completed := w.TickOnce(ctx)
	assert.Equal(t, 1, completed)
	assert.Equal(t, 1, handled)

	jobs, err := q.Claim(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestWorker_TickOnce_RetriesFailedJob(t *testing.T) {
	q := openTestQueue(t)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, "job-1", "notify", map[string]string{}, 0))

	w := NewWorker(q, time.Minute, 10)
	w.Register("notify", func(_ context.Context, _ Job) error {
		return errors.New("send failed")
	})

	completed := w.TickOnce(ctx)
	assert.Equal(t, 0, completed)

	jobs, err := q.Claim(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, jobs) // rescheduled into the future
}

func TestWorker_TickOnce_DropsUnregisteredJobType(t *testing.T) {
	q := openTestQueue(t)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, "job-1", "unknown_type", map[string]string{}, 0))

	w := NewWorker(q, time.Minute, 10)
	completed := w.TickOnce(ctx)
	assert.Equal(t, 0, completed)

	jobs, err := q.Claim(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}
