// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package notify

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/ManuGH/waitlistd/internal/outbox"
)

// JobTypeSend is the outbox.Job.Type a QueuedTransport enqueues and the
// outbox.Worker handler registered by RegisterSendHandler dispatches.
const JobTypeSend = "notify_send"

// sendJobPayload is the outbox-persisted form of a Transport.Send call.
type sendJobPayload struct {
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
	Body  string `json:"body"`
}

// QueuedTransport implements Transport by durably enqueuing the send onto
// an outbox.Queue instead of calling a provider inline: a process restart
// between Dispatcher.Notify returning and the provider call completing
// would otherwise silently drop the notification (SPEC_FULL.md §3's outbox
// pattern). The actual delivery happens out-of-band via the handler
// RegisterSendHandler registers on the outbox.Worker.
type QueuedTransport struct {
	queue *outbox.Queue
}

// NewQueuedTransport returns a QueuedTransport backed by queue.
func NewQueuedTransport(queue *outbox.Queue) *QueuedTransport {
	return &QueuedTransport{queue: queue}
}

var _ Transport = (*QueuedTransport)(nil)

// Send enqueues the rendered message for durable, out-of-band delivery. It
// returns the job ID as the provisional message ID; the real
// provider-assigned ID (if any) is only known to the handler that
// eventually delivers it.
func (t *QueuedTransport) Send(ctx context.Context, toPhone, toEmail, body string) (string, error) {
	id := uuid.NewString()
	payload := sendJobPayload{Phone: toPhone, Email: toEmail, Body: body}
	if err := t.queue.Enqueue(ctx, id, JobTypeSend, payload, 0); err != nil {
		return "", err
	}
	return id, nil
}

// RegisterSendHandler binds JobTypeSend jobs on worker to deliver through
// transport, the inverse of QueuedTransport.Send.
func RegisterSendHandler(worker *outbox.Worker, transport Transport) {
	worker.Register(JobTypeSend, func(ctx context.Context, job outbox.Job) error {
		var payload sendJobPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return err
		}
		_, err := transport.Send(ctx, payload.Phone, payload.Email, payload.Body)
		return err
	})
}
