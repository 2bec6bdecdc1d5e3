// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package notify

import (
	"context"

	"github.com/cenkalti/backoff/v5"

	"github.com/ManuGH/waitlistd/internal/domain/waitlist/engine"
	"github.com/ManuGH/waitlistd/internal/log"
)

// maxAttempts bounds the dispatcher's retry budget per notification (spec
// §4.7: "bounded exponential retry, cap 3 attempts").
const maxAttempts = 3

// Transport delivers a rendered message body to a customer over one
// channel. Implementations wrap a concrete provider (SMS gateway, SMTP
// relay, voice API); the dispatcher is transport-agnostic.
type Transport interface {
	Send(ctx context.Context, toPhone, toEmail, body string) (providerMessageID string, err error)
}

// Dispatcher implements engine.Notifier: it renders the hold-notification
// template and sends it through Transport with bounded retry.
type Dispatcher struct {
	transport Transport
	services  ServiceLookup
	staff     StaffLookup
}

// ServiceLookup resolves a service's display name/price for templating.
type ServiceLookup interface {
	ServiceName(ctx context.Context, tenantID, serviceID string) (name string, priceCents int64, err error)
}

// StaffLookup resolves a staff member's display name for templating.
type StaffLookup interface {
	StaffName(ctx context.Context, tenantID, staffID string) (string, error)
}

// New returns a Dispatcher.
func New(transport Transport, services ServiceLookup, staff StaffLookup) *Dispatcher {
	return &Dispatcher{transport: transport, services: services, staff: staff}
}

var _ engine.Notifier = (*Dispatcher)(nil)

// Notify renders the notification body and sends it with up to maxAttempts
// tries, exponential backoff between tries. A send error is returned only
// once every attempt has been exhausted; a service lookup or render error
// is returned before any send is tried. The caller (engine.notifyCandidate)
// records the outcome on the Notification row either way.
func (d *Dispatcher) Notify(ctx context.Context, req engine.NotificationRequest) error {
	name, price, err := d.services.ServiceName(ctx, req.TenantID, req.Slot.ServiceID)
	if err != nil {
		return err
	}
	staffName := ""
	if req.Slot.StaffID != "" && d.staff != nil {
		staffName, _ = d.staff.StaffName(ctx, req.TenantID, req.Slot.StaffID)
	}

	data := TemplateData{
		CustomerName: req.Entry.CustomerName,
		ServiceName:  name,
		StaffName:    staffName,
		Date:         req.Slot.StartTime.Format("Mon Jan 2"),
		Time:         req.Slot.StartTime.Format("3:04 PM"),
		Duration:     req.Slot.Duration().String(),
		Price:        formatCents(price),
		ConfirmLink:  req.ConfirmToken,
		DeclineLink:  req.DeclineToken,
	}
	body, err := Render(nil, data)
	if err != nil {
		return err
	}

	op := func() (string, error) {
		id, sendErr := d.transport.Send(ctx, req.Entry.Phone, req.Entry.Email, body)
		if sendErr != nil {
			return "", sendErr
		}
		return id, nil
	}

	_, err = backoff.Retry(ctx, op,
		backoff.WithMaxTries(maxAttempts),
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
	)
	if err != nil {
		log.WithComponent("notify").Warn().Err(err).
			Str("tenant_id", req.TenantID).Str("entry_id", req.Entry.ID).
			Msg("notification send exhausted retries")
		return err
	}
	return nil
}

// Permanent wraps an error that should not be retried (e.g. an invalid
// phone number), matching backoff.Permanent's contract.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
