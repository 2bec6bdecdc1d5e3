// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ManuGH/waitlistd/internal/domain/waitlist/model"
	"github.com/ManuGH/waitlistd/internal/log"
	"github.com/ManuGH/waitlistd/internal/platform/httpx"
)

// createEventRequest is the body posted to the external calendar API's
// event-creation endpoint.
type createEventRequest struct {
	StaffID      string `json:"staff_id"`
	Summary      string `json:"summary"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	CustomerName string `json:"customer_name"`
}

type createEventResponse struct {
	EventID string `json:"event_id"`
}

// HTTPProvider implements Provider against a REST calendar API reachable
// at baseURL (e.g. a tenant's Google Calendar proxy or CalDAV bridge). It
// is the one Provider implementation waitlistd ships; a tenant wiring a
// different backend supplies its own Provider.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

// NewHTTPProvider returns an HTTPProvider posting against baseURL. An empty
// baseURL is left as-is (no provider configured); a non-empty one is
// validated and host-normalized, logging a warning rather than failing if
// malformed, since this is read once at startup from an operator-supplied
// config value.
func NewHTTPProvider(baseURL string) *HTTPProvider {
	if baseURL != "" {
		if normalized, err := httpx.ValidateOutboundURL(baseURL); err != nil {
			log.WithComponent("calendar").Warn().Err(err).Str("url", baseURL).Msg("calendar base url failed validation, using as configured")
		} else {
			baseURL = normalized
		}
	}
	return &HTTPProvider{baseURL: baseURL, client: httpx.NewClient(0)}
}

var _ Provider = (*HTTPProvider)(nil)

// CreateEvent posts a new calendar event and returns its external ID.
func (p *HTTPProvider) CreateEvent(ctx context.Context, staffID string, slot model.Slot, booking model.Booking) (string, error) {
	reqBody, err := json.Marshal(createEventRequest{
		StaffID:      staffID,
		Summary:      fmt.Sprintf("%s: %s", slot.ServiceID, booking.CustomerName),
		StartTime:    slot.StartTime.Format(httpxTimeLayout),
		EndTime:      slot.EndTime.Format(httpxTimeLayout),
		CustomerName: booking.CustomerName,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/events", bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("calendar provider: create event: unexpected status %d: %s", resp.StatusCode, body)
	}

	var out createEventResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("calendar provider: decode create response: %w", err)
	}
	return out.EventID, nil
}

// DeleteEvent removes a previously-created calendar event by its external
// ID.
func (p *HTTPProvider) DeleteEvent(ctx context.Context, externalEventID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, p.baseURL+"/events/"+externalEventID, nil)
	if err != nil {
		return err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return fmt.Errorf("calendar provider: delete event: unexpected status %d: %s", resp.StatusCode, body)
	}
	return nil
}

const httpxTimeLayout = "2006-01-02T15:04:05Z07:00"
