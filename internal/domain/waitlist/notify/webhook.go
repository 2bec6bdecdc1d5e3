// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ManuGH/waitlistd/internal/log"
	"github.com/ManuGH/waitlistd/internal/platform/httpx"
)

// webhookPayload is the body posted to the configured provider webhook —
// a generic shape any SMS/email gateway's inbound relay can map onto its
// own API without waitlistd needing a provider-specific client per tenant.
type webhookPayload struct {
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
	Body  string `json:"body"`
}

type webhookResponse struct {
	MessageID string `json:"message_id"`
}

// WebhookTransport implements Transport by POSTing to a single configured
// webhook URL — the "bring your own SMS/email gateway" integration point
// spec §4.7 leaves as an external concern.
type WebhookTransport struct {
	url    string
	client *http.Client
}

// NewWebhookTransport returns a WebhookTransport posting to url with a
// hardened client (httpx.NewClient's dial/header/idle timeouts). An empty
// url is left as-is (no provider configured); a non-empty one is
// validated and host-normalized, logging a warning rather than failing if
// malformed, since this is read once at startup from an operator-supplied
// config value.
func NewWebhookTransport(rawURL string) *WebhookTransport {
	if rawURL != "" {
		if normalized, err := httpx.ValidateOutboundURL(rawURL); err != nil {
			log.WithComponent("notify").Warn().Err(err).Str("url", rawURL).Msg("webhook url failed validation, using as configured")
		} else {
			rawURL = normalized
		}
	}
	return &WebhookTransport{url: rawURL, client: httpx.NewClient(0)}
}

// Send posts the rendered body to the webhook and returns the provider's
// reported message ID. A non-2xx response is treated as a transient
// failure so the caller's retry budget (Dispatcher's backoff, or the
// outbox worker's redelivery) applies.
func (t *WebhookTransport) Send(ctx context.Context, toPhone, toEmail, body string) (string, error) {
	buf, err := json.Marshal(webhookPayload{Phone: toPhone, Email: toEmail, Body: body})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("notify webhook: unexpected status %d: %s", resp.StatusCode, respBody)
	}

	var out webhookResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("notify webhook: decode response: %w", err)
	}
	return out.MessageID, nil
}
