// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across waitlistd.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	// Waitlist domain attributes
	TenantIDKey = "waitlist.tenant_id"
	SlotIDKey   = "waitlist.slot_id"
	EntryIDKey  = "waitlist.entry_id"

	// Hold attributes
	HoldTTLSecondsKey = "hold.ttl_seconds"
	HoldExpiredKey    = "hold.expired"

	// Cascade attributes
	CascadeFanoutKKey       = "cascade.fanout_k"
	CascadeNotifiedKey      = "cascade.notified_count"
	CascadeCandidatesSeenKey = "cascade.candidates_seen"

	// Notification attributes
	NotifyChannelKey = "notify.channel"
	NotifyAttemptKey = "notify.attempt"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// WaitlistAttributes creates the tenant/slot/entry identifying attributes
// every waitlist-engine span carries.
func WaitlistAttributes(tenantID, slotID, entryID string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if tenantID != "" {
		attrs = append(attrs, attribute.String(TenantIDKey, tenantID))
	}
	if slotID != "" {
		attrs = append(attrs, attribute.String(SlotIDKey, slotID))
	}
	if entryID != "" {
		attrs = append(attrs, attribute.String(EntryIDKey, entryID))
	}
	return attrs
}

// HoldAttributes creates hold-lifecycle span attributes.
func HoldAttributes(ttlSeconds int64, expired bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64(HoldTTLSecondsKey, ttlSeconds),
		attribute.Bool(HoldExpiredKey, expired),
	}
}

// CascadeAttributes creates Cascade Protocol span attributes.
func CascadeAttributes(fanoutK, notified, candidatesSeen int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(CascadeFanoutKKey, fanoutK),
		attribute.Int(CascadeNotifiedKey, notified),
		attribute.Int(CascadeCandidatesSeenKey, candidatesSeen),
	}
}

// NotifyAttributes creates notification-dispatch span attributes.
func NotifyAttributes(channel string, attempt int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(NotifyChannelKey, channel),
		attribute.Int(NotifyAttemptKey, attempt),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
