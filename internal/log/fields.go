// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldTenantID       = "tenant_id"
	FieldSlotID         = "slot_id"
	FieldEntryID        = "entry_id"
	FieldBookingID      = "booking_id"
	FieldNotificationID = "notification_id"
	FieldCorrelationID  = "correlation_id"
	FieldRequestID      = "request_id"
	FieldClientRequestID = "client_request_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Domain fields
	FieldReason       = "reason"
	FieldReasonDetail = "reason_detail"
	FieldPhone        = "phone"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
)
