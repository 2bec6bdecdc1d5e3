// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package fsm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ManuGH/waitlistd/internal/domain/waitlist/model"
)

func TestSlotDecisionFor_HoldFromOpen(t *testing.T) {
	d := SlotDecisionFor(model.SlotOpen, SlotEvHold)
	assert.True(t, d.Allowed)
	assert.Equal(t, model.SlotHeld, d.To)
}

func TestSlotDecisionFor_ConfirmFromHeld(t *testing.T) {
	d := SlotDecisionFor(model.SlotHeld, SlotEvConfirm)
	assert.True(t, d.Allowed)
	assert.Equal(t, model.SlotBooked, d.To)
}

func TestSlotDecisionFor_DeclineAndExpireBothReturnToOpen(t *testing.T) {
	assert.Equal(t, model.SlotOpen, mustAllow(t, SlotDecisionFor(model.SlotHeld, SlotEvDecline)))
	assert.Equal(t, model.SlotOpen, mustAllow(t, SlotDecisionFor(model.SlotHeld, SlotEvExpire)))
}

func TestSlotDecisionFor_CancelFromOpenOrHeld(t *testing.T) {
	assert.Equal(t, model.SlotCanceled, mustAllow(t, SlotDecisionFor(model.SlotOpen, SlotEvCancel)))
	assert.Equal(t, model.SlotCanceled, mustAllow(t, SlotDecisionFor(model.SlotHeld, SlotEvCancel)))
}

func TestSlotDecisionFor_TerminalStatesRejectEverything(t *testing.T) {
	for _, ev := range []SlotEvent{SlotEvHold, SlotEvConfirm, SlotEvDecline, SlotEvExpire, SlotEvAdminReopen, SlotEvCancel} {
		d := SlotDecisionFor(model.SlotBooked, ev)
		assert.False(t, d.Allowed, "booked should reject %s", ev)
		assert.Equal(t, ReasonAlreadyTerminal, d.Reason)

		d = SlotDecisionFor(model.SlotCanceled, ev)
		assert.False(t, d.Allowed, "canceled should reject %s", ev)
		assert.Equal(t, ReasonAlreadyTerminal, d.Reason)
	}
}

func TestSlotDecisionFor_ConfirmFromOpenIsForbidden(t *testing.T) {
	d := SlotDecisionFor(model.SlotOpen, SlotEvConfirm)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonNotInExpectedFrom, d.Reason)
}

func TestCancelableFrom(t *testing.T) {
	assert.True(t, CancelableFrom(model.SlotOpen))
	assert.True(t, CancelableFrom(model.SlotHeld))
	assert.False(t, CancelableFrom(model.SlotBooked))
	assert.False(t, CancelableFrom(model.SlotCanceled))
}

func mustAllow(t *testing.T, d SlotDecision) model.SlotStatus {
	t.Helper()
	if !d.Allowed {
		t.Fatalf("expected decision to be allowed, got forbidden: %s", d.Reason)
	}
	return d.To
}
