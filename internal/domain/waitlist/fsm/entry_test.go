// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package fsm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ManuGH/waitlistd/internal/domain/waitlist/model"
)

func TestEntryDecisionFor_NotifyFromActive(t *testing.T) {
	d := EntryDecisionFor(model.EntryActive, EntryEvNotify)
	assert.True(t, d.Allowed)
	assert.Equal(t, model.EntryNotified, d.To)
}

func TestEntryDecisionFor_CascadeReturnsToActive(t *testing.T) {
	d := EntryDecisionFor(model.EntryNotified, EntryEvCascade)
	assert.True(t, d.Allowed)
	assert.Equal(t, model.EntryActive, d.To)
}

func TestEntryDecisionFor_ConfirmFromNotified(t *testing.T) {
	d := EntryDecisionFor(model.EntryNotified, EntryEvConfirm)
	assert.True(t, d.Allowed)
	assert.Equal(t, model.EntryConfirmed, d.To)
}

func TestEntryDecisionFor_RemoveReachableFromActiveNotifiedConfirmed(t *testing.T) {
	for _, from := range []model.EntryStatus{model.EntryActive, model.EntryNotified, model.EntryConfirmed} {
		d := EntryDecisionFor(from, EntryEvRemove)
		assert.Truef(t, d.Allowed, "remove should be allowed from %s", from)
		assert.Equal(t, model.EntryRemoved, d.To)
	}
}

func TestEntryDecisionFor_RemovedIsTerminal(t *testing.T) {
	for _, ev := range []EntryEvent{EntryEvNotify, EntryEvCascade, EntryEvConfirm, EntryEvRemove} {
		d := EntryDecisionFor(model.EntryRemoved, ev)
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonAlreadyTerminal, d.Reason)
	}
}

func TestEntryDecisionFor_DoubleNotifyForbidden(t *testing.T) {
	d := EntryDecisionFor(model.EntryNotified, EntryEvNotify)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonNotInExpectedFrom, d.Reason)
}
