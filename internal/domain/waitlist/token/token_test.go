// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/waitlistd/internal/domain/waitlist/model"
)

func TestCodec_IssueAndVerify_RoundTrips(t *testing.T) {
	c := NewCodec([]byte("test-signing-key"), 15*time.Minute)
	now := time.Now()

	tok, err := c.Issue("tenant-1", "slot-1", "entry-1", model.TokenConfirm, now)
	require.NoError(t, err)

	claims, err := c.Verify(tok, model.TokenConfirm, "tenant-1", now)
	require.NoError(t, err)
	assert.Equal(t, "slot-1", claims.SlotID)
	assert.Equal(t, "entry-1", claims.EntryID)
}

func TestCodec_Verify_RejectsTamperedSignature(t *testing.T) {
	c := NewCodec([]byte("key-a"), 15*time.Minute)
	other := NewCodec([]byte("key-b"), 15*time.Minute)
	now := time.Now()

	tok, err := c.Issue("tenant-1", "slot-1", "entry-1", model.TokenConfirm, now)
	require.NoError(t, err)

	_, err = other.Verify(tok, model.TokenConfirm, "tenant-1", now)
	assert.ErrorIs(t, err, ErrInvalidSig)
}

func TestCodec_Verify_RejectsExpired(t *testing.T) {
	c := NewCodec([]byte("key"), time.Minute)
	now := time.Now()

	tok, err := c.Issue("tenant-1", "slot-1", "entry-1", model.TokenDecline, now)
	require.NoError(t, err)

	_, err = c.Verify(tok, model.TokenDecline, "tenant-1", now.Add(2*time.Minute))
	assert.ErrorIs(t, err, ErrExpired)
}

func TestCodec_Verify_RejectsWrongAction(t *testing.T) {
	c := NewCodec([]byte("key"), 15*time.Minute)
	now := time.Now()

	tok, err := c.Issue("tenant-1", "slot-1", "entry-1", model.TokenConfirm, now)
	require.NoError(t, err)

	_, err = c.Verify(tok, model.TokenDecline, "tenant-1", now)
	assert.ErrorIs(t, err, ErrActionMismatch)
}

func TestCodec_Verify_RejectsWrongTenant(t *testing.T) {
	c := NewCodec([]byte("key"), 15*time.Minute)
	now := time.Now()

	tok, err := c.Issue("tenant-1", "slot-1", "entry-1", model.TokenConfirm, now)
	require.NoError(t, err)

	_, err = c.Verify(tok, model.TokenConfirm, "tenant-2", now)
	assert.ErrorIs(t, err, ErrTenantMismatch)
}

func TestCodec_Verify_RejectsMalformedToken(t *testing.T) {
	c := NewCodec([]byte("key"), 15*time.Minute)

	_, err := c.Verify("not-a-token", model.TokenConfirm, "tenant-1", time.Now())
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestHash_IsDeterministicAndDistinguishesTokens(t *testing.T) {
	h1 := Hash("token-a")
	h2 := Hash("token-a")
	h3 := Hash("token-b")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
}
