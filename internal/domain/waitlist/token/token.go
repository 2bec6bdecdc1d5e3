// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package token implements the opaque, signed confirm/decline tokens spec
// §4.4 attaches to every notification. Each token is an HMAC-SHA256-signed,
// base64url-encoded payload carrying (tenant_id, slot_id, entry_id, action,
// iat, exp) — signature verified before any claim is trusted, following the
// teacher's HS256 JWT-handling discipline (signature first, then strict
// claim checks, constant-time compare).
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/ManuGH/waitlistd/internal/domain/waitlist/model"
)

var (
	ErrMalformed      = errors.New("token malformed")
	ErrInvalidSig     = errors.New("token signature invalid")
	ErrExpired        = errors.New("token expired")
	ErrNotYetValid    = errors.New("token not yet valid")
	ErrActionMismatch = errors.New("token action does not match requested action")
	ErrTenantMismatch = errors.New("token tenant does not match request")
)

// Claims is the signed payload carried by a confirm/decline token.
type Claims struct {
	TenantID string            `json:"tid"`
	SlotID   string            `json:"sid"`
	EntryID  string            `json:"eid"`
	Action   model.TokenAction `json:"act"`
	IssuedAt int64             `json:"iat"`
	Expires  int64             `json:"exp"`
}

// Codec signs and verifies confirm/decline tokens with a process-owned key.
type Codec struct {
	key []byte
	ttl time.Duration
}

// NewCodec returns a Codec. ttl bounds how long an issued token remains
// valid; spec §4.4 requires ttl >= hold TTL + a small skew so a token
// outlives the hold it authorizes against races with the Hold Ticker.
func NewCodec(key []byte, ttl time.Duration) *Codec {
	return &Codec{key: key, ttl: ttl}
}

// Issue mints a signed token for the given claims, stamping IssuedAt/Expires
// from now and the codec's configured ttl.
func (c *Codec) Issue(tenantID, slotID, entryID string, action model.TokenAction, now time.Time) (string, error) {
	claims := Claims{
		TenantID: tenantID,
		SlotID:   slotID,
		EntryID:  entryID,
		Action:   action,
		IssuedAt: now.Unix(),
		Expires:  now.Add(c.ttl).Unix(),
	}
	return c.sign(claims)
}

func (c *Codec) sign(claims Claims) (string, error) {
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	encodedPayload := base64.RawURLEncoding.EncodeToString(payload)

	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(encodedPayload))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	return encodedPayload + "." + sig, nil
}

// Verify checks signature, then TTL, then the expected action and tenant,
// returning the embedded claims on success. Signature is checked before any
// claim is decoded for use, and the comparison is constant-time.
func (c *Codec) Verify(tok string, expectedAction model.TokenAction, expectedTenantID string, now time.Time) (Claims, error) {
	encodedPayload, sig, ok := splitToken(tok)
	if !ok {
		return Claims{}, ErrMalformed
	}

	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(encodedPayload))
	expectedSig := mac.Sum(nil)

	actualSig, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return Claims{}, ErrInvalidSig
	}
	if !hmac.Equal(expectedSig, actualSig) {
		return Claims{}, ErrInvalidSig
	}

	payload, err := base64.RawURLEncoding.DecodeString(encodedPayload)
	if err != nil {
		return Claims{}, ErrMalformed
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Claims{}, ErrMalformed
	}

	nowUnix := now.Unix()
	if nowUnix > claims.Expires {
		return Claims{}, ErrExpired
	}
	if nowUnix < claims.IssuedAt {
		return Claims{}, ErrNotYetValid
	}
	if claims.Action != expectedAction {
		return Claims{}, ErrActionMismatch
	}
	if claims.TenantID != expectedTenantID {
		return Claims{}, ErrTenantMismatch
	}

	return claims, nil
}

func splitToken(tok string) (payload, sig string, ok bool) {
	for i := len(tok) - 1; i >= 0; i-- {
		if tok[i] == '.' {
			return tok[:i], tok[i+1:], true
		}
	}
	return "", "", false
}

// Hash returns a value safe to store alongside the Notification row
// (spec §3's "tokens (hash)") instead of the raw token.
func Hash(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
