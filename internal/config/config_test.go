// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_PassValidation(t *testing.T) {
	require.NoError(t, Validate(Defaults()))
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("WAITLISTD_CASCADE_FANOUT_K", "9")
	t.Setenv("WAITLISTD_HOLD_TTL", "20m")

	l := NewLoader("")
	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.CascadeFanoutK)
	assert.Equal(t, 20*time.Minute, cfg.HoldTTL)
}

func TestLoad_FileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "waitlistd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cascadeFanoutK: 7\nholdTTL: 10m\n"), 0o600))

	t.Setenv("WAITLISTD_CASCADE_FANOUT_K", "3")

	l := NewLoader(path)
	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.CascadeFanoutK, "ENV must win over file")
	assert.Equal(t, 10*time.Minute, cfg.HoldTTL, "file value preserved when ENV absent")
}

func TestLoad_RejectsConfirmTokenTTLBelowHoldTTLPlusGrace(t *testing.T) {
	t.Setenv("WAITLISTD_HOLD_TTL", "30m")
	t.Setenv("WAITLISTD_CONFIRM_TOKEN_TTL", "31m")

	l := NewLoader("")
	_, err := l.Load()
	require.Error(t, err)
}

func TestHolder_Reload_AppliesOnlyHotReloadableFields(t *testing.T) {
	initial := Defaults()
	dir := t.TempDir()
	path := filepath.Join(dir, "waitlistd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cascadeFanoutK: 11\nstoreDSN: should-not-apply\n"), 0o600))

	h := NewHolder(initial, NewLoader(path))
	require.NoError(t, h.Reload(context.Background()))

	got := h.Get()
	assert.Equal(t, 11, got.CascadeFanoutK)
	assert.Equal(t, initial.StoreDSN, got.StoreDSN, "StoreDSN requires a restart, reload must not touch it")
}

func TestHolder_Reload_KeepsPreviousConfigOnValidationFailure(t *testing.T) {
	initial := Defaults()
	dir := t.TempDir()
	path := filepath.Join(dir, "waitlistd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cascadeFanoutK: 51\n"), 0o600))

	h := NewHolder(initial, NewLoader(path))
	err := h.Reload(context.Background())
	require.Error(t, err)
	assert.Equal(t, initial.CascadeFanoutK, h.Get().CascadeFanoutK)
}

func TestHolder_RegisterListener_ReceivesReloadedConfig(t *testing.T) {
	initial := Defaults()
	dir := t.TempDir()
	path := filepath.Join(dir, "waitlistd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cascadeFanoutK: 8\n"), 0o600))

	h := NewHolder(initial, NewLoader(path))
	ch := make(chan Config, 1)
	h.RegisterListener(ch)

	require.NoError(t, h.Reload(context.Background()))

	select {
	case cfg := <-ch:
		assert.Equal(t, 8, cfg.CascadeFanoutK)
	default:
		t.Fatal("expected a config on the listener channel")
	}
}
