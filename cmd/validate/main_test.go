// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ManuGH/waitlistd/internal/config"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "waitlistd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestValidate_AcceptsMinimalConfig(t *testing.T) {
	path := writeConfigFile(t, "cascadeFanoutK: 5\nholdTTL: 15m\nconfirmTokenTTL: 20m\n")

	loader := config.NewLoader(path)
	cfg, err := loader.Load()
	require.NoError(t, err)
	require.NoError(t, config.Validate(cfg))
}

func TestValidate_RejectsMalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "cascadeFanoutK: [this is not an int\n")

	loader := config.NewLoader(path)
	_, err := loader.Load()
	require.Error(t, err)
}

func TestValidate_RejectsCrossFieldViolation(t *testing.T) {
	path := writeConfigFile(t, "holdTTL: 30m\nconfirmTokenTTL: 31m\n")

	// confirmTokenTTL must be at least holdTTL+5m; Loader.Load already
	// validates, so the cross-field violation surfaces here directly.
	loader := config.NewLoader(path)
	_, err := loader.Load()
	require.Error(t, err)
}
