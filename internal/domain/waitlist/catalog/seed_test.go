// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testSeedYAML = `
tenants:
  - id: t1
    services:
      - id: svc-1
        name: Haircut
        duration: 45m
        price: 3500
      - id: svc-bad
        name: Broken
        duration: not-a-duration
        price: 100
    staff:
      - id: staff-1
        name: Ada
`

func TestLoadSeedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(path, []byte(testSeedYAML), 0o644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}

	c := NewStatic()
	if err := LoadSeedFile(c, path); err != nil {
		t.Fatalf("LoadSeedFile: %v", err)
	}

	name, price, err := c.ServiceName(context.Background(), "t1", "svc-1")
	if err != nil {
		t.Fatalf("ServiceName: %v", err)
	}
	if name != "Haircut" || price != 3500 {
		t.Errorf("got name=%q price=%d, want Haircut/3500", name, price)
	}

	if _, _, err := c.ServiceName(context.Background(), "t1", "svc-bad"); err == nil {
		t.Error("expected svc-bad to be skipped due to unparseable duration")
	}

	staffName, err := c.StaffName(context.Background(), "t1", "staff-1")
	if err != nil {
		t.Fatalf("StaffName: %v", err)
	}
	if staffName != "Ada" {
		t.Errorf("got staff name %q, want Ada", staffName)
	}
}

func TestLoadSeedFile_MissingFile(t *testing.T) {
	c := NewStatic()
	if err := LoadSeedFile(c, filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error loading a nonexistent seed file")
	}
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(path, []byte(testSeedYAML), 0o644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}

	c := NewStatic()
	if err := LoadSeedFile(c, path); err != nil {
		t.Fatalf("LoadSeedFile: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewWatcher(c, path)
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	// Rewrite the file's staff list to add a second entry.
	updated := `
tenants:
  - id: t1
    services:
      - id: svc-1
        name: Haircut
        duration: 45m
        price: 3500
    staff:
      - id: staff-1
        name: Ada
      - id: staff-2
        name: Bob
`
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatalf("rewrite seed file: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := c.StaffName(context.Background(), "t1", "staff-2"); err == nil {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("watcher did not pick up seed file change within timeout")
}
