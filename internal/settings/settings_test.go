// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package settings

import (
	"os"
	"strings"
	"testing"
)

func TestDefaultsWithoutFile(t *testing.T) {
	s := NewStore(t.TempDir())

	cfg, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BlindSigning {
		t.Fatal("blind signing must default to disabled")
	}
	if s.BlindSigningEnabled() {
		t.Fatal("BlindSigningEnabled must default to false")
	}
}

func TestToggleRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())

	if err := s.SetBlindSigning(true); err != nil {
		t.Fatalf("SetBlindSigning: %v", err)
	}
	if !s.BlindSigningEnabled() {
		t.Fatal("toggle not persisted")
	}

	if err := s.SetBlindSigning(false); err != nil {
		t.Fatalf("SetBlindSigning: %v", err)
	}
	if s.BlindSigningEnabled() {
		t.Fatal("toggle not cleared")
	}
}

func TestExternalEditReadFresh(t *testing.T) {
	s := NewStore(t.TempDir())
	if err := s.Save(Settings{}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Simulate an out-of-band edit by another process.
	if err := os.WriteFile(s.Path(), []byte("blind_signing: true\n"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if !s.BlindSigningEnabled() {
		t.Fatal("external edit not picked up")
	}
}

func TestCorruptFileBehavesDisabled(t *testing.T) {
	s := NewStore(t.TempDir())
	if err := os.WriteFile(s.Path(), []byte("{not yaml"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if s.BlindSigningEnabled() {
		t.Fatal("corrupt settings must behave as disabled")
	}
	if _, err := s.Load(); err == nil {
		t.Fatal("Load must surface the parse error")
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	if err := s.Save(Settings{BlindSigning: true}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".settings-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}
