// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

// Package settings persists the device's operator-controlled toggles.
// The store re-reads the file for every query so an external edit takes
// effect on the next signing decision without a restart.
package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/hardsign-dev/hardsign/internal/util"
)

// Settings is the on-disk shape of settings.yaml.
type Settings struct {
	BlindSigning bool `yaml:"blind_signing" description:"Allow signing unrecognized payloads after a hash confirmation" default:"false"`
}

// Store reads and writes settings.yaml inside the data directory.
type Store struct {
	path string
}

func NewStore(dataDir string) *Store {
	return &Store{path: filepath.Join(dataDir, util.SettingsFileName)}
}

// Path returns the settings file location, for change watchers.
func (s *Store) Path() string { return s.path }

// Load reads the current settings. A missing file yields the defaults;
// blind signing is off until an operator turns it on.
func (s *Store) Load() (Settings, error) {
	var out Settings
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return out, fmt.Errorf("read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return Settings{}, fmt.Errorf("parse settings: %w", err)
	}
	return out, nil
}

// BlindSigningEnabled reads the toggle fresh from disk. Read errors
// behave as disabled.
func (s *Store) BlindSigningEnabled() bool {
	cfg, err := s.Load()
	if err != nil {
		return false
	}
	return cfg.BlindSigning
}

// Save writes settings atomically: a temp file in the same directory is
// renamed over the old file, so a watcher never observes a partial write.
func (s *Store) Save(cfg Settings) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp settings: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close settings: %w", err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod settings: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}

// SetBlindSigning flips the toggle and persists it.
func (s *Store) SetBlindSigning(enabled bool) error {
	cfg, err := s.Load()
	if err != nil {
		return err
	}
	cfg.BlindSigning = enabled
	return s.Save(cfg)
}
