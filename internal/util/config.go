// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package util

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default socket locations, relative to the data directory.
const (
	DefaultAPDUSocket     = "apdu.sock"
	DefaultOperatorSocket = "operator.sock"
	SettingsFileName      = "settings.yaml"
	SeedFileName          = "seed.json"
)

// DeviceConfig represents the hsignerd configuration file
type DeviceConfig struct {
	APDUSocket     string `yaml:"apdu_socket" description:"Unix socket path for the host transport" default:"apdu.sock"`
	OperatorSocket string `yaml:"operator_socket" description:"Unix socket path for operator approval IPC" default:"operator.sock"`
}

// ResolvePath resolves a path relative to baseDir if not absolute.
// Returns path unchanged if empty or already absolute.
func ResolvePath(path, baseDir string) string {
	if path == "" || baseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// DefaultDeviceConfig returns the default device configuration.
// Relative paths are resolved against the data directory.
func DefaultDeviceConfig() DeviceConfig {
	return DeviceConfig{
		APDUSocket:     DefaultAPDUSocket,
		OperatorSocket: DefaultOperatorSocket,
	}
}

// GetDeviceDataDir returns the data directory for hsignerd.
// It checks -d flag value first (passed as parameter), then HARDSIGN_DATA env var.
// Returns empty string if neither is set.
func GetDeviceDataDir(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("HARDSIGN_DATA")
}

// RequireDeviceDataDir resolves the device data directory from the flag
// value or HARDSIGN_DATA environment variable. Exits if neither is set.
func RequireDeviceDataDir(flagValue string) string {
	dir := GetDeviceDataDir(flagValue)
	if dir == "" {
		fmt.Fprintln(os.Stderr, "Error: Data directory not specified")
		fmt.Fprintln(os.Stderr, "Use -d <path> or set HARDSIGN_DATA environment variable")
		os.Exit(1)
	}
	return dir
}

// LoadDeviceConfig loads configuration from a YAML file in the data directory.
// Config file is expected at <dataDir>/config.yaml.
// Returns default config if the file doesn't exist or can't be read.
func LoadDeviceConfig(dataDir string) DeviceConfig {
	defaults := DefaultDeviceConfig()

	if dataDir == "" {
		return defaults
	}

	path := filepath.Join(dataDir, "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return defaults
	}

	cfg := defaults
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid config file %s: %v (using defaults)\n", path, err)
		return defaults
	}
	if cfg.APDUSocket == "" {
		cfg.APDUSocket = defaults.APDUSocket
	}
	if cfg.OperatorSocket == "" {
		cfg.OperatorSocket = defaults.OperatorSocket
	}
	return cfg
}
