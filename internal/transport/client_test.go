// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package transport

import (
	"testing"
)

func TestNewIPC(t *testing.T) {
	client := NewIPC("/tmp/test.sock")
	if client == nil {
		t.Fatal("NewIPC returned nil")
	}
	if client.socketPath != "/tmp/test.sock" {
		t.Errorf("socketPath = %q, want %q", client.socketPath, "/tmp/test.sock")
	}
}

func TestIPCCloseNilConn(t *testing.T) {
	// Close should not panic when conn is nil
	client := NewIPC("/tmp/test.sock")
	client.Close() // Should not panic
}

func TestIPCSetDeadlineNilConn(t *testing.T) {
	// SetReadDeadline and ClearReadDeadline should not panic when conn is nil
	client := NewIPC("/tmp/test.sock")
	client.SetReadDeadline(5)  // Should not panic
	client.ClearReadDeadline() // Should not panic
}

func TestTransportInterface(t *testing.T) {
	// Verify IPC client implements Transport interface
	var _ Transport = (*IPCClient)(nil)
}
