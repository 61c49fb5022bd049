// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package transport

import (
	"time"

	"github.com/hardsign-dev/hardsign/internal/protocol"
)

// Transport defines the interface for operator client connections.
type Transport interface {
	// Dial establishes the connection.
	Dial() error

	// Close closes the connection.
	Close()

	// SetReadDeadline sets a deadline for read operations.
	SetReadDeadline(d time.Duration)

	// ClearReadDeadline removes any read deadline.
	ClearReadDeadline()

	// WriteJSON sends a JSON message.
	WriteJSON(v interface{}) error

	// ReadMessage reads a raw message.
	ReadMessage() ([]byte, error)

	// SendAndReceive sends a message and waits for response.
	SendAndReceive(msg interface{}, timeout time.Duration) ([]byte, error)

	// WaitForStatus waits for initial status message.
	WaitForStatus(timeout time.Duration) (*protocol.StatusMessage, error)

	// AckStep advances the current confirmation step.
	AckStep() error

	// SendDecision resolves the confirmation flow.
	SendDecision(approved bool, reason string) error

	// SetBlindSigning toggles the blind-signing setting.
	SetBlindSigning(enabled bool, timeout time.Duration) (*protocol.SetBlindResultMessage, error)
}

// Compile-time interface check
var _ Transport = (*IPCClient)(nil)
