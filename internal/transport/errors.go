// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package transport

import "errors"

// Sentinel errors for IPC connection failures.
var (
	// ErrAlreadyConnected is returned when another operator is already connected.
	ErrAlreadyConnected = errors.New("another operator is already connected")
)
