// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package hardsign

import (
	"errors"
	"fmt"
)

// Device status words.
const (
	swOK                   = 0x9000
	swOverflow             = 0x6700
	swUserRejected         = 0x6985
	swBlindSigningDisabled = 0x6808
	swMalformedPayload     = 0x6A80
	swInvalidPath          = 0x6B00
	swUnknownCommand       = 0x6D00
)

// Device refusal errors
var (
	// ErrRejected indicates the operator rejected the request on the device.
	ErrRejected = errors.New("rejected on device")

	// ErrBlindSigningDisabled indicates the transaction was not recognized
	// and the device's blind-signing setting is off.
	ErrBlindSigningDisabled = errors.New("blind signing is disabled on device")

	// ErrPayloadTooLarge indicates the transaction exceeds the device's buffer.
	ErrPayloadTooLarge = errors.New("transaction too large for device")

	// ErrMalformedPayload indicates the device could not parse the request.
	ErrMalformedPayload = errors.New("device reported malformed payload")

	// ErrInvalidPath indicates the derivation path was refused by the device.
	ErrInvalidPath = errors.New("invalid derivation path")

	// ErrUnknownCommand indicates the device does not implement the instruction.
	ErrUnknownCommand = errors.New("unknown command")
)

// statusError maps a non-OK status word to an error.
func statusError(sw uint16) error {
	switch sw {
	case swOK:
		return nil
	case swOverflow:
		return ErrPayloadTooLarge
	case swUserRejected:
		return ErrRejected
	case swBlindSigningDisabled:
		return ErrBlindSigningDisabled
	case swMalformedPayload:
		return ErrMalformedPayload
	case swInvalidPath:
		return ErrInvalidPath
	case swUnknownCommand:
		return ErrUnknownCommand
	default:
		return fmt.Errorf("device error 0x%04X", sw)
	}
}
