// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

// Package apdu implements the device side of the chunked APDU transport:
// packet reassembly, command parsing, status words and response framing.
package apdu

import "fmt"

// Instruction codes understood by the device.
const (
	InsGetVersion    byte = 0x00
	InsVerifyAddress byte = 0x01
	InsGetPublicKey  byte = 0x02
	InsSign          byte = 0x03
)

// CLA is the instruction class accepted by the device.
const CLA byte = 0xE0

// P1 values for InsGetPublicKey.
const (
	P1Silent  byte = 0x00 // return the key without a prompt
	P1Confirm byte = 0x01 // show the address and wait for approval
)

// P1 values for InsSign data blocks.
const (
	P1FirstBlock byte = 0x00
	P1MoreBlocks byte = 0x80
)

// Status words returned to the host.
const (
	SWOK                   uint16 = 0x9000
	SWOverflow             uint16 = 0x6700
	SWUserRejected         uint16 = 0x6985
	SWBlindSigningDisabled uint16 = 0x6808
	SWMalformedPayload     uint16 = 0x6A80
	SWInvalidPath          uint16 = 0x6B00
	SWUnknownCommand       uint16 = 0x6D00
)

// Command is one reassembled logical APDU command.
type Command struct {
	CLA  byte
	INS  byte
	P1   byte
	P2   byte
	Data []byte
}

// StatusError is a terminal command failure carrying the status word
// reported to the host. Every failure kind in the device core maps to
// exactly one of the sentinel values below.
type StatusError struct {
	SW  uint16
	msg string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s (sw 0x%04X)", e.msg, e.SW)
}

var (
	// ErrOverflow indicates a payload or path exceeded its fixed capacity.
	ErrOverflow = &StatusError{SW: SWOverflow, msg: "payload exceeds fixed capacity"}

	// ErrUserRejected indicates the operator declined at a confirmation step.
	ErrUserRejected = &StatusError{SW: SWUserRejected, msg: "rejected by user"}

	// ErrBlindSigningDisabled indicates an unrecognized transaction was
	// refused by policy before any prompt was shown.
	ErrBlindSigningDisabled = &StatusError{SW: SWBlindSigningDisabled, msg: "blind signing disabled"}

	// ErrMalformedPayload indicates an internal consistency check failed
	// during decode (for example a declared length mismatch).
	ErrMalformedPayload = &StatusError{SW: SWMalformedPayload, msg: "malformed payload"}

	// ErrInvalidPath indicates the derivation path failed validation.
	ErrInvalidPath = &StatusError{SW: SWInvalidPath, msg: "invalid derivation path"}

	// ErrUnknownCommand indicates an unrecognized instruction byte.
	ErrUnknownCommand = &StatusError{SW: SWUnknownCommand, msg: "unknown command"}
)

// StatusWord maps an error to the status word reported to the host.
// A nil error maps to SWOK; anything that is not a StatusError is
// reported as a malformed payload, never as success.
func StatusWord(err error) uint16 {
	if err == nil {
		return SWOK
	}
	if se, ok := err.(*StatusError); ok {
		return se.SW
	}
	return SWMalformedPayload
}

// ParseCommand splits a reassembled APDU into its header and data. The
// declared data length must match the bytes actually present; a short or
// overlong body is malformed, not truncated.
func ParseCommand(raw []byte) (Command, error) {
	if len(raw) < 5 {
		return Command{}, ErrMalformedPayload
	}
	if raw[0] != CLA {
		return Command{}, ErrUnknownCommand
	}
	lc := int(raw[4])
	if len(raw)-5 != lc {
		return Command{}, ErrMalformedPayload
	}
	return Command{
		CLA:  raw[0],
		INS:  raw[1],
		P1:   raw[2],
		P2:   raw[3],
		Data: raw[5:],
	}, nil
}
