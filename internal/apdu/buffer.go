// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package apdu

// MaxPayloadLen is the hard capacity for one reassembled transaction
// payload. Exceeding it is an error, not a resize.
const MaxPayloadLen = 2048

// Buffer is a fixed-capacity payload arena. Occupancy is tracked by a
// length index; there is no dynamic growth and the overflow check happens
// before any byte is written.
type Buffer struct {
	data [MaxPayloadLen]byte
	n    int
}

// Append copies b into the buffer, failing with ErrOverflow before
// writing anything if the running total would exceed capacity.
func (b *Buffer) Append(p []byte) error {
	if b.n+len(p) > len(b.data) {
		return ErrOverflow
	}
	copy(b.data[b.n:], p)
	b.n += len(p)
	return nil
}

// Bytes returns the occupied portion of the buffer. The slice aliases
// the arena and is invalidated by Reset.
func (b *Buffer) Bytes() []byte { return b.data[:b.n] }

// Len returns the number of occupied bytes.
func (b *Buffer) Len() int { return b.n }

// Reset zeroes the occupied region and empties the buffer.
func (b *Buffer) Reset() {
	for i := 0; i < b.n; i++ {
		b.data[i] = 0
	}
	b.n = 0
}
