// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package txdec

import (
	"encoding/binary"
	"errors"
)

// errTruncated is the single internal failure for every bounds violation.
// It never escapes the package: any reader error makes Decode classify
// the payload as unknown.
var errTruncated = errors.New("truncated or malformed payload")

// reader is a bounds-checked cursor over the raw payload. Every read
// verifies the remaining length before touching the buffer, so a
// malicious length field can never cause an out-of-bounds access.
type reader struct {
	data []byte
	off  int
}

func (r *reader) remaining() int { return len(r.data) - r.off }

func (r *reader) u8() (byte, error) {
	if r.remaining() < 1 {
		return 0, errTruncated
	}
	b := r.data[r.off]
	r.off++
	return b, nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, errTruncated
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) skip(n int) error {
	_, err := r.bytes(n)
	return err
}

func (r *reader) u16() (uint16, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *reader) u64() (uint64, error) {
	b, err := r.bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// uleb reads a BCS ULEB128-encoded u32. BCS caps lengths and enum tags
// at u32; longer or non-canonical encodings are malformed.
func (r *reader) uleb() (uint32, error) {
	var value uint64
	for shift := 0; shift < 35; shift += 7 {
		b, err := r.u8()
		if err != nil {
			return 0, err
		}
		value |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			if value > 0xFFFFFFFF {
				return 0, errTruncated
			}
			// Canonical ULEB128 forbids a trailing zero group.
			if b == 0 && shift != 0 {
				return 0, errTruncated
			}
			return uint32(value), nil
		}
	}
	return 0, errTruncated
}
