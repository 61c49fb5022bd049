// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package apdu

import (
	"encoding/binary"
	"io"
)

// Transport framing constants. Every packet is exactly PacketSize bytes:
// a 2-byte channel id, a 1-byte command tag and a 2-byte big-endian
// sequence index, followed by payload. Packet 0 additionally carries the
// total APDU length as a 2-byte big-endian prefix of its payload.
const (
	PacketSize = 64

	channelHi = 0x01
	channelLo = 0x01
	tagAPDU   = 0x05

	headerLen      = 5
	firstHeaderLen = 7

	// MaxAPDULen bounds one logical APDU: 5 header bytes plus a 255-byte
	// body. Larger requests are split across multiple Sign data blocks,
	// not larger APDUs.
	MaxAPDULen = 5 + 255
)

// Reassembler rebuilds one logical APDU out of fixed-size transport
// packets. It holds a single fixed-capacity buffer; a sequence-0 packet
// always resets it, implicitly cancelling any partially assembled
// command, so two logical commands can never interleave.
type Reassembler struct {
	buf      [MaxAPDULen]byte
	filled   int
	declared int
	nextSeq  uint16
	active   bool
}

// Feed consumes one transport packet. It returns the completed APDU once
// all declared bytes have arrived, or nil while more packets are needed.
// The returned slice aliases the internal buffer and is only valid until
// the next Feed call.
func (r *Reassembler) Feed(pkt []byte) ([]byte, error) {
	if len(pkt) != PacketSize {
		return nil, ErrMalformedPayload
	}
	if pkt[0] != channelHi || pkt[1] != channelLo || pkt[2] != tagAPDU {
		return nil, ErrMalformedPayload
	}
	seq := binary.BigEndian.Uint16(pkt[3:5])

	var payload []byte
	if seq == 0 {
		// A first packet discards any prior partial command.
		r.filled = 0
		r.active = true
		r.nextSeq = 1
		r.declared = int(binary.BigEndian.Uint16(pkt[5:7]))
		if r.declared > len(r.buf) {
			r.reset()
			return nil, ErrOverflow
		}
		payload = pkt[firstHeaderLen:]
	} else {
		if !r.active || seq != r.nextSeq {
			r.reset()
			return nil, ErrMalformedPayload
		}
		r.nextSeq++
		payload = pkt[headerLen:]
	}

	// Bounds are enforced before the copy; the tail of the last packet is
	// padding and is discarded.
	want := r.declared - r.filled
	if want < len(payload) {
		payload = payload[:want]
	}
	copy(r.buf[r.filled:], payload)
	r.filled += len(payload)

	if r.filled < r.declared {
		return nil, nil
	}
	out := r.buf[:r.declared]
	r.reset()
	return out, nil
}

func (r *Reassembler) reset() {
	r.filled = 0
	r.declared = 0
	r.nextSeq = 0
	r.active = false
}

// WriteResponse frames response data plus a status word into transport
// packets and writes them out. The host reads the total length from the
// first packet.
func WriteResponse(w io.Writer, data []byte, sw uint16) error {
	total := len(data) + 2
	body := make([]byte, 0, total)
	body = append(body, data...)
	body = binary.BigEndian.AppendUint16(body, sw)

	var pkt [PacketSize]byte
	for seq := uint16(0); len(body) > 0 || seq == 0; seq++ {
		for i := range pkt {
			pkt[i] = 0
		}
		pkt[0], pkt[1], pkt[2] = channelHi, channelLo, tagAPDU
		binary.BigEndian.PutUint16(pkt[3:5], seq)
		off := headerLen
		if seq == 0 {
			binary.BigEndian.PutUint16(pkt[5:7], uint16(total))
			off = firstHeaderLen
		}
		n := copy(pkt[off:], body)
		body = body[n:]
		if _, err := w.Write(pkt[:]); err != nil {
			return err
		}
	}
	return nil
}

// ReadPacket reads exactly one transport packet.
func ReadPacket(r io.Reader, pkt []byte) error {
	if len(pkt) != PacketSize {
		return ErrMalformedPayload
	}
	_, err := io.ReadFull(r, pkt)
	return err
}
