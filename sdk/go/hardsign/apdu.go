// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package hardsign

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Transport framing. Every packet is exactly packetSize bytes: a 2-byte
// channel id, a command tag and a 2-byte big-endian sequence index,
// followed by payload. Packet 0 additionally carries the total APDU
// length as a 2-byte big-endian prefix of its payload.
const (
	packetSize = 64

	channelHi = 0x01
	channelLo = 0x01
	tagAPDU   = 0x05

	headerLen      = 5
	firstHeaderLen = 7
)

// APDU layer constants shared with the device.
const (
	claDevice = 0xE0

	insGetVersion    = 0x00
	insVerifyAddress = 0x01
	insGetPublicKey  = 0x02
	insSign          = 0x03

	p1Silent  = 0x00
	p1Confirm = 0x01

	p1FirstBlock = 0x00
	p1MoreBlocks = 0x80

	// maxData is the largest APDU body; longer sign payloads are split
	// across multiple data blocks.
	maxData = 255
)

// writeAPDU frames one logical APDU into transport packets.
func writeAPDU(w io.Writer, cla, ins, p1, p2 byte, data []byte) error {
	if len(data) > maxData {
		return fmt.Errorf("APDU data too long: %d bytes", len(data))
	}

	body := make([]byte, 0, 5+len(data))
	body = append(body, cla, ins, p1, p2, byte(len(data)))
	body = append(body, data...)

	var pkt [packetSize]byte
	total := len(body)
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

// readResponse reassembles one response: data followed by a 2-byte
// status word, framed the same way as requests.
func readResponse(r io.Reader) ([]byte, uint16, error) {
	var pkt [packetSize]byte
	var out []byte
	declared := -1
	next := uint16(0)

	for declared < 0 || len(out) < declared {
		if _, err := io.ReadFull(r, pkt[:]); err != nil {
			return nil, 0, err
		}
		if pkt[0] != channelHi || pkt[1] != channelLo || pkt[2] != tagAPDU {
			return nil, 0, fmt.Errorf("bad response framing")
		}
		seq := binary.BigEndian.Uint16(pkt[3:5])
		if seq != next {
			return nil, 0, fmt.Errorf("response packet out of order: got %d, want %d", seq, next)
		}
		next++

		payload := pkt[headerLen:]
		if seq == 0 {
			declared = int(binary.BigEndian.Uint16(pkt[5:7]))
			if declared < 2 {
				return nil, 0, fmt.Errorf("response shorter than a status word")
			}
			payload = pkt[firstHeaderLen:]
		}
		want := declared - len(out)
		if want < len(payload) {
			payload = payload[:want]
		}
		out = append(out, payload...)
	}

	sw := binary.BigEndian.Uint16(out[declared-2:])
	return out[:declared-2], sw, nil
}
