// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package apdu

import (
	"encoding/binary"
	"io"
)

// Host-side framing, used by hsshell and by tests driving the device
// end to end. The device never calls these.

// WriteCommand frames one logical APDU into transport packets.
func WriteCommand(w io.Writer, cmd Command) error {
	if len(cmd.Data) > 0xFF {
		return ErrOverflow
	}

	body := make([]byte, 0, 5+len(cmd.Data))
	body = append(body, cmd.CLA, cmd.INS, cmd.P1, cmd.P2, byte(len(cmd.Data)))
	body = append(body, cmd.Data...)

	var pkt [PacketSize]byte
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

// ReadResponse reassembles one response and splits it into data and
// status word.
func ReadResponse(r io.Reader) ([]byte, uint16, error) {
	var pkt [PacketSize]byte
	var ra Reassembler

	// Responses use the same framing as commands, so the device-side
	// reassembler reads them fine on the host.
	for {
		if err := ReadPacket(r, pkt[:]); err != nil {
			return nil, 0, err
		}
		out, err := ra.Feed(pkt[:])
		if err != nil {
			return nil, 0, err
		}
		if out == nil {
			continue
		}
		if len(out) < 2 {
			return nil, 0, ErrMalformedPayload
		}
		sw := binary.BigEndian.Uint16(out[len(out)-2:])
		data := make([]byte, len(out)-2)
		copy(data, out[:len(out)-2])
		return data, sw, nil
	}
}
