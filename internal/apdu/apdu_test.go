// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package apdu

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// buildPackets frames a raw APDU the way a host does: 64-byte packets,
// sequence indices, total length in packet 0.
func buildPackets(t *testing.T, raw []byte) [][]byte {
	t.Helper()

	body := make([]byte, 0, len(raw))
	body = append(body, raw...)

	var packets [][]byte
	for seq := uint16(0); len(body) > 0 || seq == 0; seq++ {
		pkt := make([]byte, PacketSize)
		pkt[0], pkt[1], pkt[2] = 0x01, 0x01, 0x05
		binary.BigEndian.PutUint16(pkt[3:5], seq)
		off := 5
		if seq == 0 {
			binary.BigEndian.PutUint16(pkt[5:7], uint16(len(raw)))
			off = 7
		}
		n := copy(pkt[off:], body)
		body = body[n:]
		packets = append(packets, pkt)
	}
	return packets
}

func buildAPDU(ins, p1, p2 byte, data []byte) []byte {
	raw := []byte{CLA, ins, p1, p2, byte(len(data))}
	return append(raw, data...)
}

func TestReassembleSinglePacket(t *testing.T) {
	raw := buildAPDU(InsGetVersion, 0, 0, nil)

	var r Reassembler
	out, err := r.Feed(buildPackets(t, raw)[0])
	if err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if !bytes.Equal(out, raw) {
		t.Fatalf("reassembled %x, want %x", out, raw)
	}
}

func TestReassembleMultiPacket(t *testing.T) {
	data := make([]byte, 200)
	for i := range data {
		data[i] = byte(i)
	}
	raw := buildAPDU(InsSign, P1FirstBlock, 0, data)

	var r Reassembler
	var out []byte
	var err error
	for _, pkt := range buildPackets(t, raw) {
		out, err = r.Feed(pkt)
		if err != nil {
			t.Fatalf("Feed failed: %v", err)
		}
	}
	if out == nil {
		t.Fatal("reassembly never completed")
	}
	if !bytes.Equal(out, raw) {
		t.Fatalf("reassembled %d bytes, want %d", len(out), len(raw))
	}
}

func TestReassembleFirstPacketResetsPartial(t *testing.T) {
	long := buildAPDU(InsSign, P1FirstBlock, 0, make([]byte, 200))
	short := buildAPDU(InsGetVersion, 0, 0, nil)

	var r Reassembler
	// Feed only the first packet of a long command, then supersede it.
	if _, err := r.Feed(buildPackets(t, long)[0]); err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	out, err := r.Feed(buildPackets(t, short)[0])
	if err != nil {
		t.Fatalf("Feed after reset failed: %v", err)
	}
	if !bytes.Equal(out, short) {
		t.Fatalf("reassembled %x, want superseding command %x", out, short)
	}
}

func TestReassembleRejectsBadSequence(t *testing.T) {
	raw := buildAPDU(InsSign, P1FirstBlock, 0, make([]byte, 200))
	packets := buildPackets(t, raw)
	if len(packets) < 3 {
		t.Fatal("test needs at least 3 packets")
	}

	var r Reassembler
	if _, err := r.Feed(packets[0]); err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	// Skip packet 1.
	if _, err := r.Feed(packets[2]); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("out-of-order packet: got %v, want ErrMalformedPayload", err)
	}
	// A continuation with no preceding first packet is also malformed.
	if _, err := r.Feed(packets[1]); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("orphan continuation: got %v, want ErrMalformedPayload", err)
	}
}

func TestReassembleRejectsOversizedDeclaredLength(t *testing.T) {
	pkt := make([]byte, PacketSize)
	pkt[0], pkt[1], pkt[2] = 0x01, 0x01, 0x05
	binary.BigEndian.PutUint16(pkt[5:7], MaxAPDULen+1)

	var r Reassembler
	if _, err := r.Feed(pkt); !errors.Is(err, ErrOverflow) {
		t.Fatalf("got %v, want ErrOverflow", err)
	}
}

func TestReassembleRejectsBadHeader(t *testing.T) {
	pkt := make([]byte, PacketSize)
	pkt[0], pkt[1], pkt[2] = 0x02, 0x01, 0x05

	var r Reassembler
	if _, err := r.Feed(pkt); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("got %v, want ErrMalformedPayload", err)
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		raw     []byte
		wantErr error
	}{
		{"valid", buildAPDU(InsGetPublicKey, P1Confirm, 0, []byte{0x05}), nil},
		{"empty data", buildAPDU(InsGetVersion, 0, 0, nil), nil},
		{"truncated header", []byte{CLA, InsSign, 0}, ErrMalformedPayload},
		{"wrong class", []byte{0x80, InsSign, 0, 0, 0}, ErrUnknownCommand},
		{"lc longer than body", []byte{CLA, InsSign, 0, 0, 5, 1, 2}, ErrMalformedPayload},
		{"lc shorter than body", []byte{CLA, InsSign, 0, 0, 1, 1, 2}, ErrMalformedPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := ParseCommand(tt.raw)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got err %v, want %v", err, tt.wantErr)
			}
			if err == nil && cmd.INS != tt.raw[1] {
				t.Fatalf("INS = %#x, want %#x", cmd.INS, tt.raw[1])
			}
		})
	}
}

func TestWriteResponseRoundTrip(t *testing.T) {
	data := make([]byte, 150)
	for i := range data {
		data[i] = byte(255 - i)
	}

	var buf bytes.Buffer
	if err := WriteResponse(&buf, data, SWOK); err != nil {
		t.Fatalf("WriteResponse failed: %v", err)
	}
	if buf.Len()%PacketSize != 0 {
		t.Fatalf("response length %d is not packet aligned", buf.Len())
	}

	// Parse the way the host does.
	packets := buf.Bytes()
	total := int(binary.BigEndian.Uint16(packets[5:7]))
	var reply []byte
	for off := 0; off < len(packets); off += PacketSize {
		pkt := packets[off : off+PacketSize]
		if pkt[0] != 0x01 || pkt[1] != 0x01 || pkt[2] != 0x05 {
			t.Fatal("bad reply packet header")
		}
		payload := pkt[5:]
		if binary.BigEndian.Uint16(pkt[3:5]) == 0 {
			payload = pkt[7:]
		}
		if left := total - len(reply); left < len(payload) {
			payload = payload[:left]
		}
		reply = append(reply, payload...)
	}
	if len(reply) != len(data)+2 {
		t.Fatalf("reply length %d, want %d", len(reply), len(data)+2)
	}
	if !bytes.Equal(reply[:len(data)], data) {
		t.Fatal("reply data corrupted")
	}
	if sw := binary.BigEndian.Uint16(reply[len(data):]); sw != SWOK {
		t.Fatalf("status word 0x%04X, want 0x9000", sw)
	}
}

func TestBufferOverflowCheckedBeforeWrite(t *testing.T) {
	var b Buffer
	if err := b.Append(make([]byte, MaxPayloadLen)); err != nil {
		t.Fatalf("fill to capacity failed: %v", err)
	}
	if err := b.Append([]byte{1}); !errors.Is(err, ErrOverflow) {
		t.Fatalf("got %v, want ErrOverflow", err)
	}
	if b.Len() != MaxPayloadLen {
		t.Fatalf("failed append mutated length: %d", b.Len())
	}

	b.Reset()
	if b.Len() != 0 {
		t.Fatal("reset did not empty buffer")
	}
}

func TestStatusWordMapping(t *testing.T) {
	tests := []struct {
		err  error
		want uint16
	}{
		{nil, SWOK},
		{ErrOverflow, SWOverflow},
		{ErrUserRejected, SWUserRejected},
		{ErrBlindSigningDisabled, SWBlindSigningDisabled},
		{ErrInvalidPath, SWInvalidPath},
		{ErrUnknownCommand, SWUnknownCommand},
		{errors.New("anything else"), SWMalformedPayload},
	}
	for _, tt := range tests {
		if got := StatusWord(tt.err); got != tt.want {
			t.Errorf("StatusWord(%v) = 0x%04X, want 0x%04X", tt.err, got, tt.want)
		}
	}
}
