// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package device

import (
	"context"
	"crypto/ed25519"
	"encoding/binary"
	"net"
	"testing"

	"golang.org/x/crypto/blake2b"

	"github.com/hardsign-dev/hardsign/internal/apdu"
	"github.com/hardsign-dev/hardsign/internal/seed"
	"github.com/hardsign-dev/hardsign/internal/settings"
)

// startServed runs the packet loop against an in-memory pipe and hands
// the host end to the test.
func startServed(t *testing.T, approve bool) (net.Conn, *stubScreen, *settings.Store) {
	t.Helper()
	d, scr, store := newTestDevice(t, approve)

	host, dev := net.Pipe()
	done := make(chan error, 1)
	go func() {
		done <- d.Serve(context.Background(), dev)
	}()
	t.Cleanup(func() {
		_ = host.Close()
		if err := <-done; err != nil {
			t.Errorf("Serve: %v", err)
		}
	})
	return host, scr, store
}

// hostExchange frames one command and reads back data + status word.
func hostExchange(t *testing.T, conn net.Conn, ins, p1 byte, data []byte) ([]byte, uint16) {
	t.Helper()
	if err := apdu.WriteCommand(conn, apdu.Command{CLA: apdu.CLA, INS: ins, P1: p1, Data: data}); err != nil {
		t.Fatalf("WriteCommand: %v", err)
	}
	resp, sw, err := apdu.ReadResponse(conn)
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	return resp, sw
}

func TestServeVersion(t *testing.T) {
	host, _, _ := startServed(t, true)

	resp, sw := hostExchange(t, host, apdu.InsGetVersion, 0, nil)
	if sw != apdu.SWOK {
		t.Fatalf("sw = 0x%04X", sw)
	}
	if len(resp) != 3 || resp[1] != AppVersionMinor {
		t.Fatalf("version response = %v", resp)
	}
}

func TestServeRejectionStatusWord(t *testing.T) {
	host, _, _ := startServed(t, false)
	path := testPath(t)

	resp, sw := hostExchange(t, host, apdu.InsVerifyAddress, 0, path.Serialize())
	if sw != apdu.SWUserRejected {
		t.Fatalf("sw = 0x%04X, want 0x%04X", sw, apdu.SWUserRejected)
	}
	if len(resp) != 0 {
		t.Fatalf("rejected command returned %d data bytes", len(resp))
	}
}

// A multi-block sign streamed through the full transport yields a
// signature over the payload digest.
func TestServeChunkedSign(t *testing.T) {
	host, scr, store := startServed(t, true)
	path := testPath(t)
	if err := store.SetBlindSigning(true); err != nil {
		t.Fatalf("SetBlindSigning: %v", err)
	}

	tx := make([]byte, 600)
	for i := range tx {
		tx[i] = byte(i)
	}

	header := path.Serialize()
	header = binary.BigEndian.AppendUint32(header, uint32(len(tx)))
	first := 255 - len(header)

	resp, sw := hostExchange(t, host, apdu.InsSign, apdu.P1FirstBlock, append(header, tx[:first]...))
	if sw != apdu.SWOK || len(resp) != 0 {
		t.Fatalf("first block: sw=0x%04X data=%d", sw, len(resp))
	}

	var sig []byte
	for rest := tx[first:]; len(rest) > 0; {
		n := 255
		if n > len(rest) {
			n = len(rest)
		}
		sig, sw = hostExchange(t, host, apdu.InsSign, apdu.P1MoreBlocks, rest[:n])
		if sw != apdu.SWOK {
			t.Fatalf("continuation: sw=0x%04X", sw)
		}
		rest = rest[n:]
	}

	kp := seed.Derive(testSeed(), path)
	defer kp.Destroy()
	digest := blake2b.Sum256(tx)
	if !ed25519.Verify(ed25519.PublicKey(kp.PublicKey()), digest[:], sig) {
		t.Fatal("streamed signature does not verify")
	}
	if scr.steps[0].Header != "WARNING" {
		t.Fatalf("blind sign must warn first, got %+v", scr.steps[0])
	}
}

// A broken packet gets an error response and the stream stays usable.
func TestServeRecoversFromFramingError(t *testing.T) {
	host, _, _ := startServed(t, true)

	var garbage [apdu.PacketSize]byte
	garbage[0] = 0xFF
	if _, err := host.Write(garbage[:]); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	_, sw, err := apdu.ReadResponse(host)
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	if sw == apdu.SWOK {
		t.Fatal("garbage packet must not succeed")
	}

	if _, sw := hostExchange(t, host, apdu.InsGetVersion, 0, nil); sw != apdu.SWOK {
		t.Fatalf("stream did not recover: sw=0x%04X", sw)
	}
}
