// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package main

import (
	"encoding/binary"
	"fmt"
	"net"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/blake2b"

	"github.com/hardsign-dev/hardsign/internal/apdu"
	"github.com/hardsign-dev/hardsign/internal/hdpath"
)

// deviceConn wraps the APDU socket connection.
type deviceConn struct {
	conn net.Conn
}

func dialDevice(socketPath string) (*deviceConn, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to device: %w", err)
	}
	return &deviceConn{conn: conn}, nil
}

func (d *deviceConn) Close() {
	if d.conn != nil {
		_ = d.conn.Close()
	}
}

// exchange sends one command and decodes the status word.
func (d *deviceConn) exchange(ins, p1 byte, data []byte) ([]byte, error) {
	cmd := apdu.Command{CLA: apdu.CLA, INS: ins, P1: p1, Data: data}
	if err := apdu.WriteCommand(d.conn, cmd); err != nil {
		return nil, err
	}
	resp, sw, err := apdu.ReadResponse(d.conn)
	if err != nil {
		return nil, err
	}
	if sw != apdu.SWOK {
		return nil, fmt.Errorf("%s", statusText(sw))
	}
	return resp, nil
}

func statusText(sw uint16) string {
	switch sw {
	case apdu.SWUserRejected:
		return "rejected on device"
	case apdu.SWBlindSigningDisabled:
		return "blind signing is disabled on device"
	case apdu.SWOverflow:
		return "payload too large for device"
	case apdu.SWMalformedPayload:
		return "device reported malformed payload"
	case apdu.SWInvalidPath:
		return "invalid derivation path"
	case apdu.SWUnknownCommand:
		return "unknown command"
	default:
		return fmt.Sprintf("device error 0x%04X", sw)
	}
}

func (d *deviceConn) getVersion() (string, error) {
	resp, err := d.exchange(apdu.InsGetVersion, 0, nil)
	if err != nil {
		return "", err
	}
	if len(resp) != 3 {
		return "", fmt.Errorf("unexpected version response")
	}
	return fmt.Sprintf("%d.%d.%d", resp[0], resp[1], resp[2]), nil
}

func (d *deviceConn) getPublicKey(path hdpath.Path, confirm bool) (pub, addr []byte, err error) {
	p1 := apdu.P1Silent
	if confirm {
		p1 = apdu.P1Confirm
	}
	resp, err := d.exchange(apdu.InsGetPublicKey, p1, path.Serialize())
	if err != nil {
		return nil, nil, err
	}
	return parseKeyAddress(resp)
}

func (d *deviceConn) verifyAddress(path hdpath.Path) (pub, addr []byte, err error) {
	resp, err := d.exchange(apdu.InsVerifyAddress, 0, path.Serialize())
	if err != nil {
		return nil, nil, err
	}
	return parseKeyAddress(resp)
}

// parseKeyAddress splits the length-prefixed public key and address of
// a key export response. The key must be a canonical ed25519 point and
// the address its Blake2b-256 hash; a device bug or a tampered
// transport would surface here. The address is a hash, not a point, so
// only the key gets the curve check.
func parseKeyAddress(resp []byte) (pub, addr []byte, err error) {
	if len(resp) != 66 || resp[0] != 32 || resp[33] != 32 {
		return nil, nil, fmt.Errorf("unexpected key export response (%d bytes)", len(resp))
	}
	pub, addr = resp[1:33], resp[34:]
	if _, err := new(edwards25519.Point).SetBytes(pub); err != nil {
		return nil, nil, fmt.Errorf("device returned a non-canonical public key")
	}
	sum := blake2b.Sum256(pub)
	if string(addr) != string(sum[:]) {
		return nil, nil, fmt.Errorf("device address does not match its public key")
	}
	return pub, addr, nil
}

// sign streams a transaction in data blocks and returns the signature.
func (d *deviceConn) sign(path hdpath.Path, tx []byte) ([]byte, error) {
	header := path.Serialize()
	header = binary.BigEndian.AppendUint32(header, uint32(len(tx)))

	const maxData = 255
	first := maxData - len(header)
	if first > len(tx) {
		first = len(tx)
	}

	resp, err := d.exchange(apdu.InsSign, apdu.P1FirstBlock, append(header, tx[:first]...))
	if err != nil {
		return nil, err
	}
	rest := tx[first:]
	for len(rest) > 0 {
		n := maxData
		if n > len(rest) {
			n = len(rest)
		}
		resp, err = d.exchange(apdu.InsSign, apdu.P1MoreBlocks, rest[:n])
		if err != nil {
			return nil, err
		}
		rest = rest[n:]
	}
	return resp, nil
}
