// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package hardsign

import (
	"crypto/ed25519"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/blake2b"
)

// DeviceClient talks to a hsignerd device over its APDU socket.
// Methods block while the device waits for operator confirmation; there
// is no client-side timeout on signing calls.
type DeviceClient struct {
	conn net.Conn
}

// Dial connects to the device's Unix socket.
func Dial(socketPath string) (*DeviceClient, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to device: %w", err)
	}
	return &DeviceClient{conn: conn}, nil
}

// NewClient wraps an existing connection, e.g. a TCP tunnel to a remote
// device.
func NewClient(conn net.Conn) *DeviceClient {
	return &DeviceClient{conn: conn}
}

// Close closes the device connection.
func (c *DeviceClient) Close() error {
	return c.conn.Close()
}

// exchange sends one APDU and returns the response data, with the
// status word already folded into the error.
func (c *DeviceClient) exchange(ins, p1, p2 byte, data []byte) ([]byte, error) {
	if err := writeAPDU(c.conn, claDevice, ins, p1, p2, data); err != nil {
		return nil, err
	}
	resp, sw, err := readResponse(c.conn)
	if err != nil {
		return nil, err
	}
	if err := statusError(sw); err != nil {
		return nil, err
	}
	return resp, nil
}

// AppVersion is the device application version.
type AppVersion struct {
	Major, Minor, Patch byte
}

func (v AppVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// GetVersion queries the device application version.
func (c *DeviceClient) GetVersion() (AppVersion, error) {
	resp, err := c.exchange(insGetVersion, 0, 0, nil)
	if err != nil {
		return AppVersion{}, err
	}
	if len(resp) != 3 {
		return AppVersion{}, fmt.Errorf("unexpected version response length %d", len(resp))
	}
	return AppVersion{Major: resp[0], Minor: resp[1], Patch: resp[2]}, nil
}

// parseKeyAddress decodes the length-prefixed public key and address of
// a key export response. The key is checked to be a canonical curve
// point and the address to be its Blake2b-256 hash; a device answering
// anything else is broken or hostile. The address itself is a hash, not
// a point, so it gets no curve check.
func parseKeyAddress(resp []byte) (ed25519.PublicKey, []byte, error) {
	if len(resp) != 2+ed25519.PublicKeySize+32 {
		return nil, nil, fmt.Errorf("unexpected key export response length %d", len(resp))
	}
	if resp[0] != ed25519.PublicKeySize || resp[1+ed25519.PublicKeySize] != 32 {
		return nil, nil, fmt.Errorf("malformed key export response")
	}
	pub := ed25519.PublicKey(resp[1 : 1+ed25519.PublicKeySize])
	addr := resp[2+ed25519.PublicKeySize:]

	if _, err := new(edwards25519.Point).SetBytes(pub); err != nil {
		return nil, nil, fmt.Errorf("device returned a non-canonical public key: %w", err)
	}
	if string(addr) != string(AddressFromPublicKey(pub)) {
		return nil, nil, fmt.Errorf("device address does not match its public key")
	}
	return pub, addr, nil
}

// GetPublicKey exports the ed25519 public key for a path. With confirm
// set, the device shows the derived address and waits for operator
// approval before answering.
func (c *DeviceClient) GetPublicKey(path Path, confirm bool) (ed25519.PublicKey, error) {
	p1 := byte(p1Silent)
	if confirm {
		p1 = p1Confirm
	}
	resp, err := c.exchange(insGetPublicKey, p1, 0, path.serialize())
	if err != nil {
		return nil, err
	}
	pub, _, err := parseKeyAddress(resp)
	return pub, err
}

// VerifyAddress has the device display the address for a path and
// waits for the operator to confirm it matches what the host shows.
// The returned value is the 32-byte address.
func (c *DeviceClient) VerifyAddress(path Path) ([]byte, error) {
	resp, err := c.exchange(insVerifyAddress, 0, 0, path.serialize())
	if err != nil {
		return nil, err
	}
	_, addr, err := parseKeyAddress(resp)
	return addr, err
}

// AddressFromPublicKey computes the on-chain address of an exported
// key, the Blake2b-256 hash of the raw key bytes.
func AddressFromPublicKey(pub ed25519.PublicKey) []byte {
	sum := blake2b.Sum256(pub)
	return sum[:]
}

// FormatAddress renders an address in the display form used on device.
func FormatAddress(addr []byte) string {
	return "0x" + hex.EncodeToString(addr)
}

// SignTransaction asks the device to sign a raw transaction payload and
// blocks until the operator approves or rejects. The first data block
// carries the path and the total payload length; continuation blocks
// carry the remaining bytes.
//
// The returned signature is a 64-byte ed25519 detached signature over
// the Blake2b-256 digest of the payload.
func (c *DeviceClient) SignTransaction(path Path, tx []byte) ([]byte, error) {
	if len(tx) == 0 {
		return nil, fmt.Errorf("empty transaction")
	}

	header := path.serialize()
	header = binary.BigEndian.AppendUint32(header, uint32(len(tx)))

	first := maxData - len(header)
	if first > len(tx) {
		first = len(tx)
	}
	firstData := append(header, tx[:first]...)

	// Every block except the last answers with empty data. Only the last
	// block's exchange blocks on the operator.
	resp, err := c.exchange(insSign, p1FirstBlock, 0, firstData)
	if err != nil {
		return nil, err
	}

	rest := tx[first:]
	for len(rest) > 0 {
		n := maxData
		if n > len(rest) {
			n = len(rest)
		}
		resp, err = c.exchange(insSign, p1MoreBlocks, 0, rest[:n])
		if err != nil {
			return nil, err
		}
		rest = rest[n:]
	}

	if len(resp) != ed25519.SignatureSize {
		return nil, fmt.Errorf("unexpected signature length %d", len(resp))
	}
	return resp, nil
}

// VerifySignature checks a device signature against the transaction
// payload it was requested for.
func VerifySignature(pub ed25519.PublicKey, tx, sig []byte) bool {
	digest := blake2b.Sum256(tx)
	return ed25519.Verify(pub, digest[:], sig)
}
