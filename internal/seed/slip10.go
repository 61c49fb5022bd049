// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package seed

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"

	"github.com/hardsign-dev/hardsign/internal/crypto"
	"github.com/hardsign-dev/hardsign/internal/hdpath"
)

// slip10Key is the HMAC key for the ed25519 SLIP-10 master node.
var slip10Key = []byte("ed25519 seed")

// deriveKeySeed walks the SLIP-10 ed25519 tree from the device seed down
// the given path and returns the 32-byte leaf key seed. All intermediate
// node material is zeroed before return. The path is hardened-only by
// construction (hdpath rejects soft components), which is the only
// derivation SLIP-10 defines for ed25519.
func deriveKeySeed(deviceSeed []byte, path hdpath.Path) []byte {
	mac := hmac.New(sha512.New, slip10Key)
	mac.Write(deviceSeed)
	node := mac.Sum(nil) // IL = key, IR = chain code

	var msg [1 + 32 + 4]byte
	for _, index := range path {
		msg[0] = 0x00
		copy(msg[1:33], node[:32])
		binary.BigEndian.PutUint32(msg[33:], index)

		mac = hmac.New(sha512.New, node[32:])
		mac.Write(msg[:])
		next := mac.Sum(nil)

		crypto.ZeroBytes(node)
		node = next
	}
	crypto.ZeroBytes(msg[:])

	keySeed := make([]byte, 32)
	copy(keySeed, node[:32])
	crypto.ZeroBytes(node)
	return keySeed
}
