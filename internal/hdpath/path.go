// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

// Package hdpath validates BIP32-style derivation paths before any key
// material is touched. The device only ever derives 5-component hardened
// paths under purpose 44' with an allowlisted coin type.
package hdpath

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/hardsign-dev/hardsign/internal/apdu"
)

// PathLen is the required number of path components.
const PathLen = 5

// HardenedFlag marks a hardened component in the serialized path.
const HardenedFlag uint32 = 0x80000000

// Purpose is the only accepted purpose component (44').
const Purpose = 44 | HardenedFlag

// Allowlisted coin types (all hardened).
const (
	CoinIOTA    = 4218 | HardenedFlag
	CoinShimmer = 4219 | HardenedFlag
	CoinTestnet = 1 | HardenedFlag
)

// Network identifies the chain a coin type belongs to. It is used only
// for display labeling, never for cryptographic differences.
type Network int

const (
	NetworkIOTA Network = iota
	NetworkShimmer
	NetworkTestnet
)

// Label returns the display ticker for the network.
func (n Network) Label() string {
	switch n {
	case NetworkShimmer:
		return "SMR"
	case NetworkTestnet:
		return "TST"
	default:
		return "IOTA"
	}
}

// Path is a validated 5-component hardened derivation path.
type Path [PathLen]uint32

// Parse validates the wire form of a derivation path: a 1-byte component
// count followed by that many big-endian uint32s. Validation happens
// entirely before any derivation: wrong arity, a non-44' purpose, a coin
// type outside the allowlist or any non-hardened component all fail with
// ErrInvalidPath.
func Parse(data []byte) (Path, error) {
	var p Path
	if len(data) < 1 {
		return p, apdu.ErrInvalidPath
	}
	if int(data[0]) != PathLen || len(data) != 1+4*PathLen {
		return p, apdu.ErrInvalidPath
	}
	for i := 0; i < PathLen; i++ {
		p[i] = binary.BigEndian.Uint32(data[1+4*i:])
	}
	if err := p.validate(); err != nil {
		return Path{}, err
	}
	return p, nil
}

func (p Path) validate() error {
	if p[0] != Purpose {
		return apdu.ErrInvalidPath
	}
	switch p[1] {
	case CoinIOTA, CoinShimmer, CoinTestnet:
	default:
		return apdu.ErrInvalidPath
	}
	// SLIP-10 ed25519 derivation is hardened-only; a soft component can
	// never be derived, so reject it up front.
	for _, c := range p {
		if c&HardenedFlag == 0 {
			return apdu.ErrInvalidPath
		}
	}
	return nil
}

// Network returns the display network for the path's coin type.
func (p Path) Network() Network {
	switch p[1] {
	case CoinShimmer:
		return NetworkShimmer
	case CoinTestnet:
		return NetworkTestnet
	default:
		return NetworkIOTA
	}
}

// String renders the path in the conventional m/44'/... notation.
func (p Path) String() string {
	var sb strings.Builder
	sb.WriteString("m")
	for _, c := range p {
		if c&HardenedFlag != 0 {
			fmt.Fprintf(&sb, "/%d'", c&^HardenedFlag)
		} else {
			fmt.Fprintf(&sb, "/%d", c)
		}
	}
	return sb.String()
}

// Serialize renders the path back to its wire form. Used by the host SDK
// so device and host agree on a single encoding.
func (p Path) Serialize() []byte {
	out := make([]byte, 1+4*PathLen)
	out[0] = PathLen
	for i, c := range p {
		binary.BigEndian.PutUint32(out[1+4*i:], c)
	}
	return out
}

// FromString parses the m/44'/4218'/0'/0'/0' notation used by the host
// tools. The result passes the same validation as Parse.
func FromString(s string) (Path, error) {
	var p Path
	parts := strings.Split(s, "/")
	if len(parts) != PathLen+1 || parts[0] != "m" {
		return p, apdu.ErrInvalidPath
	}
	for i, part := range parts[1:] {
		hardened := strings.HasSuffix(part, "'")
		part = strings.TrimSuffix(part, "'")
		var v uint32
		if _, err := fmt.Sscanf(part, "%d", &v); err != nil || v >= HardenedFlag {
			return Path{}, apdu.ErrInvalidPath
		}
		if hardened {
			v |= HardenedFlag
		}
		p[i] = v
	}
	if err := p.validate(); err != nil {
		return Path{}, err
	}
	return p, nil
}
