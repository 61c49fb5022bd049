// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package hardsign

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// Derivation path constants. The device only accepts 5-component
// hardened paths under purpose 44' and one of these coin types.
const (
	hardenedFlag = 0x80000000

	CoinIOTA    uint32 = 4218
	CoinShimmer uint32 = 4219
	CoinTestnet uint32 = 1
)

const pathComponents = 5

// Path is a 5-component BIP32 derivation path. All components must be
// hardened; the device refuses anything else.
type Path [pathComponents]uint32

// NewPath builds the conventional m/44'/coin'/account'/change'/index'
// path with every component hardened.
func NewPath(coin, account, change, index uint32) Path {
	return Path{
		44 | hardenedFlag,
		coin | hardenedFlag,
		account | hardenedFlag,
		change | hardenedFlag,
		index | hardenedFlag,
	}
}

// ParsePath parses the textual m/44'/4218'/0'/0'/0' notation.
func ParsePath(s string) (Path, error) {
	var p Path
	parts := strings.Split(s, "/")
	if len(parts) != pathComponents+1 || parts[0] != "m" {
		return p, fmt.Errorf("path %q: want m/ plus %d components", s, pathComponents)
	}
	for i, part := range parts[1:] {
		hard := strings.HasSuffix(part, "'") || strings.HasSuffix(part, "h")
		if hard {
			part = part[:len(part)-1]
		}
		v, err := strconv.ParseUint(part, 10, 32)
		if err != nil || v >= hardenedFlag {
			return Path{}, fmt.Errorf("path component %q out of range", part)
		}
		p[i] = uint32(v)
		if hard {
			p[i] |= hardenedFlag
		}
	}
	return p, nil
}

// String renders the path in m/44'/... notation.
func (p Path) String() string {
	var sb strings.Builder
	sb.WriteString("m")
	for _, c := range p {
		if c&hardenedFlag != 0 {
			fmt.Fprintf(&sb, "/%d'", c&^hardenedFlag)
		} else {
			fmt.Fprintf(&sb, "/%d", c)
		}
	}
	return sb.String()
}

// serialize renders the wire form: a component count byte followed by
// big-endian uint32 components.
func (p Path) serialize() []byte {
	out := make([]byte, 1+4*pathComponents)
	out[0] = pathComponents
	for i, c := range p {
		binary.BigEndian.PutUint32(out[1+4*i:], c)
	}
	return out
}
