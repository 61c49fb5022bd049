// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

// Package seed derives per-request ed25519 keypairs from the device seed
// and produces detached signatures. Key material is owned by the current
// command and wiped on return; nothing here caches across requests.
package seed

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/hardsign-dev/hardsign/internal/crypto"
	"github.com/hardsign-dev/hardsign/internal/hdpath"

	bip39 "github.com/vcvvvc/go-wallet-sdk/crypto/go-bip39"
)

// AddressLen is the length of a binary address.
const AddressLen = 32

// SignatureLen is the length of a detached ed25519 signature.
const SignatureLen = ed25519.SignatureSize

// Address is the Blake2b-256 hash of an ed25519 public key.
type Address [AddressLen]byte

// String renders the display form: lowercase hex with a 0x prefix.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// KeyPair is a freshly derived signing key. It must be destroyed by the
// same command that derived it.
type KeyPair struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// Derive validates nothing itself; the path has already passed hdpath
// validation. It derives the SLIP-10 leaf for the path and expands it
// into an ed25519 keypair.
func Derive(deviceSeed []byte, path hdpath.Path) *KeyPair {
	keySeed := deriveKeySeed(deviceSeed, path)
	priv := ed25519.NewKeyFromSeed(keySeed)
	crypto.ZeroBytes(keySeed)
	return &KeyPair{
		priv: priv,
		pub:  priv.Public().(ed25519.PublicKey),
	}
}

// PublicKey returns the 32-byte public key.
func (kp *KeyPair) PublicKey() []byte { return kp.pub }

// Address computes the Blake2b-256 address of the public key.
func (kp *KeyPair) Address() Address {
	return Address(blake2b.Sum256(kp.pub))
}

// Sign produces a detached signature over digest.
func (kp *KeyPair) Sign(digest []byte) []byte {
	return ed25519.Sign(kp.priv, digest)
}

// Destroy wipes the private key. The keypair must not sign afterwards.
func (kp *KeyPair) Destroy() {
	crypto.ZeroBytes(kp.priv)
	kp.priv = nil
}

// NewRandomSeed generates a fresh 32-byte device seed.
func NewRandomSeed() ([]byte, error) {
	s := make([]byte, 32)
	if _, err := rand.Read(s); err != nil {
		return nil, fmt.Errorf("failed to generate seed: %w", err)
	}
	return s, nil
}

// FromMnemonic derives the device seed from a BIP-39 mnemonic. The
// checksum is verified; a well-formed but mistyped mnemonic is rejected
// rather than silently deriving a different wallet.
func FromMnemonic(mnemonic string) ([]byte, error) {
	s, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, fmt.Errorf("invalid mnemonic: %w", err)
	}
	return s, nil
}
