// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package seed

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"strings"
	"testing"

	"golang.org/x/crypto/blake2b"

	"github.com/hardsign-dev/hardsign/internal/hdpath"
)

var testSeed = bytes.Repeat([]byte{0x5A}, 32)

func testPath(t *testing.T, s string) hdpath.Path {
	t.Helper()
	p, err := hdpath.FromString(s)
	if err != nil {
		t.Fatalf("bad test path %q: %v", s, err)
	}
	return p
}

// Fixed derivation vectors. Computed with an independent SLIP-0010
// ed25519 implementation that reproduces the test vectors in the
// SLIP-0010 document; any change to the derivation chain or to the
// address hash breaks these.
func TestDeriveFixedVectors(t *testing.T) {
	seedA := bytes.Repeat([]byte{0x5A}, 32)
	seedB := make([]byte, 32)
	for i := range seedB {
		seedB[i] = byte(i + 1)
	}

	tests := []struct {
		name string
		seed []byte
		path string
		pub  string
		addr string
	}{
		{
			name: "iota account 0",
			seed: seedA,
			path: "m/44'/4218'/0'/0'/0'",
			pub:  "1ccc8d95ebd0ad104689083cc7d349176bb5904dde8acf8dbfc42f709b43f8bb",
			addr: "a727ae7f383c403ced8684f01a7d2bafddd38fc6b86c628207426de9f6a8e6c2",
		},
		{
			name: "shimmer account 0",
			seed: seedA,
			path: "m/44'/4219'/0'/0'/0'",
			pub:  "60b65e06719fc06acedc2743f2bf4a67c1289fae5d883f56ef4fdafe375b9da7",
			addr: "2154e382d52feeacfc25ead2b786822635bf7fa054ce8a25d93133ffb2719030",
		},
		{
			name: "iota account 0 second seed",
			seed: seedB,
			path: "m/44'/4218'/0'/0'/0'",
			pub:  "007f8b3c27b04cf5fa12947673d411f8542f17b8bdc9c9c71cc682170e50416a",
			addr: "ce8424142a2d7f2731df3b085a430887d5928b5794011577a93a7472e523ce2f",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kp := Derive(tt.seed, testPath(t, tt.path))
			if got := hex.EncodeToString(kp.PublicKey()); got != tt.pub {
				t.Errorf("public key = %s, want %s", got, tt.pub)
			}
			if got := kp.Address().String(); got != "0x"+tt.addr {
				t.Errorf("address = %s, want 0x%s", got, tt.addr)
			}
		})
	}
}

func TestDeriveDeterministic(t *testing.T) {
	path := testPath(t, "m/44'/4218'/0'/0'/0'")

	a := Derive(testSeed, path)
	b := Derive(testSeed, path)

	if !bytes.Equal(a.PublicKey(), b.PublicKey()) {
		t.Fatal("same path derived different public keys")
	}
	if a.Address() != b.Address() {
		t.Fatal("same path derived different addresses")
	}
}

func TestDeriveDistinctPerPath(t *testing.T) {
	paths := []string{
		"m/44'/4218'/0'/0'/0'",
		"m/44'/4218'/0'/0'/1'",
		"m/44'/4218'/1'/0'/0'",
		"m/44'/4219'/0'/0'/0'",
	}
	seen := make(map[string]string)
	for _, s := range paths {
		kp := Derive(testSeed, testPath(t, s))
		key := string(kp.PublicKey())
		if prev, dup := seen[key]; dup {
			t.Fatalf("paths %s and %s derived the same key", prev, s)
		}
		seen[key] = s
	}
}

func TestAddressIsBlakeOfPublicKey(t *testing.T) {
	kp := Derive(testSeed, testPath(t, "m/44'/4218'/0'/0'/0'"))
	want := blake2b.Sum256(kp.PublicKey())
	if kp.Address() != Address(want) {
		t.Fatal("address is not Blake2b-256 of the public key")
	}
}

func TestAddressDisplayForm(t *testing.T) {
	kp := Derive(testSeed, testPath(t, "m/44'/4218'/0'/0'/0'"))
	s := kp.Address().String()
	if !strings.HasPrefix(s, "0x") || len(s) != 2+2*AddressLen {
		t.Fatalf("address display form %q", s)
	}
	if s != strings.ToLower(s) {
		t.Fatalf("address display form not lowercase: %q", s)
	}
}

func TestSignVerifies(t *testing.T) {
	kp := Derive(testSeed, testPath(t, "m/44'/4218'/0'/0'/0'"))
	digest := blake2b.Sum256([]byte("payload"))

	sig := kp.Sign(digest[:])
	if len(sig) != SignatureLen {
		t.Fatalf("signature length %d, want %d", len(sig), SignatureLen)
	}
	if !ed25519.Verify(ed25519.PublicKey(kp.PublicKey()), digest[:], sig) {
		t.Fatal("signature does not verify")
	}
}

func TestFromMnemonicDeterministic(t *testing.T) {
	const mnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

	a, err := FromMnemonic(mnemonic)
	if err != nil {
		t.Fatalf("FromMnemonic failed: %v", err)
	}
	b, err := FromMnemonic(mnemonic)
	if err != nil {
		t.Fatalf("FromMnemonic failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("mnemonic derivation not deterministic")
	}

	// Keys derived from the mnemonic seed are stable too.
	p := testPath(t, "m/44'/4218'/0'/0'/0'")
	if !bytes.Equal(Derive(a, p).PublicKey(), Derive(b, p).PublicKey()) {
		t.Fatal("keys from mnemonic seed differ")
	}
}

func TestFromMnemonicRejectsBadChecksum(t *testing.T) {
	// Right word count, wrong checksum word.
	const bad = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon"
	if _, err := FromMnemonic(bad); err == nil {
		t.Fatal("bad checksum accepted")
	}
}

func TestDestroyWipesPrivateKey(t *testing.T) {
	kp := Derive(testSeed, testPath(t, "m/44'/4218'/0'/0'/0'"))
	priv := kp.priv
	kp.Destroy()
	for _, b := range priv {
		if b != 0 {
			t.Fatal("private key not zeroed")
		}
	}
}
