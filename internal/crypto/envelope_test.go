// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func TestSealOpenRoundTrip(t *testing.T) {
	seed := []byte("0123456789abcdef0123456789abcdef")
	pass := []byte("correct horse battery staple")

	blob, err := SealSeed(seed, pass)
	if err != nil {
		t.Fatalf("SealSeed failed: %v", err)
	}

	opened, err := OpenSeed(blob, pass)
	if err != nil {
		t.Fatalf("OpenSeed failed: %v", err)
	}
	if !bytes.Equal(opened, seed) {
		t.Fatal("opened seed does not match original")
	}
}

func TestOpenSeedWrongPassphrase(t *testing.T) {
	seed := []byte("0123456789abcdef0123456789abcdef")

	blob, err := SealSeed(seed, []byte("right"))
	if err != nil {
		t.Fatalf("SealSeed failed: %v", err)
	}
	if _, err := OpenSeed(blob, []byte("wrong")); !errors.Is(err, ErrWrongPassphrase) {
		t.Fatalf("got %v, want ErrWrongPassphrase", err)
	}
}

func TestOpenSeedRejectsTamperedCiphertext(t *testing.T) {
	blob, err := SealSeed([]byte("seed material here, 32 bytes...."), []byte("pass"))
	if err != nil {
		t.Fatalf("SealSeed failed: %v", err)
	}

	// Flip one ciphertext byte inside the JSON.
	idx := bytes.Index(blob, []byte(`"ciphertext"`))
	if idx < 0 {
		t.Fatal("ciphertext field not found")
	}
	tampered := make([]byte, len(blob))
	copy(tampered, blob)
	tampered[idx+20] ^= 0x01

	if _, err := OpenSeed(tampered, []byte("pass")); err == nil {
		t.Fatal("tampered envelope opened without error")
	}
}

func TestSealUsesFreshSaltAndNonce(t *testing.T) {
	seed := []byte("deterministic seed, random seal!")
	pass := []byte("pass")

	a, err := SealSeed(seed, pass)
	if err != nil {
		t.Fatalf("SealSeed failed: %v", err)
	}
	b, err := SealSeed(seed, pass)
	if err != nil {
		t.Fatalf("SealSeed failed: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatal("two seals of the same seed produced identical envelopes")
	}
}

func TestSecureBytesLifecycle(t *testing.T) {
	original := []byte{1, 2, 3, 4}
	s := NewSecureBytes(original)

	// Mutating the caller's copy must not affect the secret.
	original[0] = 0xFF
	err := s.WithBytes(func(b []byte) error {
		if b[0] != 1 {
			t.Fatal("secret aliases caller memory")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithBytes failed: %v", err)
	}

	s.Destroy()
	if !s.IsEmpty() {
		t.Fatal("secret not empty after Destroy")
	}
}

func TestZeroBytes(t *testing.T) {
	b := []byte{1, 2, 3}
	ZeroBytes(b)
	for i, v := range b {
		if v != 0 {
			t.Fatalf("byte %d not zeroed", i)
		}
	}
	ZeroBytes(nil) // must not panic
}
