// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

// Package crypto provides seed-at-rest encryption and secret memory
// hygiene for the device daemon.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	// Argon2id parameters (OWASP recommended)
	argon2Time    = 1         // iterations
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4         // parallelism
	argon2KeyLen  = 32        // AES-256

	envelopeVersion = 1
)

// ErrWrongPassphrase is returned when a sealed seed fails to open.
// AES-GCM authentication makes a wrong passphrase indistinguishable from
// a corrupted envelope, so both report the same error.
var ErrWrongPassphrase = errors.New("wrong passphrase or corrupted seed envelope")

// SealedEnvelope is the on-disk format of the encrypted device seed.
type SealedEnvelope struct {
	EnvelopeVersion int    `json:"envelope_version"`
	Salt            string `json:"salt"`       // Base64-encoded Argon2id salt
	Nonce           string `json:"nonce"`      // Base64-encoded AES-GCM nonce
	Ciphertext      string `json:"ciphertext"` // Base64-encoded encrypted seed
}

// SealSeed encrypts the device seed under a passphrase-derived key and
// returns the JSON envelope for persistence.
func SealSeed(seed, passphrase []byte) ([]byte, error) {
	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	key := argon2.IDKey(passphrase, salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	defer ZeroBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, seed, nil)

	envelope := SealedEnvelope{
		EnvelopeVersion: envelopeVersion,
		Salt:            base64.StdEncoding.EncodeToString(salt),
		Nonce:           base64.StdEncoding.EncodeToString(nonce),
		Ciphertext:      base64.StdEncoding.EncodeToString(ciphertext),
	}
	return json.MarshalIndent(envelope, "", "  ")
}

// OpenSeed decrypts a sealed seed envelope. The caller owns the returned
// seed and must zero it when done.
func OpenSeed(envelopeJSON, passphrase []byte) ([]byte, error) {
	var envelope SealedEnvelope
	if err := json.Unmarshal(envelopeJSON, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse seed envelope: %w", err)
	}
	if envelope.EnvelopeVersion != envelopeVersion {
		return nil, fmt.Errorf("unsupported envelope version %d", envelope.EnvelopeVersion)
	}

	salt, err := base64.StdEncoding.DecodeString(envelope.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(envelope.Nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to decode nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(envelope.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	key := argon2.IDKey(passphrase, salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	defer ZeroBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, ErrWrongPassphrase
	}

	seed, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return seed, nil
}
