// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package crypto

import (
	"crypto/subtle"
	"runtime"
	"sync"
)

// ZeroBytes securely overwrites a byte slice with zeros.
// Uses constant-time operation to prevent compiler optimization.
func ZeroBytes(b []byte) {
	if len(b) == 0 {
		return
	}
	subtle.ConstantTimeCopy(1, b, make([]byte, len(b)))
	runtime.KeepAlive(b)
}

// SecureBytes holds long-lived secret material (the device seed) with
// scoped access and explicit destruction. The bytes never escape the
// WithBytes callback.
type SecureBytes struct {
	data []byte
	lock sync.RWMutex
}

// NewSecureBytes copies b into a SecureBytes. The caller may zero the
// original afterwards.
func NewSecureBytes(b []byte) *SecureBytes {
	data := make([]byte, len(b))
	copy(data, b)
	return &SecureBytes{data: data}
}

// WithBytes provides scoped read access to the secret. The callback must
// not retain the slice beyond its own execution.
func (s *SecureBytes) WithBytes(fn func([]byte) error) error {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return fn(s.data)
}

// Destroy zeroes the secret. The SecureBytes must not be used afterwards.
func (s *SecureBytes) Destroy() {
	s.lock.Lock()
	defer s.lock.Unlock()
	ZeroBytes(s.data)
	s.data = nil
}

// IsEmpty reports whether the secret has been destroyed or never set.
func (s *SecureBytes) IsEmpty() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.data) == 0
}
