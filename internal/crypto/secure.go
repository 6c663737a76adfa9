// Package crypto provides password encryption of key files and locked,
// zeroable memory for decrypted key material.
//
//nolint:revive // Internal package name is intentional
package crypto

import (
	"runtime"
	"sync"
)

// SecureBytes holds sensitive bytes in mlocked memory and zeroes them on Destroy.
type SecureBytes struct {
	mu     sync.Mutex
	data   []byte
	locked bool
}

// SecureBytesFromSlice copies data into a new locked buffer. The caller
// remains responsible for zeroing data.
func SecureBytesFromSlice(data []byte) *SecureBytes {
	sb := &SecureBytes{data: make([]byte, len(data))}
	sb.locked = mlock(sb.data)
	copy(sb.data, data)

	runtime.SetFinalizer(sb, func(s *SecureBytes) { s.Destroy() })
	return sb
}

// Bytes returns the held bytes, or nil after Destroy. Do not retain the slice.
func (s *SecureBytes) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// IsLocked reports whether the memory was successfully mlocked.
func (s *SecureBytes) IsLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// Len returns the number of held bytes.
func (s *SecureBytes) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// Destroy zeroes and unlocks the memory. Safe to call multiple times.
func (s *SecureBytes) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return
	}

	zero(s.data)
	if s.locked {
		munlock(s.data)
		s.locked = false
	}
	s.data = nil
	runtime.SetFinalizer(s, nil)
}

// Zero overwrites b with zeros.
func Zero(b []byte) {
	zero(b)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
