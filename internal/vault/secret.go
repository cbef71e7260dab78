package vault

import "runtime"

// SecretBytes wraps decrypted key material so every call site can scope its
// plaintext lifetime to a single relay step (spec §4.6/§9 "Secret lifetime").
// Grounded on internal/services/crypto/memory.go's ClearBytes helper, turned
// into an owned type so `defer secret.Close()` reads the way `defer
// ClearBytes(key)` does in the teacher's encryption code.
type SecretBytes struct {
	b []byte
}

// NewSecretBytes takes ownership of b; callers must not retain their own
// reference to it after construction.
func NewSecretBytes(b []byte) *SecretBytes {
	return &SecretBytes{b: b}
}

// Bytes returns the wrapped plaintext. The returned slice aliases internal
// storage and must not be retained past Close.
func (s *SecretBytes) Bytes() []byte {
	if s == nil {
		return nil
	}
	return s.b
}

// String returns the wrapped plaintext as a string (e.g. a WIF key).
func (s *SecretBytes) String() string {
	if s == nil {
		return ""
	}
	return string(s.b)
}

// Close zeros the wrapped buffer. Safe to call multiple times.
func (s *SecretBytes) Close() {
	if s == nil || s.b == nil {
		return
	}
	for i := range s.b {
		s.b[i] = 0
	}
	runtime.KeepAlive(s.b)
	s.b = nil
}
