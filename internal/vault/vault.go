// Package vault implements at-rest encryption of per-hop signing keys
// (spec §4.1). It is grounded directly on the teacher's
// internal/services/crypto/encryption.go: same AES-256-GCM-over-derived-key
// construction, same "serialize as a flat byte buffer, deserialize by
// splitting fixed-width prefixes" shape, same ClearBytes discipline — but
// the KDF is PBKDF2-HMAC-SHA256 at the iteration count spec §4.1 fixes,
// not the teacher's Argon2id, since the spec names the exact algorithm.
// golang.org/x/crypto, already a direct module dependency for the
// teacher's argon2 import, ships pbkdf2 in the same module so no new
// third-party dependency is introduced.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"

	"golang.org/x/crypto/pbkdf2"

	"github.com/yourusername/btcrelay/internal/relayerr"
)

const (
	// PBKDF2Iterations, SaltLen, KeyLen, NonceLen are fixed by spec §4.1.
	PBKDF2Iterations = 480_000
	SaltLen          = 16
	KeyLen           = 32
	NonceLen         = 12
)

func deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, PBKDF2Iterations, KeyLen, sha256.New)
}

// Encrypt encrypts plaintext with AES-256-GCM under a key derived from
// password via PBKDF2-HMAC-SHA256, and returns
// base64(salt || nonce || ciphertext_with_tag) (spec §4.1/§6).
func Encrypt(plaintext []byte, password string) (string, error) {
	salt := make([]byte, SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", relayerr.NewFatalError("failed to generate salt", err)
	}

	key := deriveKey(password, salt)
	defer NewSecretBytes(key).Close()

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", relayerr.NewFatalError("failed to create cipher", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", relayerr.NewFatalError("failed to create GCM", err)
	}

	nonce := make([]byte, NonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return "", relayerr.NewFatalError("failed to generate nonce", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	record := make([]byte, 0, len(salt)+len(nonce)+len(ciphertext))
	record = append(record, salt...)
	record = append(record, nonce...)
	record = append(record, ciphertext...)

	return base64.StdEncoding.EncodeToString(record), nil
}

// Decrypt reverses Encrypt. Any failure — wrong password or tampered
// ciphertext — surfaces as the same DecryptFailed error with no
// distinguishing detail (spec §4.1/§7).
func Decrypt(record string, password string) (*SecretBytes, error) {
	raw, err := base64.StdEncoding.DecodeString(record)
	if err != nil {
		return nil, relayerr.NewDecryptFailedError()
	}
	if len(raw) < SaltLen+NonceLen {
		return nil, relayerr.NewDecryptFailedError()
	}

	salt := raw[:SaltLen]
	nonce := raw[SaltLen : SaltLen+NonceLen]
	ciphertext := raw[SaltLen+NonceLen:]

	key := deriveKey(password, salt)
	defer NewSecretBytes(key).Close()

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, relayerr.NewDecryptFailedError()
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, relayerr.NewDecryptFailedError()
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, relayerr.NewDecryptFailedError()
	}

	return NewSecretBytes(plaintext), nil
}

// GeneratePasswordVerifier produces base64(salt || sha256(pbkdf2(password,
// salt))) for optional UI authentication (spec §4.1).
func GeneratePasswordVerifier(password string) (string, error) {
	salt := make([]byte, SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", relayerr.NewFatalError("failed to generate salt", err)
	}

	derived := deriveKey(password, salt)
	defer NewSecretBytes(derived).Close()

	sum := sha256.Sum256(derived)

	record := make([]byte, 0, len(salt)+len(sum))
	record = append(record, salt...)
	record = append(record, sum[:]...)

	return base64.StdEncoding.EncodeToString(record), nil
}

// VerifyPasswordHash compares password against a verifier produced by
// GeneratePasswordVerifier, in constant time.
func VerifyPasswordHash(password, verifier string) bool {
	raw, err := base64.StdEncoding.DecodeString(verifier)
	if err != nil || len(raw) != SaltLen+sha256.Size {
		return false
	}
	salt := raw[:SaltLen]
	want := raw[SaltLen:]

	derived := deriveKey(password, salt)
	defer NewSecretBytes(derived).Close()
	got := sha256.Sum256(derived)

	return subtle.ConstantTimeCompare(got[:], want) == 1
}
