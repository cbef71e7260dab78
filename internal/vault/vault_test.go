package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		password string
	}{
		{"short wif-like secret", "cVtpV8f7m4g9vXq9Yz3k", "correct horse battery staple"},
		{"empty message", "", "some-password"},
		{"long message", string(make([]byte, 4096)), "another-password-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := Encrypt([]byte(tt.message), tt.password)
			require.NoError(t, err)

			secret, err := Decrypt(record, tt.password)
			require.NoError(t, err)
			defer secret.Close()

			assert.Equal(t, tt.message, secret.String())
		})
	}
}

func TestEncryptProducesDistinctCiphertexts(t *testing.T) {
	a, err := Encrypt([]byte("same message"), "same password")
	require.NoError(t, err)
	b, err := Encrypt([]byte("same message"), "same password")
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "random salt+nonce must prevent identical ciphertexts")
}

func TestDecryptWrongPasswordFails(t *testing.T) {
	record, err := Encrypt([]byte("secret key material"), "correct-password")
	require.NoError(t, err)

	_, err = Decrypt(record, "wrong-password")
	require.Error(t, err)
}

func TestDecryptTamperedCiphertextFails(t *testing.T) {
	record, err := Encrypt([]byte("secret key material"), "correct-password")
	require.NoError(t, err)

	tampered := []byte(record)
	tampered[len(tampered)-1] ^= 0x01

	_, err = Decrypt(string(tampered), "correct-password")
	require.Error(t, err)
}

func TestSecretBytesCloseZeroes(t *testing.T) {
	secret := NewSecretBytes([]byte("sensitive"))
	secret.Close()
	assert.Nil(t, secret.Bytes())
}

func TestPasswordVerifierRoundTrip(t *testing.T) {
	verifier, err := GeneratePasswordVerifier("hunter2hunter2")
	require.NoError(t, err)

	assert.True(t, VerifyPasswordHash("hunter2hunter2", verifier))
	assert.False(t, VerifyPasswordHash("wrong-password", verifier))
}
