package utils

import (
	"errors"
	"strings"
	"unicode"

	"github.com/yourusername/btcrelay/internal/models"
)

// ValidatePassword enforces the strength floor for the master password
// that derives the Vault encryption key for every chain's signing keys
// (spec §4.1): since a single password protects every chain this process
// ever creates, not just one wallet, a weak one is a direct key-recovery
// risk. Requirements, OWASP-style:
//   - Minimum 12 characters
//   - At least 3 of the following 4 complexity types:
//     1. Uppercase letters (A-Z)
//     2. Lowercase letters (a-z)
//     3. Numbers (0-9)
//     4. Special characters (!@#$%^&*()_+-=[]{}|;:,.<>?)
func ValidatePassword(password string) error {
	if len(password) < 12 {
		return errors.New("master password must be at least 12 characters long")
	}

	var (
		hasUpper   bool
		hasLower   bool
		hasNumber  bool
		hasSpecial bool
	)

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	// Count complexity types
	complexityCount := 0
	if hasUpper {
		complexityCount++
	}
	if hasLower {
		complexityCount++
	}
	if hasNumber {
		complexityCount++
	}
	if hasSpecial {
		complexityCount++
	}

	if complexityCount < 3 {
		return errors.New("master password must contain at least 3 of the following: uppercase letters, lowercase letters, numbers, special characters")
	}

	return nil
}

// testnetPrefixes and mainnetPrefixes are the address-leading characters
// accepted for each network, per spec §6: testnet {m,n,2,tb1}, mainnet
// {1,3,bc1}.
var (
	testnetPrefixes = []string{"tb1", "m", "n", "2"}
	mainnetPrefixes = []string{"bc1", "1", "3"}
)

// ValidateAddress applies the fast prefix+length boundary check from spec
// §6 ("bech32 length 42-62; legacy 26-35"): it rejects obviously malformed
// input before a control-surface caller ever reaches the signer, which
// still asks btcd to parse the address for real before building a
// transaction. This function does not itself decode bech32 or base58check.
func ValidateAddress(address string, network models.Network) error {
	if address == "" {
		return errors.New("address must not be empty")
	}

	var prefixes []string
	switch network {
	case models.Testnet:
		prefixes = testnetPrefixes
	case models.Mainnet:
		prefixes = mainnetPrefixes
	default:
		return errors.New("unknown network")
	}

	var matched string
	for _, p := range prefixes {
		if strings.HasPrefix(address, p) {
			matched = p
			break
		}
	}
	if matched == "" {
		return errors.New("address prefix does not match network")
	}

	isBech32 := matched == "tb1" || matched == "bc1"
	if isBech32 {
		if len(address) < 42 || len(address) > 62 {
			return errors.New("bech32 address length out of range")
		}
		return nil
	}

	if len(address) < 26 || len(address) > 35 {
		return errors.New("legacy address length out of range")
	}
	return nil
}
