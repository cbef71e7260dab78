// Package relayerr classifies errors crossing Store/Vault/Engine/control
// surface boundaries, the way the teacher's src/chainadapter/error.go
// classifies ChainAdapter errors into Retryable/NonRetryable/UserIntervention.
// Here the classification follows the taxonomy in spec §7 exactly.
package relayerr

import "fmt"

// Classification is the retry/handling category of a RelayError (spec §7).
type Classification int

const (
	// TransientNetwork: Chain Client or Fee Oracle unreachable, retry next cycle.
	TransientNetwork Classification = iota
	// InsufficientBalance: available <= fee, publish status, retry next cycle.
	InsufficientBalance
	// DecryptFailed: wrong password or tampered ciphertext.
	DecryptFailed
	// InvalidInput: rejected at the control surface.
	InvalidInput
	// BroadcastRejected: node refused the transaction.
	BroadcastRejected
	// NotFound: unknown chain id.
	NotFound
	// Fatal: database corruption or unhandled panic. A panic stops the
	// engine worker; a Fatal error returned from a cycle is logged and the
	// worker continues with the next cycle.
	Fatal
)

func (c Classification) String() string {
	switch c {
	case TransientNetwork:
		return "TransientNetwork"
	case InsufficientBalance:
		return "InsufficientBalance"
	case DecryptFailed:
		return "DecryptFailed"
	case InvalidInput:
		return "InvalidInput"
	case BroadcastRejected:
		return "BroadcastRejected"
	case NotFound:
		return "NotFound"
	case Fatal:
		return "Fatal"
	default:
		return "Unknown"
	}
}

// RelayError is the error type returned across every package boundary in
// this module so callers classify by Code/Classification instead of
// string-matching Error().
type RelayError struct {
	Code           string
	Message        string
	Classification Classification
	Cause          error
}

func (e *RelayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RelayError) Unwrap() error {
	return e.Cause
}

func newErr(code, message string, class Classification, cause error) *RelayError {
	return &RelayError{Code: code, Message: message, Classification: class, Cause: cause}
}

func NewTransientError(code, message string, cause error) *RelayError {
	return newErr(code, message, TransientNetwork, cause)
}

func NewInsufficientBalanceError(message string) *RelayError {
	return newErr("ERR_INSUFFICIENT_BALANCE", message, InsufficientBalance, nil)
}

// NewDecryptFailedError never includes cause-specific detail: wrong password
// and tampered ciphertext must be indistinguishable to the caller (spec §4.1).
func NewDecryptFailedError() *RelayError {
	return newErr("ERR_DECRYPT_FAILED", "decryption failed", DecryptFailed, nil)
}

func NewInvalidInputError(message string) *RelayError {
	return newErr("ERR_INVALID_INPUT", message, InvalidInput, nil)
}

func NewBroadcastRejectedError(message string, cause error) *RelayError {
	return newErr("ERR_BROADCAST_REJECTED", message, BroadcastRejected, cause)
}

func NewNotFoundError(message string) *RelayError {
	return newErr("ERR_NOT_FOUND", message, NotFound, nil)
}

func NewFatalError(message string, cause error) *RelayError {
	return newErr("ERR_FATAL", message, Fatal, cause)
}

// Classify returns the Classification of err if it is a *RelayError, and
// false otherwise.
func Classify(err error) (Classification, bool) {
	if re, ok := err.(*RelayError); ok {
		return re.Classification, true
	}
	return 0, false
}

func IsRetryable(err error) bool {
	c, ok := Classify(err)
	return ok && (c == TransientNetwork || c == InsufficientBalance || c == BroadcastRejected)
}

func IsFatal(err error) bool {
	c, ok := Classify(err)
	return ok && c == Fatal
}

func IsNotFound(err error) bool {
	c, ok := Classify(err)
	return ok && c == NotFound
}
