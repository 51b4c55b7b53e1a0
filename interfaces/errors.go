package interfaces

import (
	"errors"
	"fmt"
)

// DecodeErrorKind discriminates the ways a token wire string can fail to
// parse. Decoding is purely structural; signature verification failures are
// never decode errors.
type DecodeErrorKind int

const (
	// DecodeMalformedPrefix: the string is missing the "HCT:" prefix or
	// does not split into exactly two colon-separated segments.
	DecodeMalformedPrefix DecodeErrorKind = iota

	// DecodeMalformedSignatureSeparator: no single "." separates the
	// payload from the MAC.
	DecodeMalformedSignatureSeparator

	// DecodeBase64Failure: the payload segment is not valid unpadded
	// base64url.
	DecodeBase64Failure

	// DecodeFieldCountMismatch: the decoded payload does not split into
	// exactly five pipe-delimited fields.
	DecodeFieldCountMismatch

	// DecodeNonNumericTimestamp: issuedAt or expiresAt is not an integer.
	DecodeNonNumericTimestamp
)

// String returns the kind name.
func (k DecodeErrorKind) String() string {
	switch k {
	case DecodeMalformedPrefix:
		return "malformed prefix"
	case DecodeMalformedSignatureSeparator:
		return "malformed signature separator"
	case DecodeBase64Failure:
		return "base64 decode failure"
	case DecodeFieldCountMismatch:
		return "field count mismatch"
	case DecodeNonNumericTimestamp:
		return "non-numeric timestamp"
	default:
		return "unknown"
	}
}

// DecodeError reports a structurally invalid token wire string.
type DecodeError struct {
	Kind   DecodeErrorKind
	Detail string
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("token decode failed: %s", e.Kind)
	}
	return fmt.Sprintf("token decode failed: %s: %s", e.Kind, e.Detail)
}

// IsDecodeError reports whether err is a DecodeError, returning it if so.
func IsDecodeError(err error) (*DecodeError, bool) {
	var de *DecodeError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// NetworkError reports a failed or timed-out call to an external
// collaborator, most importantly the token-mint call. A timeout never
// degrades into an empty token; it is always surfaced as this error.
type NetworkError struct {
	Op      string
	Timeout bool
	Err     error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: timed out: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Reason maps the error onto a validation reason string.
func (e *NetworkError) Reason() string {
	if e.Timeout {
		return ReasonNetworkTimeout
	}
	return "network error"
}

var (
	// ErrCiphertextAuth is returned when an authentication tag does not
	// verify. Tampered ciphertext and a wrong key are deliberately
	// indistinguishable; no partial plaintext is ever released.
	ErrCiphertextAuth = errors.New("ciphertext authentication failed")

	// ErrMalformedCiphertext is returned when an encrypted blob has
	// impossible field sizes for its declared algorithm.
	ErrMalformedCiphertext = errors.New("malformed ciphertext")

	// ErrWrongPassphrase is returned when vault key material cannot be
	// opened with the supplied passphrase. Covers both a wrong passphrase
	// and corrupted material, indistinguishably.
	ErrWrongPassphrase = errors.New("vault passphrase incorrect")

	// ErrWrongRecoveryCode is the recovery-path analog of
	// ErrWrongPassphrase.
	ErrWrongRecoveryCode = errors.New("vault recovery code incorrect")

	// ErrNoRecoveryEnvelope is returned when a recovery unlock is
	// attempted against key material created without a recovery copy.
	ErrNoRecoveryEnvelope = errors.New("key material has no recovery envelope")

	// ErrVaultLocked is returned by operations requiring an unlocked vault.
	ErrVaultLocked = errors.New("vault is locked")

	// ErrMissingKeyMaterial is returned when an unlock is attempted with
	// no stored key material for the user.
	ErrMissingKeyMaterial = errors.New("vault key material missing")

	// ErrSigningSecretMissing is returned at construction when no signing
	// secret is configured and the development fallback is not explicitly
	// enabled. The process refuses to start rather than fall back.
	ErrSigningSecretMissing = errors.New("signing secret not configured")

	// ErrSigningSecretWeak is returned when a configured signing secret is
	// shorter than the production minimum.
	ErrSigningSecretWeak = errors.New("signing secret below minimum length")

	// ErrBlobNotFound is returned when no blob exists for a storage key.
	ErrBlobNotFound = errors.New("encrypted blob not found")

	// ErrStoreUnavailable is returned when a blob store backend is not
	// accessible. This could be due to network issues, authentication
	// failures, or service outages.
	ErrStoreUnavailable = errors.New("blob store unavailable")

	// ErrInvalidLocationURI is returned when a storage location URI is
	// malformed or names an unsupported scheme.
	ErrInvalidLocationURI = errors.New("invalid storage location URI")
)
