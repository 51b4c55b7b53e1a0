package vault

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/hashicorp/vault/shamir"
)

const (
	// RecoveryCodeSize is the byte length of the random recovery secret.
	RecoveryCodeSize = 32

	// DefaultRecoveryShareCount is how many Shamir shares a recovery kit
	// holds.
	DefaultRecoveryShareCount = 5

	// DefaultRecoveryThreshold is how many of those shares reassemble the
	// recovery code.
	DefaultRecoveryThreshold = 3
)

// NewRecoveryCode returns a fresh random recovery code, hex encoded.
func NewRecoveryCode() (string, error) {
	raw := make([]byte, RecoveryCodeSize)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", fmt.Errorf("could not generate recovery code: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

// SplitRecoveryCode splits a recovery code into parts shares, any threshold
// of which reassemble it.
func SplitRecoveryCode(code string, parts, threshold int) ([][]byte, error) {
	raw, err := hex.DecodeString(code)
	if err != nil {
		return nil, fmt.Errorf("recovery code is not hex: %w", err)
	}

	shares, err := shamir.Split(raw, parts, threshold)
	if err != nil {
		return nil, fmt.Errorf("could not split recovery code: %w", err)
	}
	return shares, nil
}

// CombineRecoveryShares reassembles a recovery code from shares. Shamir
// combination cannot detect an insufficient or mismatched share set; a
// wrongly reassembled code simply fails the recovery unlock.
func CombineRecoveryShares(shares [][]byte) (string, error) {
	raw, err := shamir.Combine(shares)
	if err != nil {
		return "", fmt.Errorf("could not combine recovery shares: %w", err)
	}
	return hex.EncodeToString(raw), nil
}
