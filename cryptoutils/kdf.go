package cryptoutils

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultKDFIterations is the PBKDF2 work factor. Tunable at build
	// time only; unlock reads the iteration count stored with the key
	// material, which this module wrote itself.
	DefaultKDFIterations = 100000

	// VaultKeySize is the symmetric key length in bytes (AES-256).
	VaultKeySize = 32

	// MinSaltSize is the minimum accepted salt length in bytes.
	MinSaltSize = 16

	// DefaultSaltSize is the salt length generated at vault creation.
	DefaultSaltSize = 32
)

// GenerateSalt returns size random bytes for use as a KDF salt. The salt is
// generated once at vault-creation time and stored alongside the ciphertext.
func GenerateSalt(size int) ([]byte, error) {
	if size < MinSaltSize {
		return nil, fmt.Errorf("salt size %d below minimum %d", size, MinSaltSize)
	}

	salt := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// DeriveVaultKey derives a 32-byte symmetric key from a passphrase using
// PBKDF2-HMAC-SHA256. Identical (passphrase, salt, iterations) inputs always
// produce the identical key; unlock depends on reproducing the original
// encryption key exactly.
func DeriveVaultKey(passphrase string, salt []byte, iterations int) ([]byte, error) {
	if len(salt) < MinSaltSize {
		return nil, fmt.Errorf("salt length %d below minimum %d", len(salt), MinSaltSize)
	}
	if iterations <= 0 {
		return nil, errors.New("iteration count must be positive")
	}

	return pbkdf2.Key([]byte(passphrase), salt, iterations, VaultKeySize, sha256.New), nil
}

// DeriveScopedKey derives an independent 32-byte subkey from a master secret
// for a given label via HKDF-SHA256. Distinct labels yield unrelated keys,
// bounding the blast radius of a single subkey compromise.
func DeriveScopedKey(master []byte, label string) ([]byte, error) {
	if len(master) == 0 {
		return nil, errors.New("master secret is empty")
	}

	key := make([]byte, VaultKeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(label)), key); err != nil {
		return nil, fmt.Errorf("failed to derive scoped key: %w", err)
	}
	return key, nil
}
