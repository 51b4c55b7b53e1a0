package vault

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/hushh-labs/consent-core/cryptoutils"
	"github.com/hushh-labs/consent-core/interfaces"
)

// RecoveryKit carries the one-time recovery secrets produced at vault
// creation: the recovery code and its Shamir shares. It is returned exactly
// once and never persisted by this module; hand the shares out and discard
// the kit.
type RecoveryKit struct {
	Code   string
	Shares [][]byte
}

// NewKeyMaterial generates a fresh 32-byte master key and seals it twice:
// under a key derived from the passphrase, and under a key derived from a
// freshly generated recovery code. The plaintext master key is zeroized
// before returning; callers get it back only through Unlock.
func NewKeyMaterial(passphrase string) (interfaces.VaultKeyMaterial, *RecoveryKit, error) {
	if passphrase == "" {
		return interfaces.VaultKeyMaterial{}, nil, errors.New("passphrase must not be empty")
	}

	masterKey := make([]byte, cryptoutils.VaultKeySize)
	if _, err := io.ReadFull(rand.Reader, masterKey); err != nil {
		return interfaces.VaultKeyMaterial{}, nil, fmt.Errorf("could not generate master key: %w", err)
	}
	defer cryptoutils.Zero(masterKey)

	primary, err := sealKey(masterKey, passphrase)
	if err != nil {
		return interfaces.VaultKeyMaterial{}, nil, fmt.Errorf("could not seal primary envelope: %w", err)
	}

	code, err := NewRecoveryCode()
	if err != nil {
		return interfaces.VaultKeyMaterial{}, nil, err
	}

	recovery, err := sealKey(masterKey, code)
	if err != nil {
		return interfaces.VaultKeyMaterial{}, nil, fmt.Errorf("could not seal recovery envelope: %w", err)
	}

	shares, err := SplitRecoveryCode(code, DefaultRecoveryShareCount, DefaultRecoveryThreshold)
	if err != nil {
		return interfaces.VaultKeyMaterial{}, nil, err
	}

	material := interfaces.VaultKeyMaterial{
		Primary:  primary,
		Recovery: &recovery,
	}
	return material, &RecoveryKit{Code: code, Shares: shares}, nil
}

// Unlock opens the primary envelope with the passphrase and returns the
// master key. A wrong passphrase and tampered material fail with the same
// error value; nothing distinguishes them.
func Unlock(material interfaces.VaultKeyMaterial, passphrase string) ([]byte, error) {
	return openEnvelope(material.Primary, passphrase, interfaces.ErrWrongPassphrase)
}

// UnlockWithRecovery opens the recovery envelope with the recovery code.
func UnlockWithRecovery(material interfaces.VaultKeyMaterial, code string) ([]byte, error) {
	if material.Recovery == nil {
		return nil, interfaces.ErrNoRecoveryEnvelope
	}
	return openEnvelope(*material.Recovery, code, interfaces.ErrWrongRecoveryCode)
}

func sealKey(masterKey []byte, secret string) (interfaces.SealedKey, error) {
	salt, err := cryptoutils.GenerateSalt(cryptoutils.DefaultSaltSize)
	if err != nil {
		return interfaces.SealedKey{}, err
	}

	key, err := cryptoutils.DeriveVaultKey(secret, salt, cryptoutils.DefaultKDFIterations)
	if err != nil {
		return interfaces.SealedKey{}, err
	}
	defer cryptoutils.Zero(key)

	blob, err := cryptoutils.EncryptBlob(masterKey, key)
	if err != nil {
		return interfaces.SealedKey{}, err
	}

	return interfaces.SealedKey{
		Blob:       blob,
		Salt:       salt,
		Iterations: cryptoutils.DefaultKDFIterations,
	}, nil
}

// openEnvelope collapses every failure mode onto authErr. Corrupt KDF
// parameters, a flipped ciphertext byte and a wrong secret all look alike
// to the caller.
func openEnvelope(sealed interfaces.SealedKey, secret string, authErr error) ([]byte, error) {
	key, err := cryptoutils.DeriveVaultKey(secret, sealed.Salt, sealed.Iterations)
	if err != nil {
		return nil, authErr
	}
	defer cryptoutils.Zero(key)

	masterKey, err := cryptoutils.DecryptBlob(sealed.Blob, key)
	if err != nil {
		return nil, authErr
	}
	return masterKey, nil
}
