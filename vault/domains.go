package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/hushh-labs/consent-core/cryptoutils"
	"github.com/hushh-labs/consent-core/interfaces"
)

// SealDomain encrypts plaintext for a user's domain and stores the blob.
// Each domain seals under its own HKDF subkey of the master key, so a blob
// copied across domains fails authentication on open. The master key never
// leaves the manager.
func (m *SessionManager) SealDomain(ctx context.Context, store interfaces.BlobStore, userID, domain string, plaintext []byte) error {
	if err := checkDomain(domain); err != nil {
		return err
	}

	blob, err := m.sealBlob(domain, plaintext)
	if err != nil {
		return err
	}

	if err := store.Put(ctx, userID, domain, blob); err != nil {
		return fmt.Errorf("could not store domain %s: %w", domain, err)
	}
	return nil
}

// OpenDomain fetches and decrypts a user's blob for a domain.
func (m *SessionManager) OpenDomain(ctx context.Context, store interfaces.BlobStore, userID, domain string) ([]byte, error) {
	if err := checkDomain(domain); err != nil {
		return nil, err
	}

	blob, err := store.Get(ctx, userID, domain)
	if err != nil {
		return nil, fmt.Errorf("could not load domain %s: %w", domain, err)
	}

	return m.openBlob(domain, blob)
}

func (m *SessionManager) sealBlob(domain string, plaintext []byte) (interfaces.EncryptedBlob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.masterKey == nil {
		return interfaces.EncryptedBlob{}, interfaces.ErrVaultLocked
	}

	key, err := cryptoutils.DeriveScopedKey(m.masterKey, domain)
	if err != nil {
		return interfaces.EncryptedBlob{}, fmt.Errorf("could not derive key for domain %s: %w", domain, err)
	}
	defer cryptoutils.Zero(key)

	blob, err := cryptoutils.EncryptBlob(plaintext, key)
	if err != nil {
		return interfaces.EncryptedBlob{}, fmt.Errorf("could not seal domain %s: %w", domain, err)
	}
	return blob, nil
}

func (m *SessionManager) openBlob(domain string, blob interfaces.EncryptedBlob) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.masterKey == nil {
		return nil, interfaces.ErrVaultLocked
	}

	key, err := cryptoutils.DeriveScopedKey(m.masterKey, domain)
	if err != nil {
		return nil, fmt.Errorf("could not derive key for domain %s: %w", domain, err)
	}
	defer cryptoutils.Zero(key)

	plaintext, err := cryptoutils.DecryptBlob(blob, key)
	if err != nil {
		return nil, fmt.Errorf("could not open domain %s: %w", domain, err)
	}
	return plaintext, nil
}

func checkDomain(domain string) error {
	if domain == "" {
		return errors.New("domain must not be empty")
	}
	if domain == interfaces.KeyMaterialDomain {
		return fmt.Errorf("domain %s is reserved for key material", interfaces.KeyMaterialDomain)
	}
	return nil
}
