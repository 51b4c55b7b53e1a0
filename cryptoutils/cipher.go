package cryptoutils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/hushh-labs/consent-core/interfaces"
)

// EncryptBlob seals plaintext under key with AES-256-GCM and returns the
// ciphertext, IV and authentication tag as separate fields. A fresh 12-byte
// IV is generated internally for every call.
//
// Both the vault master key and every domain blob (financial data, food
// preferences, and so on) flow through this one primitive.
func EncryptBlob(plaintext []byte, key []byte) (interfaces.EncryptedBlob, error) {
	aesGCM, err := newGCM(key)
	if err != nil {
		return interfaces.EncryptedBlob{}, err
	}

	iv := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return interfaces.EncryptedBlob{}, fmt.Errorf("failed to generate IV: %w", err)
	}

	sealed := aesGCM.Seal(nil, iv, plaintext, nil)
	tagOffset := len(sealed) - aesGCM.Overhead()

	return interfaces.EncryptedBlob{
		Ciphertext: sealed[:tagOffset],
		IV:         iv,
		AuthTag:    sealed[tagOffset:],
		Algorithm:  interfaces.BlobAlgorithmAESGCM,
	}, nil
}

// DecryptBlob opens a sealed blob. Returns ErrMalformedCiphertext when the
// blob's field sizes or algorithm label are impossible, and ErrCiphertextAuth
// when the authentication tag does not verify. Tag failure is reported
// identically for tampered ciphertext and a wrong key, and no partial
// plaintext is ever returned.
func DecryptBlob(blob interfaces.EncryptedBlob, key []byte) ([]byte, error) {
	aesGCM, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if blob.Algorithm != "" && blob.Algorithm != interfaces.BlobAlgorithmAESGCM {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", interfaces.ErrMalformedCiphertext, blob.Algorithm)
	}
	if len(blob.IV) != aesGCM.NonceSize() || len(blob.AuthTag) != aesGCM.Overhead() {
		return nil, interfaces.ErrMalformedCiphertext
	}

	sealed := make([]byte, 0, len(blob.Ciphertext)+len(blob.AuthTag))
	sealed = append(sealed, blob.Ciphertext...)
	sealed = append(sealed, blob.AuthTag...)

	plaintext, err := aesGCM.Open(nil, blob.IV, sealed, nil)
	if err != nil {
		return nil, interfaces.ErrCiphertextAuth
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != VaultKeySize {
		return nil, fmt.Errorf("invalid key length %d, want %d", len(key), VaultKeySize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}
