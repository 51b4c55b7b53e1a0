package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hushh-labs/consent-core/interfaces"
)

// EncodeKeyMaterial packs key material into the one blob shape the storage
// layer accepts. The ciphertext field carries the material JSON, which is
// itself nothing but ciphertext envelopes and public KDF parameters; the
// container mirrors the primary envelope's IV and auth tag so the storage
// codec's shape checks hold for key material like any other blob.
func EncodeKeyMaterial(material interfaces.VaultKeyMaterial) (interfaces.EncryptedBlob, error) {
	encoded, err := json.Marshal(material)
	if err != nil {
		return interfaces.EncryptedBlob{}, fmt.Errorf("could not encode key material: %w", err)
	}

	return interfaces.EncryptedBlob{
		Ciphertext: encoded,
		IV:         material.Primary.Blob.IV,
		AuthTag:    material.Primary.Blob.AuthTag,
		Algorithm:  interfaces.BlobAlgorithmAESGCM,
	}, nil
}

// DecodeKeyMaterial unpacks stored key material. Unknown fields and
// containers out of sync with their primary envelope are rejected.
func DecodeKeyMaterial(blob interfaces.EncryptedBlob) (interfaces.VaultKeyMaterial, error) {
	var material interfaces.VaultKeyMaterial
	dec := json.NewDecoder(bytes.NewReader(blob.Ciphertext))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&material); err != nil {
		return interfaces.VaultKeyMaterial{}, fmt.Errorf("could not decode key material: %w", err)
	}

	if len(material.Primary.Blob.Ciphertext) == 0 || len(material.Primary.Blob.IV) == 0 {
		return interfaces.VaultKeyMaterial{}, errors.New("key material has no primary envelope")
	}
	if !bytes.Equal(blob.IV, material.Primary.Blob.IV) || !bytes.Equal(blob.AuthTag, material.Primary.Blob.AuthTag) {
		return interfaces.VaultKeyMaterial{}, errors.New("key material container does not match its primary envelope")
	}
	return material, nil
}

// SaveKeyMaterial persists a user's key material under the reserved
// vault.keymaterial domain.
func SaveKeyMaterial(ctx context.Context, store interfaces.BlobStore, userID string, material interfaces.VaultKeyMaterial) error {
	blob, err := EncodeKeyMaterial(material)
	if err != nil {
		return err
	}
	if err := store.Put(ctx, userID, interfaces.KeyMaterialDomain, blob); err != nil {
		return fmt.Errorf("could not store key material: %w", err)
	}
	return nil
}

// LoadKeyMaterial fetches a user's key material. A missing blob maps to
// ErrMissingKeyMaterial.
func LoadKeyMaterial(ctx context.Context, store interfaces.BlobStore, userID string) (interfaces.VaultKeyMaterial, error) {
	blob, err := store.Get(ctx, userID, interfaces.KeyMaterialDomain)
	if err != nil {
		if errors.Is(err, interfaces.ErrBlobNotFound) {
			return interfaces.VaultKeyMaterial{}, interfaces.ErrMissingKeyMaterial
		}
		return interfaces.VaultKeyMaterial{}, fmt.Errorf("could not load key material: %w", err)
	}
	return DecodeKeyMaterial(blob)
}
