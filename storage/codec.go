package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/hushh-labs/consent-core/interfaces"
)

// marshalBlob produces the at-rest JSON form of an encrypted blob. The tuple
// shape is shared by every backend so blobs written through one store can be
// read back through another.
func marshalBlob(blob interfaces.EncryptedBlob) ([]byte, error) {
	if blob.Algorithm == "" {
		return nil, fmt.Errorf("blob has no algorithm label")
	}
	if len(blob.IV) == 0 || len(blob.AuthTag) == 0 {
		return nil, fmt.Errorf("blob is missing IV or auth tag")
	}

	data, err := json.Marshal(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to encode blob: %w", err)
	}
	return data, nil
}

// unmarshalBlob parses the at-rest form back into a blob, rejecting records
// that could not have been produced by marshalBlob.
func unmarshalBlob(data []byte) (interfaces.EncryptedBlob, error) {
	var blob interfaces.EncryptedBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return interfaces.EncryptedBlob{}, fmt.Errorf("failed to decode blob: %w", err)
	}

	if blob.Algorithm != interfaces.BlobAlgorithmAESGCM {
		return interfaces.EncryptedBlob{}, fmt.Errorf("unsupported blob algorithm: %q", blob.Algorithm)
	}
	if len(blob.IV) == 0 || len(blob.AuthTag) == 0 {
		return interfaces.EncryptedBlob{}, fmt.Errorf("stored blob is missing IV or auth tag")
	}

	return blob, nil
}

// userKey derives the per-user storage prefix. User identifiers are
// free-form strings (DIDs, emails, UUIDs), so backends address them by hash
// rather than escaping them per scheme. Domains are dotted names and stay
// readable in the key.
func userKey(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:])
}
