package interfaces

import (
	"context"
	"fmt"
	"net/url"
)

// RevocationRegistry records revoked credentials and answers revocation
// queries. Consent tokens are keyed by their raw wire string; trust links by
// their hex signature. Implementations must be safe for concurrent use.
//
// The in-process implementation is advisory: it does not survive restarts
// and is not shared across clients. Durable implementations close that gap;
// composition chooses between failing open and failing closed when a durable
// member errors.
type RevocationRegistry interface {
	// Revoke marks a credential as revoked. Revoking an already revoked
	// credential is not an error.
	Revoke(ctx context.Context, credential string) error

	// IsRevoked reports whether a credential has been revoked.
	IsRevoked(ctx context.Context, credential string) (bool, error)
}

// TokenMinter exchanges a proven identity for a freshly minted VAULT_OWNER
// consent token, returned in wire form. The minted token is authoritative
// for its own expiry; callers decode rather than trust side-channel fields.
type TokenMinter interface {
	MintOwnerToken(ctx context.Context, userID string, credential string) (string, error)
}

// IdentityProvider supplies a short-lived bearer credential proving the
// user's identity, consumed when requesting an owner token. This module
// consumes credentials; it never defines how the production provider mints
// them.
type IdentityProvider interface {
	Credential(ctx context.Context, userID string) (string, error)
}

// BlobStore is keyed storage for encrypted blobs, addressed by
// (userID, domain). Implementations persist only ciphertext tuples; nothing
// stored is ever plaintext or key material.
type BlobStore interface {
	// Put stores a blob, replacing any existing blob under the same key.
	Put(ctx context.Context, userID, domain string, blob EncryptedBlob) error

	// Get retrieves a blob. Returns ErrBlobNotFound if no blob exists
	// under the key.
	Get(ctx context.Context, userID, domain string) (EncryptedBlob, error)

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, userID, domain string) error

	// Available checks if the backend is accessible.
	Available(ctx context.Context) bool

	// Name returns a unique identifier for this backend.
	Name() string

	// LocationURI returns the URI this backend was created from.
	LocationURI() string
}

// BlobStoreFactory creates blob stores from parsed locations and composes
// redundant multi-backend stores.
type BlobStoreFactory interface {
	// StoreFor creates a blob store for a single location.
	StoreFor(location BlobLocation) (BlobStore, error)

	// MultiStoreFor composes a replicating store over several locations.
	MultiStoreFor(locations []BlobLocation) (BlobStore, error)
}

// BlobLocation is a parsed storage backend URI.
type BlobLocation struct {
	Raw    string     // Original URI
	Scheme string     // Protocol
	Host   string     // Hostname
	Path   string     // Resource path
	Query  url.Values // Query parameters
	Auth   string     // Authentication info
}

// NewBlobLocation parses and validates a storage backend URI. Supported
// schemes are file, s3, vault and ipfs.
func NewBlobLocation(uri string) (BlobLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return BlobLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	switch parsed.Scheme {
	case "file", "s3", "vault", "ipfs":
	default:
		return BlobLocation{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidLocationURI, parsed.Scheme)
	}

	var auth string
	if parsed.User != nil {
		auth = parsed.User.String()
	}

	return BlobLocation{
		Raw:    uri,
		Scheme: parsed.Scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
		Auth:   auth,
	}, nil
}

// String returns the original URI string.
func (loc BlobLocation) String() string {
	return loc.Raw
}

// IsFile checks if this is a file system storage location.
func (loc BlobLocation) IsFile() bool {
	return loc.Scheme == "file"
}

// IsS3 checks if this is an S3 storage location.
func (loc BlobLocation) IsS3() bool {
	return loc.Scheme == "s3"
}

// IsVault checks if this is a HashiCorp Vault storage location.
func (loc BlobLocation) IsVault() bool {
	return loc.Scheme == "vault"
}

// IsIPFS checks if this is an IPFS storage location.
func (loc BlobLocation) IsIPFS() bool {
	return loc.Scheme == "ipfs"
}

// GetParam returns a query parameter value.
func (loc BlobLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}

// GetParamBool returns a boolean query parameter value.
func (loc BlobLocation) GetParamBool(name string) bool {
	value := loc.Query.Get(name)
	return value == "true" || value == "1" || value == "yes"
}
