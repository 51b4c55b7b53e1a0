// Package interfaces defines core interfaces and types for the consent
// protocol and vault key lifecycle, separating interface definitions from
// implementations.
//
// The package provides the contracts between the key components of the system:
//
// # Consent Types
//
// ConsentToken: A signed, time-bounded bearer credential granting a named
// scope of data access from a subject (the data owner) to a grantee (an agent
// or application). Serialized as a compact HCT wire string.
//
// TrustLink: A signed delegation record letting one grantee extend a scope to
// a second grantee, countersigned by the data owner. Transported as a
// structured record rather than a single string.
//
// ValidationResult: The tagged outcome of token validation. Validation
// failures are results with a reason, never panics, so callers can present
// "expired" and "revoked" distinctly without handling cryptographic detail.
//
// # Vault Types
//
// EncryptedBlob: An AES-256-GCM ciphertext with its IV and authentication
// tag. The only shape in which vault data ever crosses a process boundary.
//
// VaultKeyMaterial: The user's master key sealed under a passphrase-derived
// key, optionally with an independent recovery envelope. The plaintext master
// key has no serialized form anywhere in this module.
//
// OwnerSession: The in-memory pairing of a VAULT_OWNER consent token with its
// expiry, held by the session manager between unlock and lock.
//
// # Collaborator Interfaces
//
// RevocationRegistry: A revoked-credential set consulted first on every
// validation. Implementations range from an advisory in-process set to a
// durable store.
//
// TokenMinter: Exchanges a proven identity for a freshly minted VAULT_OWNER
// token. Backed by the consent service in production, by stubs in tests.
//
// IdentityProvider: Supplies the short-lived bearer credential that proves
// the user's identity to the minter.
//
// BlobStore and BlobStoreFactory: Keyed storage for encrypted blobs across
// multiple backend types (file, S3, Vault, IPFS), created from URI strings.
package interfaces
