// Package vault implements the bring-your-own-key lifecycle around a user's
// master key: creating sealed key material, unlocking it with a passphrase
// or recovery code, caching VAULT_OWNER sessions, and sealing per-domain
// blobs for the storage layer.
//
// The master key exists in plaintext only inside a SessionManager between
// Unlock and Lock; it has no serialization path. Key material persists as
// ciphertext envelopes under the reserved vault.keymaterial domain. The
// recovery envelope holds the same master key under an independently
// derived key, and the recovery code itself can be split into Shamir shares
// for custodians.
package vault
