// Package cryptoutils provides the cryptographic primitives for vault key
// custody: password-based key derivation, authenticated blob encryption, and
// key material scrubbing.
//
// Key derivation uses PBKDF2-HMAC-SHA256 with a fixed default work factor.
// The iteration count is a construction-time constant, never read from the
// wire, so a tampered blob cannot downgrade the derivation cost.
//
// Blob encryption uses AES-256-GCM. The 12-byte IV is generated internally
// from crypto/rand on every call; there is deliberately no API accepting a
// caller-supplied IV, which rules out nonce reuse under a key by
// construction. Decryption returns a single authentication error that does
// not distinguish a wrong key from tampered ciphertext.
package cryptoutils
