package interfaces

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Scope identifies a data capability, such as "attr.financial.risk_profile",
// or a wildcard family such as "attr.financial.*".
type Scope string

// OwnerScope marks a consent token minted for the vault owner itself after a
// successful unlock. It gates every subsequent data-access call.
const OwnerScope Scope = "VAULT_OWNER"

// String returns the scope as a plain string.
func (s Scope) String() string {
	return string(s)
}

// IsWildcard reports whether the scope names a capability family.
func (s Scope) IsWildcard() bool {
	return strings.HasSuffix(string(s), ".*")
}

// Covers reports whether a grant for scope s satisfies a request for
// requested. An exact match always covers. A wildcard scope covers every
// scope beneath its prefix: "attr.financial.*" covers
// "attr.financial.risk_profile" and "attr.financial.accounts.checking", but
// not "attr.financial" itself and not "attr.food.dietary".
//
// Validation performs exact matching only; callers expand wildcards with
// Covers before asking the validator.
func (s Scope) Covers(requested Scope) bool {
	if s == requested {
		return true
	}
	if !s.IsWildcard() {
		return false
	}
	prefix := strings.TrimSuffix(string(s), "*")
	return len(requested) > len(prefix) && strings.HasPrefix(string(requested), prefix)
}

// ConsentToken is a capability grant from a subject to a grantee. Tokens are
// immutable once issued; revocation is recorded externally in a
// RevocationRegistry, never by mutating the token.
type ConsentToken struct {
	// SubjectID identifies the data owner.
	SubjectID string `json:"subjectId"`

	// GranteeID identifies the agent or application receiving access.
	GranteeID string `json:"granteeId"`

	// Scope names the granted capability.
	Scope Scope `json:"scope"`

	// IssuedAt and ExpiresAt are wall-clock milliseconds since the epoch.
	// ExpiresAt is strictly greater than IssuedAt for every issued token.
	IssuedAt  int64 `json:"issuedAt"`
	ExpiresAt int64 `json:"expiresAt"`

	// Signature is the lowercase hex HMAC-SHA256 over CanonicalPayload.
	// It must match byte-exactly on validation; no case normalization.
	Signature string `json:"signature"`
}

// CanonicalPayload returns the pipe-joined five-field tuple the signature is
// computed over. Field order is fixed and load-bearing.
func (t ConsentToken) CanonicalPayload() string {
	return strings.Join([]string{
		t.SubjectID,
		t.GranteeID,
		string(t.Scope),
		strconv.FormatInt(t.IssuedAt, 10),
		strconv.FormatInt(t.ExpiresAt, 10),
	}, "|")
}

// ExpiresTime returns the expiry as a time.Time.
func (t ConsentToken) ExpiresTime() time.Time {
	return time.UnixMilli(t.ExpiresAt)
}

// TrustLink is a delegation between two non-owner parties, countersigned by
// the owning user. Unlike consent tokens it travels as a structured record
// with the signature as one of its fields.
type TrustLink struct {
	FromAgent    string `json:"fromAgent"`
	ToAgent      string `json:"toAgent"`
	Scope        Scope  `json:"scope"`
	CreatedAt    int64  `json:"createdAt"`
	ExpiresAt    int64  `json:"expiresAt"`
	SignedByUser string `json:"signedByUser"`

	// Signature is the lowercase hex HMAC-SHA256 over CanonicalPayload.
	Signature string `json:"signature"`
}

// CanonicalPayload returns the pipe-joined six-field tuple the signature is
// computed over, in wire order.
func (l TrustLink) CanonicalPayload() string {
	return strings.Join([]string{
		l.FromAgent,
		l.ToAgent,
		string(l.Scope),
		strconv.FormatInt(l.CreatedAt, 10),
		strconv.FormatInt(l.ExpiresAt, 10),
		l.SignedByUser,
	}, "|")
}

// Validation reason strings surfaced in ValidationResult. These are stable
// API: UI layers key user-facing messages off them.
const (
	ReasonRevoked         = "revoked"
	ReasonMalformed       = "malformed"
	ReasonBadSignature    = "bad signature"
	ReasonScopeMismatch   = "scope mismatch"
	ReasonExpired         = "expired"
	ReasonRevocationCheck = "revocation check failed"
	ReasonNetworkTimeout  = "network timeout"
)

// ValidationResult is the tagged outcome of validating a consent token or
// trust link. Exactly one of the two shapes occurs: Valid with the decoded
// identity fields, or invalid with a single Reason from the first failing
// check.
type ValidationResult struct {
	Valid     bool   `json:"valid"`
	Reason    string `json:"reason,omitempty"`
	SubjectID string `json:"subjectId,omitempty"`
	GranteeID string `json:"granteeId,omitempty"`
	Scope     Scope  `json:"scope,omitempty"`
}

// BlobAlgorithmAESGCM labels blobs sealed with AES-256-GCM, the only
// algorithm this module produces.
const BlobAlgorithmAESGCM = "AES-256-GCM"

// EncryptedBlob is an authenticated ciphertext. The backend storing it never
// sees plaintext or key material; decryption happens exclusively client-side.
type EncryptedBlob struct {
	Ciphertext []byte `json:"ciphertext"`
	IV         []byte `json:"iv"`
	AuthTag    []byte `json:"auth_tag"`
	Algorithm  string `json:"algorithm"`
}

// SealedKey is a master key encrypted under a key derived from a passphrase
// or recovery code. Salt and Iterations reproduce the derivation at unlock.
type SealedKey struct {
	Blob       EncryptedBlob `json:"blob"`
	Salt       []byte        `json:"salt"`
	Iterations int           `json:"iterations"`
}

// VaultKeyMaterial is the at-rest form of a user's master key: the primary
// passphrase envelope plus an optional, independently keyed recovery
// envelope holding the same key. Only this ciphertext form is ever
// serialized or stored.
type VaultKeyMaterial struct {
	Primary  SealedKey  `json:"primary"`
	Recovery *SealedKey `json:"recovery,omitempty"`
}

// KeyMaterialDomain is the reserved blob-store domain under which sealed key
// material is persisted for a user.
const KeyMaterialDomain = "vault.keymaterial"

// OwnerSession pairs a VAULT_OWNER token with its expiry. It exists only in
// process memory between unlock and lock.
type OwnerSession struct {
	UserID    string
	Raw       string
	Token     ConsentToken
	ExpiresAt int64
}

// Fingerprint returns a short stable identifier for a credential string,
// safe for logs: the first eight bytes of its SHA-256, hex encoded. Raw
// bearer strings themselves are never logged.
func Fingerprint(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:8])
}
