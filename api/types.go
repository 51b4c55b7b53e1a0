package api

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hushh-labs/consent-core/interfaces"
)

// Grant lifecycle states. A grant starts pending and reaches exactly one
// terminal state; only approved grants carry a token.
const (
	GrantStatusPending   = "pending"
	GrantStatusApproved  = "approved"
	GrantStatusDenied    = "denied"
	GrantStatusCancelled = "cancelled"
)

// MintOwnerTokenRequest exchanges a proven identity for a VAULT_OWNER
// consent token.
type MintOwnerTokenRequest struct {
	UserID     string `json:"userId"`
	Credential string `json:"credential"`
}

// MintOwnerTokenResponse carries the minted token in wire form. The token
// is authoritative for its own expiry; no side-channel expiry field exists
// to drift out of sync with it.
type MintOwnerTokenResponse struct {
	Token string `json:"token"`
}

// RequestGrantRequest opens a pending consent request from a grantee
// towards a subject.
type RequestGrantRequest struct {
	SubjectID string           `json:"subjectId"`
	GranteeID string           `json:"granteeId"`
	Scope     interfaces.Scope `json:"scope"`

	// TTLMillis bounds the token lifetime once approved. Zero applies the
	// service default.
	TTLMillis int64 `json:"ttlMillis,omitempty"`
}

// GrantRecord is the service-side view of a consent request and its
// outcome.
type GrantRecord struct {
	ID        string           `json:"id"`
	SubjectID string           `json:"subjectId"`
	GranteeID string           `json:"granteeId"`
	Scope     interfaces.Scope `json:"scope"`
	Status    string           `json:"status"`

	// Token is the issued consent token in wire form, set only once the
	// grant is approved.
	Token string `json:"token,omitempty"`

	// TTLMillis is the requested token lifetime carried over from the
	// opening request.
	TTLMillis int64 `json:"ttlMillis,omitempty"`

	CreatedAt int64 `json:"createdAt"`
	DecidedAt int64 `json:"decidedAt,omitempty"`
}

// GrantResponse wraps a single grant record.
type GrantResponse struct {
	Grant GrantRecord `json:"grant"`
}

// ListGrantsResponse carries the grants visible to a user.
type ListGrantsResponse struct {
	Grants []GrantRecord `json:"grants"`
}

// RevocationRequest names a credential to revoke or query: a consent token
// wire string or a trust link signature. Credentials travel in the body,
// never in URLs, so they stay out of access logs.
type RevocationRequest struct {
	Credential string `json:"credential"`
}

// RevocationResponse reports the revocation state of a credential.
type RevocationResponse struct {
	Revoked bool `json:"revoked"`
}

// ErrorResponse is the JSON error envelope for non-2xx answers.
type ErrorResponse struct {
	Error string `json:"error"`
}

// DecodeStrict decodes JSON from r into v, rejecting unknown fields and
// trailing data.
func DecodeStrict(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if dec.More() {
		return fmt.Errorf("invalid request body: trailing data")
	}
	return nil
}
