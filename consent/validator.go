package consent

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/hushh-labs/consent-core/interfaces"
)

// Validator checks consent tokens and trust links against the shared secret,
// the injected revocation registry, and the clock. It holds no state of its
// own; every call runs the full check sequence.
type Validator struct {
	signer   *Signer
	registry interfaces.RevocationRegistry
	now      func() time.Time
	log      *slog.Logger
}

// NewValidator creates a validator. The registry is consulted on every
// validation before any cryptographic work; passing one is mandatory so that
// the revocation policy is an explicit construction-time choice.
func NewValidator(signer *Signer, registry interfaces.RevocationRegistry, log *slog.Logger) (*Validator, error) {
	if signer == nil {
		return nil, errors.New("signer must not be nil")
	}
	if registry == nil {
		return nil, errors.New("revocation registry must not be nil")
	}
	return &Validator{signer: signer, registry: registry, now: time.Now, log: log}, nil
}

// WithClock returns a validator reading time from now instead of the wall
// clock. Useful for deterministic tests.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	return &Validator{signer: v.signer, registry: v.registry, now: now, log: v.log}
}

// Validate runs the fixed check sequence over a wire token: revocation,
// structure, signature, scope, expiry. The first failing check decides the
// result and later checks never run, so a revoked token reports "revoked"
// even when it is also malformed or expired.
//
// Scope matching is exact. Callers holding a wildcard grant expand it with
// Scope.Covers before deciding what expectedScope to demand; the validator
// itself never interprets wildcards. An empty expectedScope skips the check.
func (v *Validator) Validate(ctx context.Context, wire string, expectedScope interfaces.Scope) interfaces.ValidationResult {
	revoked, err := v.registry.IsRevoked(ctx, wire)
	if err != nil {
		v.log.Warn("Revocation lookup failed, blocking token",
			slog.String("token", interfaces.Fingerprint(wire)),
			"err", err)
		return interfaces.ValidationResult{Reason: interfaces.ReasonRevocationCheck}
	}
	if revoked {
		return interfaces.ValidationResult{Reason: interfaces.ReasonRevoked}
	}

	token, err := DecodeToken(wire)
	if err != nil {
		return interfaces.ValidationResult{Reason: interfaces.ReasonMalformed}
	}

	if !v.signer.Verify(token.CanonicalPayload(), token.Signature) {
		return interfaces.ValidationResult{Reason: interfaces.ReasonBadSignature}
	}

	if expectedScope != "" && expectedScope != token.Scope {
		return interfaces.ValidationResult{Reason: interfaces.ReasonScopeMismatch}
	}

	if v.now().UnixMilli() > token.ExpiresAt {
		return interfaces.ValidationResult{Reason: interfaces.ReasonExpired}
	}

	return interfaces.ValidationResult{
		Valid:     true,
		SubjectID: token.SubjectID,
		GranteeID: token.GranteeID,
		Scope:     token.Scope,
	}
}

// ValidateTrustLink runs the same sequence over a delegation record. The
// revocation key for a link is its signature. On success the result carries
// the countersigning user as subject and the delegate as grantee.
func (v *Validator) ValidateTrustLink(ctx context.Context, link interfaces.TrustLink, expectedScope interfaces.Scope) interfaces.ValidationResult {
	revoked, err := v.registry.IsRevoked(ctx, link.Signature)
	if err != nil {
		v.log.Warn("Revocation lookup failed, blocking trust link",
			slog.String("link", interfaces.Fingerprint(link.Signature)),
			"err", err)
		return interfaces.ValidationResult{Reason: interfaces.ReasonRevocationCheck}
	}
	if revoked {
		return interfaces.ValidationResult{Reason: interfaces.ReasonRevoked}
	}

	if !wellFormedLink(link) {
		return interfaces.ValidationResult{Reason: interfaces.ReasonMalformed}
	}

	if !v.signer.Verify(link.CanonicalPayload(), link.Signature) {
		return interfaces.ValidationResult{Reason: interfaces.ReasonBadSignature}
	}

	if expectedScope != "" && expectedScope != link.Scope {
		return interfaces.ValidationResult{Reason: interfaces.ReasonScopeMismatch}
	}

	if v.now().UnixMilli() > link.ExpiresAt {
		return interfaces.ValidationResult{Reason: interfaces.ReasonExpired}
	}

	return interfaces.ValidationResult{
		Valid:     true,
		SubjectID: link.SignedByUser,
		GranteeID: link.ToAgent,
		Scope:     link.Scope,
	}
}

// wellFormedLink rejects records whose fields could not have been issued:
// empty identities, embedded separators, or a non-positive lifetime. A field
// containing '|' would shift the signed tuple and must not reach Verify.
func wellFormedLink(link interfaces.TrustLink) bool {
	for _, field := range []string{link.FromAgent, link.ToAgent, string(link.Scope), link.SignedByUser} {
		if field == "" || strings.ContainsRune(field, '|') {
			return false
		}
	}
	return link.ExpiresAt > link.CreatedAt
}
