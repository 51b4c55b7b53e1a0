package consent

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hushh-labs/consent-core/interfaces"
)

// Default lifetimes applied when a caller passes a zero ttl.
const (
	DefaultTokenTTL     = 7 * 24 * time.Hour
	DefaultTrustLinkTTL = 30 * 24 * time.Hour
)

// Issuer builds signed consent tokens and trust links. Issuing has no side
// effects: nothing is registered or persisted here, callers store or
// transmit the result themselves.
type Issuer struct {
	signer *Signer
	now    func() time.Time
}

// NewIssuer creates an issuer signing with the given signer.
func NewIssuer(signer *Signer) *Issuer {
	return &Issuer{signer: signer, now: time.Now}
}

// WithClock returns an issuer reading time from now instead of the wall
// clock. Useful for deterministic tests.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	return &Issuer{signer: i.signer, now: now}
}

// Issue creates a consent token granting scope from subject to grantee,
// valid from now until now+ttl. A zero ttl applies DefaultTokenTTL.
func (i *Issuer) Issue(subjectID, granteeID string, scope interfaces.Scope, ttl time.Duration) (interfaces.ConsentToken, error) {
	if err := checkField("subjectId", subjectID); err != nil {
		return interfaces.ConsentToken{}, err
	}
	if err := checkField("granteeId", granteeID); err != nil {
		return interfaces.ConsentToken{}, err
	}
	if err := checkField("scope", string(scope)); err != nil {
		return interfaces.ConsentToken{}, err
	}
	if ttl < 0 {
		return interfaces.ConsentToken{}, errors.New("ttl must not be negative")
	}
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}

	issuedAt := i.now().UnixMilli()
	token := interfaces.ConsentToken{
		SubjectID: subjectID,
		GranteeID: granteeID,
		Scope:     scope,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt + ttl.Milliseconds(),
	}
	token.Signature = i.signer.Sign(token.CanonicalPayload())

	return token, nil
}

// IssueTrustLink creates a delegation of scope from one agent to another,
// countersigned by the owning user. A zero ttl applies DefaultTrustLinkTTL.
func (i *Issuer) IssueTrustLink(fromAgent, toAgent string, scope interfaces.Scope, signedByUser string, ttl time.Duration) (interfaces.TrustLink, error) {
	if err := checkField("fromAgent", fromAgent); err != nil {
		return interfaces.TrustLink{}, err
	}
	if err := checkField("toAgent", toAgent); err != nil {
		return interfaces.TrustLink{}, err
	}
	if err := checkField("scope", string(scope)); err != nil {
		return interfaces.TrustLink{}, err
	}
	if err := checkField("signedByUser", signedByUser); err != nil {
		return interfaces.TrustLink{}, err
	}
	if ttl < 0 {
		return interfaces.TrustLink{}, errors.New("ttl must not be negative")
	}
	if ttl == 0 {
		ttl = DefaultTrustLinkTTL
	}

	createdAt := i.now().UnixMilli()
	link := interfaces.TrustLink{
		FromAgent:    fromAgent,
		ToAgent:      toAgent,
		Scope:        scope,
		CreatedAt:    createdAt,
		ExpiresAt:    createdAt + ttl.Milliseconds(),
		SignedByUser: signedByUser,
	}
	link.Signature = i.signer.Sign(link.CanonicalPayload())

	return link, nil
}

// checkField rejects empty values and the canonical-payload separator.
// A field containing '|' would change how the signed tuple splits.
func checkField(name, value string) error {
	if value == "" {
		return fmt.Errorf("%s must not be empty", name)
	}
	if strings.ContainsRune(value, '|') {
		return fmt.Errorf("%s must not contain '|'", name)
	}
	return nil
}
