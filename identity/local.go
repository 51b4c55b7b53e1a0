package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultCredentialTTL bounds how long a minted identity credential stays
// usable. Credentials are exchanged for owner tokens promptly, so they can
// be short.
const DefaultCredentialTTL = 15 * time.Minute

// MinIdentitySecretLength matches the floor applied to the consent signing
// secret. HS256 keys below the hash output size weaken the MAC.
const MinIdentitySecretLength = 32

// ErrInvalidCredential is returned for credentials that fail verification
// for any reason. Callers get no oracle distinguishing expiry from forgery.
var ErrInvalidCredential = errors.New("invalid identity credential")

// LocalIssuer mints and verifies HS256 identity JWTs against a shared
// secret. It implements interfaces.IdentityProvider on the minting side and
// is used by the development stub on the verifying side, so both ends of
// the exchange share one implementation.
type LocalIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewLocalIssuer creates an issuer. The secret must be at least
// MinIdentitySecretLength bytes.
func NewLocalIssuer(secret []byte, issuer string) (*LocalIssuer, error) {
	if len(secret) < MinIdentitySecretLength {
		return nil, fmt.Errorf("identity secret must be at least %d bytes, got %d", MinIdentitySecretLength, len(secret))
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &LocalIssuer{
		secret: key,
		issuer: issuer,
		ttl:    DefaultCredentialTTL,
		now:    time.Now,
	}, nil
}

// WithTTL returns an issuer minting credentials with the given lifetime.
func (i *LocalIssuer) WithTTL(ttl time.Duration) *LocalIssuer {
	return &LocalIssuer{secret: i.secret, issuer: i.issuer, ttl: ttl, now: i.now}
}

// WithClock returns an issuer reading time from now instead of the wall
// clock.
func (i *LocalIssuer) WithClock(now func() time.Time) *LocalIssuer {
	return &LocalIssuer{secret: i.secret, issuer: i.issuer, ttl: i.ttl, now: now}
}

// Credential mints a fresh identity JWT for the user. Implements
// interfaces.IdentityProvider.
func (i *LocalIssuer) Credential(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("userID must not be empty")
	}

	issued := i.now()
	claims := jwt.RegisteredClaims{
		Issuer:    i.issuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(issued.Add(i.ttl)),
		ID:        uuid.NewString(),
	}

	credential, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign identity credential: %w", err)
	}
	return credential, nil
}

// Verify checks a credential and returns the user it identifies. Rejects
// wrong signatures, wrong issuers, expired claims and any signing method
// other than HS256.
func (i *LocalIssuer) Verify(credential string) (string, error) {
	keyFunc := func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	}

	token, err := jwt.ParseWithClaims(credential, &jwt.RegisteredClaims{}, keyFunc,
		jwt.WithIssuer(i.issuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidCredential
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidCredential
	}
	return claims.Subject, nil
}
