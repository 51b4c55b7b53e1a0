package consent

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/hushh-labs/consent-core/cryptoutils"
	"github.com/hushh-labs/consent-core/interfaces"
)

const (
	// MinSecretLength is the minimum signing secret length in bytes.
	MinSecretLength = 32

	// SigningSecretEnv names the environment variable carrying the shared
	// HMAC secret.
	SigningSecretEnv = "CONSENT_SIGNING_SECRET"

	// AllowDevSecretEnv, when set to "1", permits falling back to the
	// built-in development secret. Without it a missing secret is a
	// construction error, never a silent fallback.
	AllowDevSecretEnv = "CONSENT_ALLOW_DEV_SECRET"
)

// devSecret signs tokens in development setups only. It is reachable solely
// through LoadSignerFromEnv with AllowDevSecretEnv explicitly set.
const devSecret = "hushh-dev-signing-secret-do-not-deploy-0001"

// Signer computes and verifies HMAC-SHA256 authenticators over canonical
// payload strings. One process-wide secret signs every token and trust link;
// all relying parties hold the same secret.
type Signer struct {
	key []byte
}

// NewSigner creates a signer from a shared secret of at least
// MinSecretLength bytes. The secret is copied; the caller may scrub its own
// buffer afterwards.
func NewSigner(secret []byte) (*Signer, error) {
	if len(secret) == 0 {
		return nil, interfaces.ErrSigningSecretMissing
	}
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: got %d bytes, want at least %d", interfaces.ErrSigningSecretWeak, len(secret), MinSecretLength)
	}

	key := make([]byte, len(secret))
	copy(key, secret)
	return &Signer{key: key}, nil
}

// LoadSignerFromEnv constructs the process signer from SigningSecretEnv,
// failing fast when no secret is configured. The development secret is used
// only when AllowDevSecretEnv is set to "1".
func LoadSignerFromEnv() (*Signer, error) {
	if secret := os.Getenv(SigningSecretEnv); secret != "" {
		return NewSigner([]byte(secret))
	}
	if os.Getenv(AllowDevSecretEnv) == "1" {
		return NewSigner([]byte(devSecret))
	}
	return nil, fmt.Errorf("%w: set %s, or %s=1 for development", interfaces.ErrSigningSecretMissing, SigningSecretEnv, AllowDevSecretEnv)
}

// Sign returns the lowercase hex HMAC-SHA256 of payload.
func (s *Signer) Sign(payload string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether providedMac authenticates payload. The comparison
// runs in constant time over the hex strings, which also keeps the match
// byte-exact: an uppercased but numerically equal MAC does not verify.
func (s *Signer) Verify(payload string, providedMac string) bool {
	computed := s.Sign(payload)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(providedMac)) == 1
}

// ForGrantee derives a signer keyed by an HKDF-SHA256 subkey of this
// signer's secret, bound to granteeID. Compromise of a derived key then
// exposes one grantee's tokens rather than every token in the system. Both
// the issuing and the validating side must opt in with the same granteeID.
func (s *Signer) ForGrantee(granteeID string) (*Signer, error) {
	subkey, err := cryptoutils.DeriveScopedKey(s.key, "consent/grantee/"+granteeID)
	if err != nil {
		return nil, fmt.Errorf("failed to derive grantee key: %w", err)
	}
	return &Signer{key: subkey}, nil
}
