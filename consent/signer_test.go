package consent

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hushh-labs/consent-core/interfaces"
)

func testSigner(tb testing.TB) *Signer {
	tb.Helper()
	signer, err := NewSigner(bytes.Repeat([]byte{0x42}, MinSecretLength))
	require.NoError(tb, err)
	return signer
}

// TestSignKnownVectors pins the MAC computation to the published
// HMAC-SHA256 test vectors from RFC 4231. Every client platform must
// reproduce these bytes exactly or tokens stop interoperating.
func TestSignKnownVectors(t *testing.T) {
	testCases := []struct {
		name    string
		key     []byte
		payload string
		mac     string
	}{
		{
			name:    "RFC 4231 case 1",
			key:     bytes.Repeat([]byte{0x0b}, 20),
			payload: "Hi There",
			mac:     "b0344c61d8db38535ca8afceaf0bf12b881dc200c9833da726e9376c2e32cff7",
		},
		{
			name:    "RFC 4231 case 2",
			key:     []byte("Jefe"),
			payload: "what do ya want for nothing?",
			mac:     "5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Construct directly: the RFC keys are below the
			// production minimum length.
			signer := &Signer{key: tc.key}
			require.Equal(t, tc.mac, signer.Sign(tc.payload))
			require.True(t, signer.Verify(tc.payload, tc.mac))
		})
	}
}

func TestSignIsDeterministicLowercaseHex(t *testing.T) {
	signer := testSigner(t)

	mac1 := signer.Sign("u1|agent1|attr.financial.risk_profile|1|2")
	mac2 := signer.Sign("u1|agent1|attr.financial.risk_profile|1|2")
	require.Equal(t, mac1, mac2)
	require.Len(t, mac1, 64)
	require.Equal(t, strings.ToLower(mac1), mac1, "MAC must be lowercase hex")
}

func TestVerifyRejectsModifiedPayload(t *testing.T) {
	signer := testSigner(t)

	payload := "u1|agent1|attr.financial.risk_profile|1|2"
	mac := signer.Sign(payload)

	require.True(t, signer.Verify(payload, mac))
	require.False(t, signer.Verify("u1|agent2|attr.financial.risk_profile|1|2", mac))
	require.False(t, signer.Verify(payload, signer.Sign("other")))
}

// TestVerifyIsByteExact: an uppercased MAC is numerically the same value but
// must not verify. Validation does no normalization.
func TestVerifyIsByteExact(t *testing.T) {
	signer := testSigner(t)

	payload := "u1|agent1|scope|1|2"
	mac := signer.Sign(payload)

	require.False(t, signer.Verify(payload, strings.ToUpper(mac)))
	require.False(t, signer.Verify(payload, mac+"00"))
	require.False(t, signer.Verify(payload, mac[:63]))
	require.False(t, signer.Verify(payload, ""))
}

func TestNewSignerSecretRequirements(t *testing.T) {
	_, err := NewSigner(nil)
	require.ErrorIs(t, err, interfaces.ErrSigningSecretMissing)

	_, err = NewSigner(bytes.Repeat([]byte{0x01}, MinSecretLength-1))
	require.ErrorIs(t, err, interfaces.ErrSigningSecretWeak)

	_, err = NewSigner(bytes.Repeat([]byte{0x01}, MinSecretLength))
	require.NoError(t, err)
}

func TestLoadSignerFromEnv(t *testing.T) {
	t.Run("configured secret", func(t *testing.T) {
		t.Setenv(SigningSecretEnv, strings.Repeat("s", MinSecretLength))
		t.Setenv(AllowDevSecretEnv, "")

		signer, err := LoadSignerFromEnv()
		require.NoError(t, err)
		require.NotNil(t, signer)
	})

	t.Run("missing secret fails fast", func(t *testing.T) {
		t.Setenv(SigningSecretEnv, "")
		t.Setenv(AllowDevSecretEnv, "")

		_, err := LoadSignerFromEnv()
		require.ErrorIs(t, err, interfaces.ErrSigningSecretMissing)
	})

	t.Run("dev secret requires explicit opt-in", func(t *testing.T) {
		t.Setenv(SigningSecretEnv, "")
		t.Setenv(AllowDevSecretEnv, "1")

		signer, err := LoadSignerFromEnv()
		require.NoError(t, err)
		require.NotNil(t, signer)
	})

	t.Run("weak configured secret rejected", func(t *testing.T) {
		t.Setenv(SigningSecretEnv, "short")
		t.Setenv(AllowDevSecretEnv, "")

		_, err := LoadSignerFromEnv()
		require.ErrorIs(t, err, interfaces.ErrSigningSecretWeak)
	})
}

// TestForGrantee verifies subkey separation: a MAC minted under one
// grantee's derived key verifies only under that same derivation.
func TestForGrantee(t *testing.T) {
	base := testSigner(t)

	agent1, err := base.ForGrantee("agent1")
	require.NoError(t, err)
	agent2, err := base.ForGrantee("agent2")
	require.NoError(t, err)

	payload := "u1|agent1|attr.financial.risk_profile|1|2"
	mac := agent1.Sign(payload)

	require.True(t, agent1.Verify(payload, mac))
	require.False(t, agent2.Verify(payload, mac))
	require.False(t, base.Verify(payload, mac))

	// Same derivation reproduces the same signer
	again, err := base.ForGrantee("agent1")
	require.NoError(t, err)
	require.True(t, again.Verify(payload, mac))
}
