package consent

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hushh-labs/consent-core/interfaces"
)

func b64(payload string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	testCases := []struct {
		name  string
		token interfaces.ConsentToken
	}{
		{
			name: "typical grant",
			token: interfaces.ConsentToken{
				SubjectID: "u1",
				GranteeID: "agent1",
				Scope:     "attr.financial.risk_profile",
				IssuedAt:  1700000000000,
				ExpiresAt: 1700000000000 + 3600000,
				Signature: "deadbeef",
			},
		},
		{
			name: "wildcard scope",
			token: interfaces.ConsentToken{
				SubjectID: "user-77",
				GranteeID: "portfolio-import",
				Scope:     "attr.financial.*",
				IssuedAt:  1,
				ExpiresAt: 2,
				Signature: "00ff",
			},
		},
		{
			name: "identifiers with URL-ish characters",
			token: interfaces.ConsentToken{
				SubjectID: "did:hushh:u42",
				GranteeID: "agent/2.0",
				Scope:     "attr.food.dietary",
				IssuedAt:  1700000000000,
				ExpiresAt: 1700003600000,
				Signature: "aa",
			},
		},
		{
			name: "owner token",
			token: interfaces.ConsentToken{
				SubjectID: "u1",
				GranteeID: "u1",
				Scope:     interfaces.OwnerScope,
				IssuedAt:  1700000000000,
				ExpiresAt: 1700000900000,
				Signature: "0123456789abcdef",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			wire := EncodeToken(tc.token)
			require.True(t, strings.HasPrefix(wire, "HCT:"))

			decoded, err := DecodeToken(wire)
			require.NoError(t, err)
			require.Equal(t, tc.token, decoded)
		})
	}
}

func requireDecodeKind(t *testing.T, wire string, kind interfaces.DecodeErrorKind) {
	t.Helper()

	_, err := DecodeToken(wire)
	require.Error(t, err)

	decodeErr, ok := interfaces.IsDecodeError(err)
	require.True(t, ok, "expected a DecodeError, got %v", err)
	require.Equal(t, kind, decodeErr.Kind, "wire %q", wire)
}

func TestDecodeMalformedPrefix(t *testing.T) {
	for _, wire := range []string{
		"",
		"garbage",
		"hct:eDp4.ab",
		"HCT",
		"TCH:eDp4.ab",
		"HCT:seg:ment.ab",
		"eDp4.ab",
	} {
		requireDecodeKind(t, wire, interfaces.DecodeMalformedPrefix)
	}
}

func TestDecodeMalformedSignatureSeparator(t *testing.T) {
	for _, wire := range []string{
		"HCT:",
		"HCT:eDp4",
		"HCT:eDp4.ab.cd",
	} {
		requireDecodeKind(t, wire, interfaces.DecodeMalformedSignatureSeparator)
	}
}

func TestDecodeBase64Failure(t *testing.T) {
	for _, wire := range []string{
		"HCT:!!!.ab",
		"HCT:a=b.ab",
		"HCT:eDp 4.ab",
	} {
		requireDecodeKind(t, wire, interfaces.DecodeBase64Failure)
	}
}

func TestDecodeFieldCountMismatch(t *testing.T) {
	// Four fields and six fields, both structurally sound otherwise
	requireDecodeKind(t, "HCT:"+b64("a|b|c|1")+".mac", interfaces.DecodeFieldCountMismatch)
	requireDecodeKind(t, "HCT:"+b64("a|b|c|1|2|3")+".mac", interfaces.DecodeFieldCountMismatch)
	requireDecodeKind(t, "HCT:"+b64("")+".mac", interfaces.DecodeFieldCountMismatch)
}

func TestDecodeNonNumericTimestamp(t *testing.T) {
	requireDecodeKind(t, "HCT:"+b64("u|g|s|abc|123")+".mac", interfaces.DecodeNonNumericTimestamp)
	requireDecodeKind(t, "HCT:"+b64("u|g|s|123|12:00")+".mac", interfaces.DecodeNonNumericTimestamp)
	requireDecodeKind(t, "HCT:"+b64("u|g|s||123")+".mac", interfaces.DecodeNonNumericTimestamp)
}

// FuzzDecodeToken checks that arbitrary wire strings either fail with a
// typed decode error or decode to a token whose canonical re-encoding
// decodes identically.
func FuzzDecodeToken(f *testing.F) {
	f.Add("HCT:" + b64("u1|agent1|attr.financial.risk_profile|1700000000000|1700003600000") + ".deadbeef")
	f.Add("HCT:eDp4.ab")
	f.Add("not a token")
	f.Add("HCT:!!!.")

	f.Fuzz(func(t *testing.T, wire string) {
		token, err := DecodeToken(wire)
		if err != nil {
			if _, ok := interfaces.IsDecodeError(err); !ok {
				t.Fatalf("decode returned a non-DecodeError: %v", err)
			}
			return
		}

		again, err := DecodeToken(EncodeToken(token))
		require.NoError(t, err)
		require.Equal(t, token, again)
	})
}
