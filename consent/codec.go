package consent

import (
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/hushh-labs/consent-core/interfaces"
)

// WirePrefix starts every encoded consent token.
const WirePrefix = "HCT"

// EncodeToken serializes a token into its compact wire form. The payload
// segment is the unpadded base64url encoding of the pipe-joined plaintext
// fields; the lowercase hex signature follows the final dot.
func EncodeToken(token interfaces.ConsentToken) string {
	payload := base64.RawURLEncoding.EncodeToString([]byte(token.CanonicalPayload()))
	return WirePrefix + ":" + payload + "." + token.Signature
}

// DecodeToken parses a wire string back into its fields. Failures are
// *interfaces.DecodeError values discriminated by kind. Decoding is purely
// structural: a cryptographically wrong signature is not a decode failure
// and is left to the Validator, which keeps this function usable without any
// secret material.
func DecodeToken(wire string) (interfaces.ConsentToken, error) {
	segments := strings.Split(wire, ":")
	if len(segments) != 2 || segments[0] != WirePrefix {
		return interfaces.ConsentToken{}, &interfaces.DecodeError{Kind: interfaces.DecodeMalformedPrefix}
	}

	body := segments[1]
	if strings.Count(body, ".") != 1 {
		return interfaces.ConsentToken{}, &interfaces.DecodeError{Kind: interfaces.DecodeMalformedSignatureSeparator}
	}
	dot := strings.Index(body, ".")
	payloadSegment, mac := body[:dot], body[dot+1:]

	payload, err := base64.RawURLEncoding.DecodeString(payloadSegment)
	if err != nil {
		return interfaces.ConsentToken{}, &interfaces.DecodeError{Kind: interfaces.DecodeBase64Failure, Detail: err.Error()}
	}

	fields := strings.Split(string(payload), "|")
	if len(fields) != 5 {
		return interfaces.ConsentToken{}, &interfaces.DecodeError{
			Kind:   interfaces.DecodeFieldCountMismatch,
			Detail: strconv.Itoa(len(fields)) + " fields",
		}
	}

	issuedAt, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return interfaces.ConsentToken{}, &interfaces.DecodeError{Kind: interfaces.DecodeNonNumericTimestamp, Detail: "issuedAt"}
	}
	expiresAt, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return interfaces.ConsentToken{}, &interfaces.DecodeError{Kind: interfaces.DecodeNonNumericTimestamp, Detail: "expiresAt"}
	}

	return interfaces.ConsentToken{
		SubjectID: fields[0],
		GranteeID: fields[1],
		Scope:     interfaces.Scope(fields[2]),
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
		Signature: mac,
	}, nil
}
