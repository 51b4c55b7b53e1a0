// Package consent implements the consent token protocol: a compact,
// HMAC-signed bearer token granting scoped data access, and the countersigned
// trust links that delegate a scope between agents.
//
// The wire format of a consent token is
//
//	HCT:<base64url(subjectId|granteeId|scope|issuedAtMs|expiresAtMs)>.<hex hmac-sha256>
//
// with the payload encoded as unpadded base64url and the signature computed
// over the plaintext pipe-joined tuple. Every client surface decodes tokens
// minted by any other, so the encoding is byte-for-byte reproducible.
//
// The package splits responsibilities the way the wire format suggests:
//
//   - Codec functions translate between wire strings and structured tokens,
//     purely and without any secret material.
//   - Signer holds the shared secret and computes or verifies MACs, with
//     constant-time comparison on the verify path.
//   - Issuer builds freshly signed tokens and trust links.
//   - Validator runs the fixed validation sequence: revocation, structure,
//     signature, scope, expiry; the first failure decides the result.
package consent
