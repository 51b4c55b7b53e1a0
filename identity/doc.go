// Package identity supplies the bearer credentials exchanged for owner
// tokens.
//
// Production deployments bring their own identity provider; this package
// defines the consuming side plus two self-contained implementations. The
// StaticProvider hands out fixed credentials for tests. The LocalIssuer
// mints and verifies HS256 JWTs against a shared secret, which is what the
// bundled development stub accepts.
package identity
