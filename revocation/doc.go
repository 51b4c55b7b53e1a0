// Package revocation provides RevocationRegistry implementations.
//
// MemoryRegistry is the advisory in-process set: fast, always available, and
// gone on restart. PostgresRegistry persists revocations durably, storing
// only hashes of the revoked credentials. CompositeRegistry chains members
// so a client can consult its local set first and a durable store second,
// with an explicit choice between failing open and failing closed when a
// durable member is unreachable.
//
// Consent tokens are keyed by their raw wire string, trust links by their
// hex signature. Registries do not interpret the strings they store.
package revocation
