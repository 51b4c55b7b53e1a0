// Package api declares the request and response schemas of the consent
// service HTTP API.
//
// The consent service itself is an external collaborator; this module ships
// the schemas, the consuming client (api/consentclient) and an in-process
// stub of the service for development and tests. Client and stub agree on
// these types, so integration tests run the real wire shapes end to end.
//
// Decoding is strict: payloads with unknown fields are rejected rather than
// silently defaulted, which catches schema drift between the two sides at
// the boundary instead of deep inside a handler.
package api
