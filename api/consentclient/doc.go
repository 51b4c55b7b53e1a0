// Package consentclient provides the HTTP client for the consent service
// and an in-process stub of that service.
//
// Client implements interfaces.TokenMinter and interfaces.RevocationRegistry
// over the service REST API, so a vault session manager or a remote-backed
// validator can be pointed at a deployment without any HTTP knowledge of its
// own. StubService implements the same API in memory around a real
// consent.Issuer and identity verifier, which lets end-to-end tests and
// local development runs exercise genuine signed tokens.
package consentclient
