// Package discovery locates a domain's consent service endpoint through the
// _consent._tcp DNS SRV convention, for wiring up a consentclient.Client
// without hardcoded addresses.
package discovery
