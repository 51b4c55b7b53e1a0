package identity

import (
	"context"
	"fmt"
)

// StaticProvider returns pre-configured credentials per user. Useful in
// tests and for wiring a stub before a real identity provider exists.
type StaticProvider struct {
	credentials map[string]string
}

// NewStaticProvider creates a provider over a fixed userID to credential
// map. The map is copied.
func NewStaticProvider(credentials map[string]string) *StaticProvider {
	copied := make(map[string]string, len(credentials))
	for userID, credential := range credentials {
		copied[userID] = credential
	}
	return &StaticProvider{credentials: copied}
}

// Credential returns the configured credential for a user.
func (p *StaticProvider) Credential(ctx context.Context, userID string) (string, error) {
	credential, ok := p.credentials[userID]
	if !ok {
		return "", fmt.Errorf("no credential configured for user %q", userID)
	}
	return credential, nil
}
