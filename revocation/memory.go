package revocation

import (
	"context"
	"sync"
)

// MemoryRegistry is a mutex-guarded in-process revocation set. It is
// advisory: not durable, not shared across clients. Expected cardinality is
// hundreds of entries, so a plain map under a RWMutex is enough.
type MemoryRegistry struct {
	mu      sync.RWMutex
	revoked map[string]struct{}
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{revoked: make(map[string]struct{})}
}

// Revoke marks a credential as revoked. Idempotent.
func (r *MemoryRegistry) Revoke(ctx context.Context, credential string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[credential] = struct{}{}
	return nil
}

// IsRevoked reports whether a credential has been revoked. Never errors.
func (r *MemoryRegistry) IsRevoked(ctx context.Context, credential string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.revoked[credential]
	return ok, nil
}

// Len returns the number of revoked credentials.
func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.revoked)
}
