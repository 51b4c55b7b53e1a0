package revocation

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryRegistryRevoke(t *testing.T) {
	registry := NewMemoryRegistry()
	ctx := context.Background()

	revoked, err := registry.IsRevoked(ctx, "HCT:abc.def")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, registry.Revoke(ctx, "HCT:abc.def"))

	revoked, err = registry.IsRevoked(ctx, "HCT:abc.def")
	require.NoError(t, err)
	require.True(t, revoked)

	// Other credentials are unaffected
	revoked, err = registry.IsRevoked(ctx, "HCT:abc.d3f")
	require.NoError(t, err)
	require.False(t, revoked)

	// Revoking twice is not an error and not a second entry
	require.NoError(t, registry.Revoke(ctx, "HCT:abc.def"))
	require.Equal(t, 1, registry.Len())
}

// TestMemoryRegistryConcurrency hammers the registry from concurrent
// readers and writers; the race detector is the real assertion here.
func TestMemoryRegistryConcurrency(t *testing.T) {
	registry := NewMemoryRegistry()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = registry.Revoke(ctx, fmt.Sprintf("token-%d-%d", n, j))
			}
		}(i)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = registry.IsRevoked(ctx, fmt.Sprintf("token-%d-%d", n, j))
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 16*100, registry.Len())
}
