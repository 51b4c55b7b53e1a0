package revocation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

// brokenRegistry fails every operation, standing in for an unreachable
// durable store.
type brokenRegistry struct {
	err error
}

func (r *brokenRegistry) Revoke(ctx context.Context, credential string) error {
	return r.err
}

func (r *brokenRegistry) IsRevoked(ctx context.Context, credential string) (bool, error) {
	return false, r.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCompositeFirstMatchWins(t *testing.T) {
	ctx := context.Background()
	local := NewMemoryRegistry()
	durable := NewMemoryRegistry()

	composite, err := NewCompositeRegistry(testLogger(), local, durable)
	require.NoError(t, err)

	require.NoError(t, durable.Revoke(ctx, "token-a"))

	revoked, err := composite.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	require.True(t, revoked, "revocation in any member must be visible")

	revoked, err = composite.IsRevoked(ctx, "token-b")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestCompositeRevokeWritesThrough(t *testing.T) {
	ctx := context.Background()
	local := NewMemoryRegistry()
	durable := NewMemoryRegistry()

	composite, err := NewCompositeRegistry(testLogger(), local, durable)
	require.NoError(t, err)

	require.NoError(t, composite.Revoke(ctx, "token-a"))

	for _, member := range []*MemoryRegistry{local, durable} {
		revoked, err := member.IsRevoked(ctx, "token-a")
		require.NoError(t, err)
		require.True(t, revoked)
	}
}

func TestCompositeAdvisorySkipsBrokenMember(t *testing.T) {
	ctx := context.Background()
	local := NewMemoryRegistry()
	broken := &brokenRegistry{err: errors.New("connection refused")}

	composite, err := NewCompositeRegistry(testLogger(), broken, local)
	require.NoError(t, err)

	require.NoError(t, local.Revoke(ctx, "token-a"))

	// Advisory mode consults the healthy member despite the broken one
	revoked, err := composite.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	require.True(t, revoked)

	revoked, err = composite.IsRevoked(ctx, "token-b")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestCompositeFailClosedBlocksOnBrokenMember(t *testing.T) {
	ctx := context.Background()
	local := NewMemoryRegistry()
	broken := &brokenRegistry{err: errors.New("connection refused")}

	composite, err := NewCompositeRegistry(testLogger(), broken, local)
	require.NoError(t, err)

	_, err = composite.FailClosed().IsRevoked(ctx, "token-a")
	require.Error(t, err, "fail-closed must surface the member failure")
}

func TestCompositeRevokePartialFailure(t *testing.T) {
	ctx := context.Background()
	local := NewMemoryRegistry()
	broken := &brokenRegistry{err: errors.New("connection refused")}

	composite, err := NewCompositeRegistry(testLogger(), local, broken)
	require.NoError(t, err)

	err = composite.Revoke(ctx, "token-a")
	require.Error(t, err, "a failed member surfaces even when others succeed")

	revoked, err := local.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	require.True(t, revoked, "successful members keep the revocation")
}

func TestCompositeRequiresMembers(t *testing.T) {
	_, err := NewCompositeRegistry(testLogger())
	require.Error(t, err)
}
