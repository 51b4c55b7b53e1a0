package revocation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hushh-labs/consent-core/interfaces"
)

// CompositeRegistry chains registries in order, typically a MemoryRegistry
// for immediate local effect followed by a durable store for cross-client
// visibility.
//
// The availability tradeoff is explicit: by default a failing member is
// advisory (logged and skipped, remaining members still consulted), while
// FailClosed makes any member failure block the credential. The owner-token
// path runs fail-closed.
type CompositeRegistry struct {
	members    []interfaces.RevocationRegistry
	failClosed bool
	log        *slog.Logger
}

// NewCompositeRegistry creates a registry consulting members in order.
func NewCompositeRegistry(log *slog.Logger, members ...interfaces.RevocationRegistry) (*CompositeRegistry, error) {
	if len(members) == 0 {
		return nil, errors.New("at least one registry member required")
	}
	return &CompositeRegistry{members: members, log: log}, nil
}

// FailClosed returns a copy that treats any member error as a blocking
// failure instead of degrading to the remaining members.
func (c *CompositeRegistry) FailClosed() *CompositeRegistry {
	return &CompositeRegistry{members: c.members, failClosed: true, log: c.log}
}

// Revoke writes through to every member. Failures are joined into one
// error; members that succeeded stay revoked regardless.
func (c *CompositeRegistry) Revoke(ctx context.Context, credential string) error {
	var errs []error
	for _, member := range c.members {
		if err := member.Revoke(ctx, credential); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// IsRevoked returns true as soon as any member reports the credential
// revoked. Behavior on a member error follows the fail policy.
func (c *CompositeRegistry) IsRevoked(ctx context.Context, credential string) (bool, error) {
	for _, member := range c.members {
		revoked, err := member.IsRevoked(ctx, credential)
		if err != nil {
			if c.failClosed {
				return false, fmt.Errorf("revocation member failed: %w", err)
			}
			c.log.Warn("Revocation member failed, treating as advisory",
				slog.String("credential", interfaces.Fingerprint(credential)),
				"err", err)
			continue
		}
		if revoked {
			return true, nil
		}
	}
	return false, nil
}
