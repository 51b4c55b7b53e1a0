package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hushh-labs/consent-core/interfaces"
)

// MultiStore replicates blobs across several backends. Writes go to every
// available member and succeed if at least one does; reads return the first
// member's copy. Replication is why a lost laptop or a dead bucket does not
// lose the sealed key material stored through it.
type MultiStore struct {
	stores []interfaces.BlobStore
	log    *slog.Logger
}

// NewMultiStore creates a replicating store over the given members.
func NewMultiStore(stores []interfaces.BlobStore, log *slog.Logger) *MultiStore {
	if log == nil {
		log = slog.Default()
	}
	return &MultiStore{stores: stores, log: log}
}

// Put stores the blob in every available member. It succeeds if at least
// one member accepted the write; members that failed are logged and the
// caller should expect reads to repair nothing on their own.
func (m *MultiStore) Put(ctx context.Context, userID, domain string, blob interfaces.EncryptedBlob) error {
	start := time.Now()
	var errs []error
	var stored int

	for _, store := range m.stores {
		if !store.Available(ctx) {
			m.log.Debug("Store unavailable", slog.String("store", store.Name()))
			continue
		}

		if err := store.Put(ctx, userID, domain, blob); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", store.Name(), err))
			m.log.Debug("Failed to store blob",
				slog.String("store", store.Name()),
				"err", err)
			continue
		}
		stored++
	}

	if stored == 0 {
		m.log.Error("All stores failed to accept blob",
			slog.Int("failed_stores", len(errs)),
			slog.Duration("duration", time.Since(start)))
		if len(errs) == 0 {
			return interfaces.ErrStoreUnavailable
		}
		return fmt.Errorf("all stores failed to accept blob: %v", errs)
	}

	m.log.Debug("Stored blob",
		slog.Int("stores", stored),
		slog.Duration("duration", time.Since(start)))

	return nil
}

// Get returns the blob from the first member holding it. It reports
// ErrBlobNotFound only when every consulted member reported not found.
func (m *MultiStore) Get(ctx context.Context, userID, domain string) (interfaces.EncryptedBlob, error) {
	var errs []error
	var consulted, missing int

	for _, store := range m.stores {
		if !store.Available(ctx) {
			m.log.Debug("Store unavailable", slog.String("store", store.Name()))
			continue
		}
		consulted++

		blob, err := store.Get(ctx, userID, domain)
		if err == nil {
			return blob, nil
		}
		if errors.Is(err, interfaces.ErrBlobNotFound) {
			missing++
			continue
		}
		errs = append(errs, fmt.Errorf("%s: %w", store.Name(), err))
	}

	if consulted == 0 {
		return interfaces.EncryptedBlob{}, interfaces.ErrStoreUnavailable
	}
	if missing == consulted {
		return interfaces.EncryptedBlob{}, interfaces.ErrBlobNotFound
	}
	return interfaces.EncryptedBlob{}, fmt.Errorf("all stores failed to fetch blob: %v", errs)
}

// Delete removes the blob from every available member, continuing past
// failures so one broken member cannot pin data in the others.
func (m *MultiStore) Delete(ctx context.Context, userID, domain string) error {
	var errs []error

	for _, store := range m.stores {
		if !store.Available(ctx) {
			m.log.Debug("Store unavailable", slog.String("store", store.Name()))
			continue
		}
		if err := store.Delete(ctx, userID, domain); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", store.Name(), err))
		}
	}

	return errors.Join(errs...)
}

// Available checks if any member is accessible.
func (m *MultiStore) Available(ctx context.Context) bool {
	for _, store := range m.stores {
		if store.Available(ctx) {
			return true
		}
	}
	return false
}

// Name returns a unique identifier for this storage backend.
func (m *MultiStore) Name() string {
	return "multi-store"
}

// LocationURI returns the combined URI of all members.
func (m *MultiStore) LocationURI() string {
	var locations []string
	for _, store := range m.stores {
		locations = append(locations, store.LocationURI())
	}
	return "multi:[" + strings.Join(locations, ",") + "]"
}
