package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"

	"github.com/hushh-labs/consent-core/interfaces"
)

// VaultKVBackend implements a blob store on a HashiCorp Vault KV v2 mount.
// Sealed key material in a Vault server is a natural fit for users who
// already run one; the blobs remain client-side encrypted, so the Vault
// operator never holds anything it could open.
type VaultKVBackend struct {
	client      *api.Client
	mountPath   string
	dataPath    string
	log         *slog.Logger
	locationURI string
}

// NewVaultKVBackend creates a Vault blob store.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - token: Vault token; empty falls back to the client's environment
//   - mountPath: KV v2 mount path (e.g. "secret")
//   - dataPath: path prefix within the mount (e.g. "consent")
//   - log: structured logger
func NewVaultKVBackend(address, token, mountPath, dataPath string, log *slog.Logger) (*VaultKVBackend, error) {
	config := api.DefaultConfig()
	config.Address = address

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}

	mountPath = strings.Trim(mountPath, "/")
	dataPath = strings.Trim(dataPath, "/")

	return &VaultKVBackend{
		client:      client,
		mountPath:   mountPath,
		dataPath:    dataPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", strings.TrimPrefix(strings.TrimPrefix(address, "https://"), "http://"), mountPath, dataPath),
	}, nil
}

// Put stores a blob, replacing any existing blob under the same key. KV v2
// keeps prior versions; the store contract only promises the latest one.
func (b *VaultKVBackend) Put(ctx context.Context, userID, domain string, blob interfaces.EncryptedBlob) error {
	data, err := marshalBlob(blob)
	if err != nil {
		return err
	}

	path := b.secretPath(userID, domain)
	secretData := map[string]interface{}{
		"data": map[string]interface{}{
			"blob": string(data),
		},
	}

	_, err = b.client.Logical().WriteWithContext(ctx, path, secretData)
	if err != nil {
		b.log.Error("Failed to write to Vault",
			slog.String("path", path),
			"err", err)
		return fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}

	b.log.Debug("Stored blob in Vault",
		slog.String("path", path),
		slog.Int("size", len(data)))

	return nil
}

// Get retrieves a blob. Returns ErrBlobNotFound if no secret exists under
// the key.
func (b *VaultKVBackend) Get(ctx context.Context, userID, domain string) (interfaces.EncryptedBlob, error) {
	path := b.secretPath(userID, domain)

	secret, err := b.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		b.log.Error("Failed to read from Vault",
			slog.String("path", path),
			"err", err)
		return interfaces.EncryptedBlob{}, fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return interfaces.EncryptedBlob{}, interfaces.ErrBlobNotFound
	}

	// KV v2 nests the written fields under a "data" key
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		// A deleted latest version leaves metadata with nil data
		return interfaces.EncryptedBlob{}, interfaces.ErrBlobNotFound
	}
	raw, ok := data["blob"].(string)
	if !ok {
		return interfaces.EncryptedBlob{}, fmt.Errorf("blob key missing in Vault secret at %s", path)
	}

	return unmarshalBlob([]byte(raw))
}

// Delete removes the latest version of a blob. Deleting a missing blob is
// not an error.
func (b *VaultKVBackend) Delete(ctx context.Context, userID, domain string) error {
	path := b.secretPath(userID, domain)
	_, err := b.client.Logical().DeleteWithContext(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}
	return nil
}

// Available checks if the Vault server is initialized and unsealed.
func (b *VaultKVBackend) Available(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := b.client.Sys().HealthWithContext(healthCtx)
	if err != nil {
		b.log.Debug("Vault health check failed", "err", err)
		return false
	}
	if !health.Initialized || health.Sealed {
		b.log.Debug("Vault is not available",
			slog.Bool("initialized", health.Initialized),
			slog.Bool("sealed", health.Sealed))
		return false
	}
	return true
}

// Name returns a unique identifier for this storage backend.
func (b *VaultKVBackend) Name() string {
	return fmt.Sprintf("vault-%s-%s", b.mountPath, b.dataPath)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *VaultKVBackend) LocationURI() string {
	return b.locationURI
}

// secretPath builds the KV v2 data path for a blob key.
func (b *VaultKVBackend) secretPath(userID, domain string) string {
	return fmt.Sprintf("%s/data/%s/%s/%s", b.mountPath, b.dataPath, userKey(userID), domain)
}
