package storage

import (
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/hushh-labs/consent-core/interfaces"
)

// Factory creates blob stores from parsed locations and composes
// multi-backend configurations for redundant storage.
type Factory struct {
	log *slog.Logger
}

// NewFactory creates a factory. It implements interfaces.BlobStoreFactory.
func NewFactory(log *slog.Logger) *Factory {
	return &Factory{log: log}
}

// StoreFor creates a blob store for a single location.
//
// Supported schemes:
//   - file:// - Local file system storage
//   - s3:// - Amazon S3 or compatible object storage
//   - vault:// - HashiCorp Vault KV v2 secret storage
//   - ipfs:// - IPFS with an IPNS-published key index
func (f *Factory) StoreFor(location interfaces.BlobLocation) (interfaces.BlobStore, error) {
	switch {
	case location.IsFile():
		return f.createFileStore(location)
	case location.IsS3():
		return f.createS3Store(location)
	case location.IsVault():
		return f.createVaultStore(location)
	case location.IsIPFS():
		return f.createIPFSStore(location)
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", interfaces.ErrInvalidLocationURI, location.Scheme)
	}
}

// MultiStoreFor composes a replicating store over several locations.
// Locations that fail to construct are skipped with a warning; at least one
// member must construct.
func (f *Factory) MultiStoreFor(locations []interfaces.BlobLocation) (interfaces.BlobStore, error) {
	stores := make([]interfaces.BlobStore, 0, len(locations))

	for _, location := range locations {
		store, err := f.StoreFor(location)
		if err != nil {
			f.log.Warn("Failed to create blob store",
				"err", err,
				slog.String("location", location.String()))
			continue
		}
		stores = append(stores, store)
	}

	if len(stores) == 0 {
		return nil, fmt.Errorf("no valid blob stores created")
	}

	return NewMultiStore(stores, f.log), nil
}

// createFileStore creates a file system blob store.
// URI format: file:///absolute/path or file://./relative/path
func (f *Factory) createFileStore(location interfaces.BlobLocation) (interfaces.BlobStore, error) {
	f.log.Debug("Creating file store", slog.String("uri", location.String()))

	path := location.Path
	if location.Host != "" {
		path = location.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty path in file URI %q", interfaces.ErrInvalidLocationURI, location.Raw)
	}

	return NewFileBackend(path, f.log)
}

// createS3Store creates an S3 or S3-compatible blob store.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket/prefix?region=us-west-2&endpoint=minio.local:9000
func (f *Factory) createS3Store(location interfaces.BlobLocation) (interfaces.BlobStore, error) {
	f.log.Debug("Creating S3 store", slog.String("bucket", location.Host))

	region := location.GetParam("region")
	if region == "" {
		region = "us-east-1"
	}

	var accessKey, secretKey string
	if location.Auth != "" {
		parts := strings.SplitN(location.Auth, ":", 2)
		accessKey = parts[0]
		if len(parts) == 2 {
			secretKey = parts[1]
		}
	}

	prefix := strings.TrimPrefix(location.Path, "/")
	return NewS3Backend(location.Host, prefix, region, location.GetParam("endpoint"), accessKey, secretKey, f.log)
}

// createVaultStore creates a HashiCorp Vault blob store.
// URI format: vault://vault.example.com:8200/secret/consent?token=...
// The first path segment is the KV v2 mount, the rest is the data prefix.
func (f *Factory) createVaultStore(location interfaces.BlobLocation) (interfaces.BlobStore, error) {
	f.log.Debug("Creating Vault store", slog.String("host", location.Host))

	scheme := "https"
	if location.GetParamBool("insecure") {
		scheme = "http"
	}
	address := fmt.Sprintf("%s://%s", scheme, location.Host)

	mountPath := "secret"
	dataPath := "consent"
	if trimmed := strings.Trim(location.Path, "/"); trimmed != "" {
		segments := strings.SplitN(trimmed, "/", 2)
		mountPath = segments[0]
		if len(segments) == 2 {
			dataPath = segments[1]
		}
	}

	token := location.GetParam("token")
	if token == "" {
		token = location.Auth
	}

	return NewVaultKVBackend(address, token, mountPath, dataPath, f.log)
}

// createIPFSStore creates an IPFS blob store.
// URI format: ipfs://host:port/
func (f *Factory) createIPFSStore(location interfaces.BlobLocation) (interfaces.BlobStore, error) {
	f.log.Debug("Creating IPFS store", slog.String("host", location.Host))

	host, port, err := net.SplitHostPort(location.Host)
	if err != nil {
		host = location.Host
		port = "5001"
	}

	return NewIPFSBackend(host, port, f.log)
}
