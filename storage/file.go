package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hushh-labs/consent-core/interfaces"
)

// FileBackend implements a blob store on the local file system. Blobs live
// under baseDir/blobs/<user hash>/<domain>.json.
type FileBackend struct {
	baseDir     string
	log         *slog.Logger
	locationURI string
}

// NewFileBackend creates a file blob store rooted at baseDir, creating the
// directory if needed. Directories and files are private to the owning
// process user; the blobs are ciphertext but their existence and domains
// still reveal usage.
func NewFileBackend(baseDir string, log *slog.Logger) (*FileBackend, error) {
	if err := os.MkdirAll(filepath.Join(baseDir, "blobs"), 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FileBackend{
		baseDir:     baseDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

// Put stores a blob, replacing any existing blob under the same key.
func (b *FileBackend) Put(ctx context.Context, userID, domain string, blob interfaces.EncryptedBlob) error {
	data, err := marshalBlob(blob)
	if err != nil {
		return err
	}

	path := b.blobPath(userID, domain)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create user directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write blob: %w", err)
	}

	b.log.Debug("Stored blob in file",
		slog.String("path", path),
		slog.Int("size", len(data)))

	return nil
}

// Get retrieves a blob. Returns ErrBlobNotFound if no blob exists under the
// key.
func (b *FileBackend) Get(ctx context.Context, userID, domain string) (interfaces.EncryptedBlob, error) {
	path := b.blobPath(userID, domain)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return interfaces.EncryptedBlob{}, interfaces.ErrBlobNotFound
	}
	if err != nil {
		return interfaces.EncryptedBlob{}, fmt.Errorf("failed to read blob: %w", err)
	}

	b.log.Debug("Fetched blob from file",
		slog.String("path", path),
		slog.Int("size", len(data)))

	return unmarshalBlob(data)
}

// Delete removes a blob. Deleting a missing blob is not an error.
func (b *FileBackend) Delete(ctx context.Context, userID, domain string) error {
	err := os.Remove(b.blobPath(userID, domain))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// Available checks if the backend is accessible by verifying the base
// directory exists.
func (b *FileBackend) Available(ctx context.Context) bool {
	_, err := os.Stat(b.baseDir)
	if err != nil {
		b.log.Debug("File backend unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this storage backend.
func (b *FileBackend) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(b.baseDir))
}

// LocationURI returns the URI that identifies this storage backend.
func (b *FileBackend) LocationURI() string {
	return b.locationURI
}

func (b *FileBackend) blobPath(userID, domain string) string {
	return filepath.Join(b.baseDir, "blobs", userKey(userID), domain+".json")
}
