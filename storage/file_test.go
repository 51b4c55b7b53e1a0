package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hushh-labs/consent-core/interfaces"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testBlob builds a structurally valid encrypted blob. Stores never inspect
// ciphertext, so the bytes only need the right shape.
func testBlob(seed byte) interfaces.EncryptedBlob {
	return interfaces.EncryptedBlob{
		Ciphertext: bytes.Repeat([]byte{seed}, 48),
		IV:         bytes.Repeat([]byte{seed ^ 0xFF}, 12),
		AuthTag:    bytes.Repeat([]byte{seed ^ 0x0F}, 16),
		Algorithm:  interfaces.BlobAlgorithmAESGCM,
	}
}

func TestFileBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend, err := NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)

	blob := testBlob(0x11)
	require.NoError(t, backend.Put(ctx, "did:hushh:u42", "attr.food", blob))

	got, err := backend.Get(ctx, "did:hushh:u42", "attr.food")
	require.NoError(t, err)
	assert.Equal(t, blob, got)
}

func TestFileBackendGetMissing(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)

	_, err = backend.Get(context.Background(), "u1", "attr.food")
	require.ErrorIs(t, err, interfaces.ErrBlobNotFound)
}

func TestFileBackendPutReplaces(t *testing.T) {
	ctx := context.Background()
	backend, err := NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)

	require.NoError(t, backend.Put(ctx, "u1", "attr.food", testBlob(0x11)))
	require.NoError(t, backend.Put(ctx, "u1", "attr.food", testBlob(0x22)))

	got, err := backend.Get(ctx, "u1", "attr.food")
	require.NoError(t, err)
	assert.Equal(t, testBlob(0x22), got)
}

func TestFileBackendKeysAreIsolated(t *testing.T) {
	ctx := context.Background()
	backend, err := NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)

	require.NoError(t, backend.Put(ctx, "u1", "attr.food", testBlob(0x11)))
	require.NoError(t, backend.Put(ctx, "u1", "attr.financial", testBlob(0x22)))
	require.NoError(t, backend.Put(ctx, "u2", "attr.food", testBlob(0x33)))

	got, err := backend.Get(ctx, "u1", "attr.food")
	require.NoError(t, err)
	assert.Equal(t, testBlob(0x11), got)

	got, err = backend.Get(ctx, "u2", "attr.food")
	require.NoError(t, err)
	assert.Equal(t, testBlob(0x33), got)

	_, err = backend.Get(ctx, "u2", "attr.financial")
	require.ErrorIs(t, err, interfaces.ErrBlobNotFound)
}

func TestFileBackendDelete(t *testing.T) {
	ctx := context.Background()
	backend, err := NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)

	require.NoError(t, backend.Put(ctx, "u1", "attr.food", testBlob(0x11)))
	require.NoError(t, backend.Delete(ctx, "u1", "attr.food"))

	_, err = backend.Get(ctx, "u1", "attr.food")
	require.ErrorIs(t, err, interfaces.ErrBlobNotFound)

	// Deleting again is not an error
	require.NoError(t, backend.Delete(ctx, "u1", "attr.food"))
}

func TestFileBackendRejectsCorruptBlob(t *testing.T) {
	ctx := context.Background()
	backend, err := NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)

	require.NoError(t, backend.Put(ctx, "u1", "attr.food", testBlob(0x11)))

	path := backend.blobPath("u1", "attr.food")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0600))
	_, err = backend.Get(ctx, "u1", "attr.food")
	require.Error(t, err)

	// A parseable record with a foreign algorithm label is also rejected
	foreign, err := json.Marshal(map[string]any{
		"ciphertext": []byte{1, 2, 3},
		"iv":         bytes.Repeat([]byte{0}, 12),
		"auth_tag":   bytes.Repeat([]byte{0}, 16),
		"algorithm":  "AES-256-CBC",
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, foreign, 0600))
	_, err = backend.Get(ctx, "u1", "attr.food")
	require.Error(t, err)
	require.Contains(t, err.Error(), "algorithm")
}

func TestFileBackendAvailable(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend(dir, testLogger())
	require.NoError(t, err)

	require.True(t, backend.Available(context.Background()))

	require.NoError(t, os.RemoveAll(dir))
	require.False(t, backend.Available(context.Background()))
}

func TestFileBackendIdentity(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend(dir, testLogger())
	require.NoError(t, err)

	assert.Contains(t, backend.Name(), "file-")
	assert.Equal(t, "file://"+dir, backend.LocationURI())
}
