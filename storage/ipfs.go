package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	shell "github.com/ipfs/go-ipfs-api"

	"github.com/hushh-labs/consent-core/interfaces"
)

// IPFSBackend implements a blob store on an IPFS node. IPFS addresses
// content by hash, so keyed lookup goes through an index object mapping
// blob keys to CIDs; the index itself is published under the node's IPNS
// name and republished on every write.
//
// The index only holds CIDs of ciphertext blobs. Anyone resolving the IPNS
// name learns which keys exist but can open none of them.
type IPFSBackend struct {
	shell       *shell.Shell
	host        string
	port        string
	log         *slog.Logger
	locationURI string

	// mu serializes index read-modify-write cycles within this process.
	mu sync.Mutex
}

// NewIPFSBackend creates an IPFS blob store talking to the node API at
// host:port. The node must have a key to publish under, which every
// default-configured node does.
func NewIPFSBackend(host, port string, log *slog.Logger) (*IPFSBackend, error) {
	apiURL := fmt.Sprintf("%s:%s", host, port)

	return &IPFSBackend{
		shell:       shell.NewShell(apiURL),
		host:        host,
		port:        port,
		log:         log,
		locationURI: fmt.Sprintf("ipfs://%s/", apiURL),
	}, nil
}

// Put stores a blob and republishes the key index.
func (b *IPFSBackend) Put(ctx context.Context, userID, domain string, blob interfaces.EncryptedBlob) error {
	data, err := marshalBlob(blob)
	if err != nil {
		return err
	}

	if !b.shell.IsUp() {
		return interfaces.ErrStoreUnavailable
	}

	cid, err := b.shell.Add(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to add blob to IPFS: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	index, err := b.loadIndex()
	if err != nil {
		return err
	}
	index[blobKey(userID, domain)] = cid
	if err := b.publishIndex(index); err != nil {
		return err
	}

	b.log.Debug("Stored blob in IPFS",
		slog.String("cid", cid),
		slog.Int("size", len(data)))

	return nil
}

// Get retrieves a blob through the published index. Returns ErrBlobNotFound
// if the index has no entry for the key.
func (b *IPFSBackend) Get(ctx context.Context, userID, domain string) (interfaces.EncryptedBlob, error) {
	if !b.shell.IsUp() {
		return interfaces.EncryptedBlob{}, interfaces.ErrStoreUnavailable
	}

	b.mu.Lock()
	index, err := b.loadIndex()
	b.mu.Unlock()
	if err != nil {
		return interfaces.EncryptedBlob{}, err
	}

	cid, ok := index[blobKey(userID, domain)]
	if !ok {
		return interfaces.EncryptedBlob{}, interfaces.ErrBlobNotFound
	}

	reader, err := b.shell.Cat("/ipfs/" + cid)
	if err != nil {
		return interfaces.EncryptedBlob{}, fmt.Errorf("failed to fetch blob from IPFS: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return interfaces.EncryptedBlob{}, fmt.Errorf("failed to read blob from IPFS: %w", err)
	}

	return unmarshalBlob(data)
}

// Delete drops the index entry for a blob. The blob's bytes stay in the DAG
// until the node garbage-collects them; only their addressability is
// removed.
func (b *IPFSBackend) Delete(ctx context.Context, userID, domain string) error {
	if !b.shell.IsUp() {
		return interfaces.ErrStoreUnavailable
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	index, err := b.loadIndex()
	if err != nil {
		return err
	}
	key := blobKey(userID, domain)
	if _, ok := index[key]; !ok {
		return nil
	}
	delete(index, key)
	return b.publishIndex(index)
}

// Available checks if the IPFS node is accessible.
func (b *IPFSBackend) Available(ctx context.Context) bool {
	return b.shell.IsUp()
}

// Name returns a unique identifier for this storage backend.
func (b *IPFSBackend) Name() string {
	return fmt.Sprintf("ipfs-%s-%s", b.host, b.port)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *IPFSBackend) LocationURI() string {
	return b.locationURI
}

// loadIndex resolves the node's IPNS name and fetches the current index. A
// name that has never been published yields an empty index.
func (b *IPFSBackend) loadIndex() (map[string]string, error) {
	resolved, err := b.shell.Resolve("")
	if err != nil {
		if strings.Contains(err.Error(), "could not resolve name") {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to resolve blob index: %w", err)
	}

	reader, err := b.shell.Cat(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch blob index: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob index: %w", err)
	}

	var index map[string]string
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("corrupt blob index: %w", err)
	}
	return index, nil
}

// publishIndex stores the index and points the node's IPNS name at it.
func (b *IPFSBackend) publishIndex(index map[string]string) error {
	data, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to encode blob index: %w", err)
	}

	cid, err := b.shell.Add(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to add blob index to IPFS: %w", err)
	}

	if err := b.shell.Publish("", "/ipfs/"+cid); err != nil {
		return fmt.Errorf("failed to publish blob index: %w", err)
	}

	b.log.Debug("Published blob index",
		slog.String("cid", cid),
		slog.Int("entries", len(index)))

	return nil
}

// blobKey is the index key for a (userID, domain) pair.
func blobKey(userID, domain string) string {
	return userKey(userID) + "/" + domain
}
