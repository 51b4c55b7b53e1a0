// Package storage implements blob store backends for encrypted vault data.
//
// Every backend persists interfaces.EncryptedBlob values keyed by a
// (userID, domain) pair and knows nothing about keys or plaintext; sealing
// and opening happen in the vault package before data reaches a store. The
// bring-your-own-storage model follows from that split: because backends
// only ever hold authenticated ciphertext, none of them needs to be trusted
// beyond durability.
//
// Available backends:
//   - FileBackend: local file system storage
//   - S3Backend: Amazon S3 or compatible object storage
//   - VaultKVBackend: HashiCorp Vault KV v2 secret storage
//   - IPFSBackend: IPFS with an IPNS-published key index
//   - MultiStore: replicates across several of the above
//
// Backends are created from location URIs through the Factory:
//
//	factory := storage.NewFactory(logger)
//	loc, err := interfaces.NewBlobLocation("file:///var/lib/consent/blobs")
//	store, err := factory.StoreFor(loc)
//
// MultiStore writes to every available member and reads from the first one
// holding the blob, so a user can keep an S3 copy and a local copy of the
// same sealed data.
package storage
