// Package storage provides content-addressed storage for encrypted
// blobs: file ciphertext and sealed metadata envelopes.
//
// A blob's address is the SHA-256 digest of the stored bytes, so any
// holder of an address can verify what a source hands back. Stores hold
// opaque ciphertext only; nothing in this package can decrypt.
package storage

import "crypto/sha256"

// AddressSize is the length of a content address (SHA-256 output).
const AddressSize = 32

// ComputeAddress derives the content address of a blob.
func ComputeAddress(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// Store is local content-addressed blob storage.
type Store interface {
	// Put stores a blob under addr. The address must equal
	// ComputeAddress(data); a mismatch is rejected before anything is
	// written.
	Put(addr []byte, data []byte) error

	// Get retrieves a blob by address.
	Get(addr []byte) ([]byte, error)

	// Has reports whether a blob exists for addr.
	Has(addr []byte) (bool, error)

	// Delete removes the blob stored under addr.
	Delete(addr []byte) error

	// Size returns the stored blob's size in bytes.
	Size(addr []byte) (int64, error)

	// List returns every stored address, for backup and pinning.
	List() ([][]byte, error)
}
