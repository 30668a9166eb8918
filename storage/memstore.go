package storage

import (
	"bytes"
	"encoding/hex"
	"sync"
)

// MemStore implements Store in memory. Used by tests and short-lived
// sessions that never persist blobs locally.
type MemStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemStore creates an empty in-memory blob store.
func NewMemStore() *MemStore {
	return &MemStore{blobs: make(map[string][]byte)}
}

var _ Store = (*MemStore)(nil)

// Put stores a blob under its content address.
func (ms *MemStore) Put(addr []byte, data []byte) error {
	if err := validateAddress(addr); err != nil {
		return err
	}
	if len(data) == 0 {
		return ErrEmptyContent
	}
	if !bytes.Equal(ComputeAddress(data), addr) {
		return ErrAddressMismatch
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	cp := make([]byte, len(data))
	copy(cp, data)
	ms.blobs[hex.EncodeToString(addr)] = cp
	return nil
}

// Get retrieves a blob by address.
func (ms *MemStore) Get(addr []byte) ([]byte, error) {
	if err := validateAddress(addr); err != nil {
		return nil, err
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	data, ok := ms.blobs[hex.EncodeToString(addr)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Has reports whether a blob exists for addr.
func (ms *MemStore) Has(addr []byte) (bool, error) {
	if err := validateAddress(addr); err != nil {
		return false, err
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	_, ok := ms.blobs[hex.EncodeToString(addr)]
	return ok, nil
}

// Delete removes the blob stored under addr.
func (ms *MemStore) Delete(addr []byte) error {
	if err := validateAddress(addr); err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	key := hex.EncodeToString(addr)
	if _, ok := ms.blobs[key]; !ok {
		return ErrNotFound
	}
	delete(ms.blobs, key)
	return nil
}

// Size returns the stored blob's size in bytes.
func (ms *MemStore) Size(addr []byte) (int64, error) {
	if err := validateAddress(addr); err != nil {
		return 0, err
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	data, ok := ms.blobs[hex.EncodeToString(addr)]
	if !ok {
		return 0, ErrNotFound
	}
	return int64(len(data)), nil
}

// List returns every stored address.
func (ms *MemStore) List() ([][]byte, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	result := make([][]byte, 0, len(ms.blobs))
	for key := range ms.blobs {
		addr, err := hex.DecodeString(key)
		if err != nil {
			continue
		}
		result = append(result, addr)
	}
	return result, nil
}
