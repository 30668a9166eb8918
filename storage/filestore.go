package storage

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore implements Store on the local filesystem. Blobs live at
// {baseDir}/{hex(addr[:1])}/{hex(addr)}: the first address byte shards
// blobs across subdirectories.
type FileStore struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileStore opens a file-based blob store rooted at baseDir, creating
// the directory if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		return nil, ErrInvalidBaseDir
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

var _ Store = (*FileStore)(nil)

func validateAddress(addr []byte) error {
	if len(addr) != AddressSize {
		return fmt.Errorf("%w: got %d bytes", ErrInvalidAddress, len(addr))
	}
	return nil
}

func (fs *FileStore) shardDir(addr []byte) string {
	return filepath.Join(fs.baseDir, hex.EncodeToString(addr[:1]))
}

func (fs *FileStore) blobPath(addr []byte) string {
	hexAddr := hex.EncodeToString(addr)
	return filepath.Join(fs.baseDir, hexAddr[:2], hexAddr)
}

// Put stores a blob under its content address.
func (fs *FileStore) Put(addr []byte, data []byte) error {
	if err := validateAddress(addr); err != nil {
		return err
	}
	if len(data) == 0 {
		return ErrEmptyContent
	}
	if !bytes.Equal(ComputeAddress(data), addr) {
		return ErrAddressMismatch
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.MkdirAll(fs.shardDir(addr), 0700); err != nil {
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	if err := os.WriteFile(fs.blobPath(addr), data, 0600); err != nil {
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return nil
}

// Get retrieves a blob by address.
func (fs *FileStore) Get(addr []byte) ([]byte, error) {
	if err := validateAddress(addr); err != nil {
		return nil, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	data, err := os.ReadFile(fs.blobPath(addr))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return data, nil
}

// Has reports whether a blob exists for addr.
func (fs *FileStore) Has(addr []byte) (bool, error) {
	if err := validateAddress(addr); err != nil {
		return false, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if _, err := os.Stat(fs.blobPath(addr)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return true, nil
}

// Delete removes the blob stored under addr.
func (fs *FileStore) Delete(addr []byte) error {
	if err := validateAddress(addr); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.Remove(fs.blobPath(addr)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return nil
}

// Size returns the stored blob's size in bytes.
func (fs *FileStore) Size(addr []byte) (int64, error) {
	if err := validateAddress(addr); err != nil {
		return 0, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	info, err := os.Stat(fs.blobPath(addr))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return info.Size(), nil
}

// List returns every stored address by scanning the shard directories.
func (fs *FileStore) List() ([][]byte, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	entries, err := os.ReadDir(fs.baseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	var result [][]byte
	for _, entry := range entries {
		if !entry.IsDir() || len(entry.Name()) != 2 {
			continue
		}
		files, err := os.ReadDir(filepath.Join(fs.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			addr, err := hex.DecodeString(f.Name())
			if err != nil || len(addr) != AddressSize {
				continue
			}
			result = append(result, addr)
		}
	}
	return result, nil
}
