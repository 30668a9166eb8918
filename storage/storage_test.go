package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFactories lets every Store implementation run the same contract
// tests.
func storeFactories(t *testing.T) map[string]func() Store {
	t.Helper()
	return map[string]func() Store{
		"FileStore": func() Store {
			store, err := NewFileStore(t.TempDir())
			require.NoError(t, err)
			return store
		},
		"MemStore": func() Store {
			return NewMemStore()
		},
	}
}

func TestStorePutGet(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore()
			data := []byte("encrypted blob")
			addr := ComputeAddress(data)

			require.NoError(t, store.Put(addr, data))

			got, err := store.Get(addr)
			require.NoError(t, err)
			assert.Equal(t, data, got)
		})
	}
}

func TestStoreRejectsAddressMismatch(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore()
			data := []byte("blob")
			wrongAddr := ComputeAddress([]byte("other blob"))

			err := store.Put(wrongAddr, data)
			assert.ErrorIs(t, err, ErrAddressMismatch)

			has, err := store.Has(wrongAddr)
			require.NoError(t, err)
			assert.False(t, has, "nothing should be written on mismatch")
		})
	}
}

func TestStoreValidation(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore()

			assert.ErrorIs(t, store.Put([]byte("short"), []byte("data")), ErrInvalidAddress)
			assert.ErrorIs(t, store.Put(make([]byte, AddressSize), nil), ErrEmptyContent)

			_, err := store.Get([]byte("short"))
			assert.ErrorIs(t, err, ErrInvalidAddress)
		})
	}
}

func TestStoreNotFound(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore()
			addr := ComputeAddress([]byte("never stored"))

			_, err := store.Get(addr)
			assert.ErrorIs(t, err, ErrNotFound)

			has, err := store.Has(addr)
			require.NoError(t, err)
			assert.False(t, has)

			_, err = store.Size(addr)
			assert.ErrorIs(t, err, ErrNotFound)

			assert.ErrorIs(t, store.Delete(addr), ErrNotFound)
		})
	}
}

func TestStoreDelete(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore()
			data := []byte("to delete")
			addr := ComputeAddress(data)

			require.NoError(t, store.Put(addr, data))
			require.NoError(t, store.Delete(addr))

			has, err := store.Has(addr)
			require.NoError(t, err)
			assert.False(t, has)
		})
	}
}

func TestStoreSizeAndList(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore()

			blobs := [][]byte{
				[]byte("one"),
				[]byte("blob number two"),
				[]byte("the third, somewhat longer, blob"),
			}
			addrs := make(map[string]int64, len(blobs))
			for _, b := range blobs {
				addr := ComputeAddress(b)
				require.NoError(t, store.Put(addr, b))
				addrs[string(addr)] = int64(len(b))
			}

			for addr, wantSize := range addrs {
				size, err := store.Size([]byte(addr))
				require.NoError(t, err)
				assert.Equal(t, wantSize, size)
			}

			listed, err := store.List()
			require.NoError(t, err)
			require.Len(t, listed, len(blobs))
			for _, addr := range listed {
				assert.Contains(t, addrs, string(addr))
			}
		})
	}
}

func TestStorePutIdempotent(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore()
			data := []byte("same content twice")
			addr := ComputeAddress(data)

			require.NoError(t, store.Put(addr, data))
			require.NoError(t, store.Put(addr, data), "re-putting identical content should succeed")

			got, err := store.Get(addr)
			require.NoError(t, err)
			assert.Equal(t, data, got)
		})
	}
}

// --- FileStore specifics ---

func TestFileStoreSharding(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	data := []byte("sharded blob")
	addr := ComputeAddress(data)
	require.NoError(t, store.Put(addr, data))

	// The blob lives under a two-character shard directory named after
	// the first address byte.
	shard := filepath.Join(dir, string("0123456789abcdef"[addr[0]>>4])+string("0123456789abcdef"[addr[0]&0x0f]))
	entries, err := os.ReadDir(shard)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestNewFileStoreValidation(t *testing.T) {
	_, err := NewFileStore("")
	assert.ErrorIs(t, err, ErrInvalidBaseDir)
}

func TestFileStoreReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewFileStore(dir)
	require.NoError(t, err)
	data := []byte("persistent blob")
	addr := ComputeAddress(data)
	require.NoError(t, store.Put(addr, data))

	reopened, err := NewFileStore(dir)
	require.NoError(t, err)
	got, err := reopened.Get(addr)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestMemStoreReturnsCopies(t *testing.T) {
	store := NewMemStore()
	data := []byte("immutable blob")
	addr := ComputeAddress(data)
	require.NoError(t, store.Put(addr, data))

	got, err := store.Get(addr)
	require.NoError(t, err)
	got[0] ^= 0xFF

	again, err := store.Get(addr)
	require.NoError(t, err)
	assert.Equal(t, data, again, "mutating a returned blob must not affect the store")
}
