package naming

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

var bucketPointers = []byte("pointers")

// cachedPointer is the persisted form of a cache entry. Only the value and
// sequence survive caching; verification bundles are deliberately dropped so
// a cached record can never masquerade as a verified one.
type cachedPointer struct {
	Value    string
	Sequence uint64
}

// PointerCache persists the last known record per pointer name in bbolt.
// It serves stale reads when the naming service is unreachable and anchors
// the stale-record check during resolution.
type PointerCache struct {
	db *bbolt.DB
}

// OpenPointerCache opens or creates the cache database at dbPath.
// The parent directory is created if it does not exist.
func OpenPointerCache(dbPath string) (*PointerCache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("%w: create directory: %w", ErrCacheFailure, err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: open bolt db: %w", ErrCacheFailure, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPointers)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: create bucket: %w", ErrCacheFailure, err)
	}

	return &PointerCache{db: db}, nil
}

// Close closes the underlying database.
func (c *PointerCache) Close() error { return c.db.Close() }

// Put stores the record's value and sequence under name, overwriting any
// previous entry.
func (c *PointerCache) Put(name string, record *PointerRecord) error {
	if err := ValidatePointerName(name); err != nil {
		return err
	}
	if record == nil || record.Value == "" {
		return ErrEmptyValue
	}

	data, err := encodeGob(cachedPointer{Value: record.Value, Sequence: record.Sequence})
	if err != nil {
		return fmt.Errorf("%w: encode entry: %w", ErrCacheFailure, err)
	}
	err = c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPointers).Put([]byte(name), data)
	})
	if err != nil {
		return fmt.Errorf("%w: put entry: %w", ErrCacheFailure, err)
	}
	return nil
}

// Get returns the cached record for name with FromCache set.
// Returns ErrPointerNotFound if the name has never been cached.
func (c *PointerCache) Get(name string) (*PointerRecord, error) {
	if err := ValidatePointerName(name); err != nil {
		return nil, err
	}

	var entry cachedPointer
	err := c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketPointers).Get([]byte(name))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrPointerNotFound, name)
		}
		if err := decodeGob(data, &entry); err != nil {
			return fmt.Errorf("%w: decode entry: %w", ErrCacheFailure, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &PointerRecord{Value: entry.Value, Sequence: entry.Sequence, FromCache: true}, nil
}

// Delete removes the cached entry for name. Deleting an absent entry is
// not an error.
func (c *PointerCache) Delete(name string) error {
	if err := ValidatePointerName(name); err != nil {
		return err
	}
	err := c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPointers).Delete([]byte(name))
	})
	if err != nil {
		return fmt.Errorf("%w: delete entry: %w", ErrCacheFailure, err)
	}
	return nil
}

// encodeGob serializes a value using gob encoding.
func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeGob deserializes gob-encoded data into a value.
func decodeGob(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
