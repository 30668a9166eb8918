package sharing

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var (
	bucketShares            = []byte("shares")
	bucketShareKeys         = []byte("share_keys")
	bucketSharesByPointer   = []byte("shares_by_pointer")
	bucketSharesByRecipient = []byte("shares_by_recipient")
	bucketShareKeysByPtr    = []byte("share_keys_by_pointer")
)

// BoltStore persists shares in bbolt.
type BoltStore struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens or creates the share database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("%w: create directory: %w", ErrStoreFailure, err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: open bolt db: %w", ErrStoreFailure, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{
			bucketShares, bucketShareKeys,
			bucketSharesByPointer, bucketSharesByRecipient, bucketShareKeysByPtr,
		} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: create buckets: %w", ErrStoreFailure, err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// compositeKey joins two row components with a NUL separator. Pointer
// names are hex and ids are UUIDs or hex, so NUL cannot collide.
func compositeKey(a, b string) []byte {
	k := make([]byte, 0, len(a)+1+len(b))
	k = append(k, a...)
	k = append(k, 0)
	k = append(k, b...)
	return k
}

// scanPrefix returns the trailing component of every composite key in
// bucket starting with prefix+NUL.
func scanPrefix(tx *bbolt.Tx, bucket []byte, prefix string) []string {
	full := append([]byte(prefix), 0)
	var out []string
	c := tx.Bucket(bucket).Cursor()
	for k, _ := c.Seek(full); k != nil && bytes.HasPrefix(k, full); k, _ = c.Next() {
		out = append(out, string(k[len(full):]))
	}
	return out
}

// CreateShare persists share and its key rows in one transaction.
func (s *BoltStore) CreateShare(ctx context.Context, share *Share, keys []*ShareKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := share.Validate(); err != nil {
		return err
	}
	for _, k := range keys {
		if err := k.Validate(); err != nil {
			return err
		}
		if k.ShareID != share.ID {
			return fmt.Errorf("%w: share key belongs to share %q", ErrInvalidShare, k.ShareID)
		}
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		sb := tx.Bucket(bucketShares)
		if sb.Get([]byte(share.ID)) != nil {
			return fmt.Errorf("%w: %s", ErrDuplicateShare, share.ID)
		}

		data, err := encodeShareGob(share)
		if err != nil {
			return fmt.Errorf("%w: encode share: %w", ErrStoreFailure, err)
		}
		if err := sb.Put([]byte(share.ID), data); err != nil {
			return fmt.Errorf("%w: put share: %w", ErrStoreFailure, err)
		}
		if err := tx.Bucket(bucketSharesByPointer).Put(compositeKey(share.PointerName, share.ID), []byte{}); err != nil {
			return fmt.Errorf("%w: put pointer index: %w", ErrStoreFailure, err)
		}
		if err := tx.Bucket(bucketSharesByRecipient).Put(compositeKey(share.RecipientID, share.ID), []byte{}); err != nil {
			return fmt.Errorf("%w: put recipient index: %w", ErrStoreFailure, err)
		}

		kb := tx.Bucket(bucketShareKeys)
		for _, k := range keys {
			kdata, err := encodeShareGob(k)
			if err != nil {
				return fmt.Errorf("%w: encode share key: %w", ErrStoreFailure, err)
			}
			if err := kb.Put(compositeKey(k.ShareID, k.PointerName), kdata); err != nil {
				return fmt.Errorf("%w: put share key: %w", ErrStoreFailure, err)
			}
			if err := tx.Bucket(bucketShareKeysByPtr).Put(compositeKey(k.PointerName, k.ShareID), []byte{}); err != nil {
				return fmt.Errorf("%w: put share key pointer index: %w", ErrStoreFailure, err)
			}
		}
		return nil
	})
}

// GetShare returns the share with the given id.
func (s *BoltStore) GetShare(ctx context.Context, shareID string) (*Share, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var share Share
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketShares).Get([]byte(shareID))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrShareNotFound, shareID)
		}
		if err := decodeShareGob(data, &share); err != nil {
			return fmt.Errorf("%w: decode share: %w", ErrStoreFailure, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &share, nil
}

// ListByPointer returns all shares granting the item at pointerName.
func (s *BoltStore) ListByPointer(ctx context.Context, pointerName string) ([]*Share, error) {
	return s.listByIndex(ctx, bucketSharesByPointer, pointerName)
}

// ListByRecipient returns all shares granted to recipientID.
func (s *BoltStore) ListByRecipient(ctx context.Context, recipientID string) ([]*Share, error) {
	return s.listByIndex(ctx, bucketSharesByRecipient, recipientID)
}

func (s *BoltStore) listByIndex(ctx context.Context, bucket []byte, prefix string) ([]*Share, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var shares []*Share
	err := s.db.View(func(tx *bbolt.Tx) error {
		sb := tx.Bucket(bucketShares)
		for _, id := range scanPrefix(tx, bucket, prefix) {
			data := sb.Get([]byte(id))
			if data == nil {
				continue // stale index entry
			}
			var share Share
			if err := decodeShareGob(data, &share); err != nil {
				return fmt.Errorf("%w: decode share: %w", ErrStoreFailure, err)
			}
			shares = append(shares, &share)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return shares, nil
}

// ListShareKeys returns the sub-item key rows of one share.
func (s *BoltStore) ListShareKeys(ctx context.Context, shareID string) ([]*ShareKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var keys []*ShareKey
	err := s.db.View(func(tx *bbolt.Tx) error {
		prefix := append([]byte(shareID), 0)
		c := tx.Bucket(bucketShareKeys).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var row ShareKey
			if err := decodeShareGob(v, &row); err != nil {
				return fmt.Errorf("%w: decode share key: %w", ErrStoreFailure, err)
			}
			keys = append(keys, &row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// ListShareKeysByPointer returns every key row granting the sub-item at
// pointerName.
func (s *BoltStore) ListShareKeysByPointer(ctx context.Context, pointerName string) ([]*ShareKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var keys []*ShareKey
	err := s.db.View(func(tx *bbolt.Tx) error {
		kb := tx.Bucket(bucketShareKeys)
		for _, shareID := range scanPrefix(tx, bucketShareKeysByPtr, pointerName) {
			data := kb.Get(compositeKey(shareID, pointerName))
			if data == nil {
				continue // stale index entry
			}
			var row ShareKey
			if err := decodeShareGob(data, &row); err != nil {
				return fmt.Errorf("%w: decode share key: %w", ErrStoreFailure, err)
			}
			keys = append(keys, &row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// UpdateWrappedKey replaces the share's top-level wrapped key.
func (s *BoltStore) UpdateWrappedKey(ctx context.Context, shareID string, wrapped []byte) error {
	if len(wrapped) == 0 {
		return fmt.Errorf("%w: missing wrapped key", ErrInvalidShare)
	}
	return s.mutateShare(ctx, shareID, func(share *Share) error {
		share.WrappedKey = wrapped
		return nil
	})
}

// UpdateShareKey replaces the wrapped key of one sub-item row.
func (s *BoltStore) UpdateShareKey(ctx context.Context, shareID, pointerName string, wrapped []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(wrapped) == 0 {
		return fmt.Errorf("%w: missing wrapped key", ErrInvalidShare)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		kb := tx.Bucket(bucketShareKeys)
		rowKey := compositeKey(shareID, pointerName)
		data := kb.Get(rowKey)
		if data == nil {
			return fmt.Errorf("%w: share %s pointer %s", ErrShareKeyNotFound, shareID, pointerName)
		}
		var row ShareKey
		if err := decodeShareGob(data, &row); err != nil {
			return fmt.Errorf("%w: decode share key: %w", ErrStoreFailure, err)
		}
		row.WrappedKey = wrapped
		updated, err := encodeShareGob(&row)
		if err != nil {
			return fmt.Errorf("%w: encode share key: %w", ErrStoreFailure, err)
		}
		if err := kb.Put(rowKey, updated); err != nil {
			return fmt.Errorf("%w: put share key: %w", ErrStoreFailure, err)
		}
		return nil
	})
}

// Revoke marks the share revoked at the given time.
func (s *BoltStore) Revoke(ctx context.Context, shareID string, at time.Time) error {
	return s.mutateShare(ctx, shareID, func(share *Share) error {
		if share.RevokedAt != nil {
			return fmt.Errorf("%w: %s", ErrAlreadyRevoked, shareID)
		}
		share.RevokedAt = &at
		return nil
	})
}

// SetHidden flips the recipient-side hidden flag.
func (s *BoltStore) SetHidden(ctx context.Context, shareID string, hidden bool) error {
	return s.mutateShare(ctx, shareID, func(share *Share) error {
		share.HiddenByRecipient = hidden
		return nil
	})
}

// mutateShare loads, mutates and rewrites one share row in a single
// transaction.
func (s *BoltStore) mutateShare(ctx context.Context, shareID string, mutate func(*Share) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		sb := tx.Bucket(bucketShares)
		data := sb.Get([]byte(shareID))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrShareNotFound, shareID)
		}
		var share Share
		if err := decodeShareGob(data, &share); err != nil {
			return fmt.Errorf("%w: decode share: %w", ErrStoreFailure, err)
		}
		if err := mutate(&share); err != nil {
			return err
		}
		updated, err := encodeShareGob(&share)
		if err != nil {
			return fmt.Errorf("%w: encode share: %w", ErrStoreFailure, err)
		}
		if err := sb.Put([]byte(shareID), updated); err != nil {
			return fmt.Errorf("%w: put share: %w", ErrStoreFailure, err)
		}
		return nil
	})
}

// Purge hard-deletes the share and all its key rows.
func (s *BoltStore) Purge(ctx context.Context, shareID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		sb := tx.Bucket(bucketShares)
		data := sb.Get([]byte(shareID))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrShareNotFound, shareID)
		}
		var share Share
		if err := decodeShareGob(data, &share); err != nil {
			return fmt.Errorf("%w: decode share: %w", ErrStoreFailure, err)
		}

		if err := sb.Delete([]byte(shareID)); err != nil {
			return fmt.Errorf("%w: delete share: %w", ErrStoreFailure, err)
		}
		if err := tx.Bucket(bucketSharesByPointer).Delete(compositeKey(share.PointerName, share.ID)); err != nil {
			return fmt.Errorf("%w: delete pointer index: %w", ErrStoreFailure, err)
		}
		if err := tx.Bucket(bucketSharesByRecipient).Delete(compositeKey(share.RecipientID, share.ID)); err != nil {
			return fmt.Errorf("%w: delete recipient index: %w", ErrStoreFailure, err)
		}

		kb := tx.Bucket(bucketShareKeys)
		prefix := append([]byte(shareID), 0)
		c := kb.Cursor()
		var rowKeys [][]byte
		var pointerNames []string
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			keyCopy := make([]byte, len(k))
			copy(keyCopy, k)
			rowKeys = append(rowKeys, keyCopy)
			pointerNames = append(pointerNames, string(k[len(prefix):]))
		}
		for i, k := range rowKeys {
			if err := kb.Delete(k); err != nil {
				return fmt.Errorf("%w: delete share key: %w", ErrStoreFailure, err)
			}
			if err := tx.Bucket(bucketShareKeysByPtr).Delete(compositeKey(pointerNames[i], shareID)); err != nil {
				return fmt.Errorf("%w: delete share key pointer index: %w", ErrStoreFailure, err)
			}
		}
		return nil
	})
}

// encodeShareGob serializes a value using gob encoding.
func encodeShareGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeShareGob deserializes gob-encoded data into a value.
func decodeShareGob(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
