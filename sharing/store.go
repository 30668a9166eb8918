package sharing

import (
	"context"
	"time"
)

// Store persists Share and ShareKey rows. The sharing engine treats it as
// an opaque row store; all key material inside is already wrapped.
type Store interface {
	// CreateShare persists a share together with its sub-item key rows.
	// Returns ErrDuplicateShare if the share id already exists.
	CreateShare(ctx context.Context, share *Share, keys []*ShareKey) error

	// GetShare returns the share with the given id.
	GetShare(ctx context.Context, shareID string) (*Share, error)

	// ListByPointer returns all shares, active and revoked, granting the
	// item at pointerName.
	ListByPointer(ctx context.Context, pointerName string) ([]*Share, error)

	// ListByRecipient returns all shares granted to recipientID.
	ListByRecipient(ctx context.Context, recipientID string) ([]*Share, error)

	// ListShareKeys returns the sub-item key rows of one share.
	ListShareKeys(ctx context.Context, shareID string) ([]*ShareKey, error)

	// ListShareKeysByPointer returns every key row, across all shares,
	// that grants the sub-item at pointerName.
	ListShareKeysByPointer(ctx context.Context, pointerName string) ([]*ShareKey, error)

	// UpdateWrappedKey replaces the share's top-level wrapped key.
	UpdateWrappedKey(ctx context.Context, shareID string, wrapped []byte) error

	// UpdateShareKey replaces the wrapped key of one sub-item row.
	UpdateShareKey(ctx context.Context, shareID, pointerName string, wrapped []byte) error

	// Revoke marks the share revoked at the given time. The row survives
	// until Purge.
	Revoke(ctx context.Context, shareID string, at time.Time) error

	// SetHidden flips the recipient-side hidden flag.
	SetHidden(ctx context.Context, shareID string, hidden bool) error

	// Purge hard-deletes the share and all its key rows.
	Purge(ctx context.Context, shareID string) error
}
