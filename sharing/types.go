// Package sharing manages access grants between vault users.
//
// A grant hands a recipient the wrapped key of one item: a file, or a
// folder together with every sub-item under it. Revocation is soft and
// lazy: revoking marks the share, and the underlying key is rotated on
// the next mutation of the item, not immediately. Until that mutation a
// revoked recipient can still read the item's current state; this is a
// documented property of the model, traded for never paying rotation
// cost on reads.
package sharing

import (
	"fmt"
	"time"
)

// ItemType distinguishes what kind of item a share grants.
type ItemType int32

const (
	// ItemTypeFile grants a single file.
	ItemTypeFile ItemType = 0
	// ItemTypeFolder grants a folder and all items beneath it.
	ItemTypeFolder ItemType = 1
)

// String returns a human-readable representation of the item type.
func (t ItemType) String() string {
	switch t {
	case ItemTypeFile:
		return "FILE"
	case ItemTypeFolder:
		return "FOLDER"
	default:
		return "UNKNOWN"
	}
}

// Share is one access grant from a sharer to a recipient.
//
// WrappedKey holds the item's key wrapped to the recipient's public key;
// the sharing layer never stores or sees a plaintext item key. RevokedAt
// nil means the share is active. A revoked share survives as a soft-deleted
// row until the next mutation of the item purges it.
type Share struct {
	// ID is a unique share identifier (UUID).
	ID string

	// SharerID identifies the granting user.
	SharerID string

	// RecipientID identifies the receiving user.
	RecipientID string

	// RecipientPub is the recipient's encryption public key, kept so the
	// share's key material can be re-wrapped without a directory lookup.
	RecipientPub []byte

	// ItemType is what kind of item the share grants.
	ItemType ItemType

	// PointerName is the pointer name of the shared item.
	PointerName string

	// ItemName is the display name of the shared item at grant time.
	ItemName string

	// WrappedKey is the item's key wrapped to RecipientPub.
	WrappedKey []byte

	// HiddenByRecipient marks shares the recipient chose to hide from
	// their own listing. Hiding does not affect access.
	HiddenByRecipient bool

	// CreatedAt is when the share was granted.
	CreatedAt time.Time

	// RevokedAt is when the share was revoked; nil while active.
	RevokedAt *time.Time
}

// Active reports whether the share has not been revoked.
func (s *Share) Active() bool { return s.RevokedAt == nil }

// Validate checks that the share carries every required field.
func (s *Share) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: share", ErrNilParam)
	}
	switch {
	case s.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidShare)
	case s.SharerID == "":
		return fmt.Errorf("%w: missing sharer id", ErrInvalidShare)
	case s.RecipientID == "":
		return fmt.Errorf("%w: missing recipient id", ErrInvalidShare)
	case len(s.RecipientPub) == 0:
		return fmt.Errorf("%w: missing recipient public key", ErrInvalidShare)
	case s.PointerName == "":
		return fmt.Errorf("%w: missing pointer name", ErrInvalidShare)
	case len(s.WrappedKey) == 0:
		return fmt.Errorf("%w: missing wrapped key", ErrInvalidShare)
	}
	return nil
}

// ShareKey is the wrapped key of one sub-item transitively granted by a
// folder-level share. A share over a folder with n files beneath it has n
// ShareKey rows, each wrapped separately to the recipient.
type ShareKey struct {
	// ShareID is the owning share.
	ShareID string

	// PointerName is the pointer name of the sub-item.
	PointerName string

	// ItemName is the display name of the sub-item at grant time.
	ItemName string

	// WrappedKey is the sub-item's key wrapped to the share's recipient.
	WrappedKey []byte
}

// Validate checks that the key row carries every required field.
func (k *ShareKey) Validate() error {
	if k == nil {
		return fmt.Errorf("%w: share key", ErrNilParam)
	}
	switch {
	case k.ShareID == "":
		return fmt.Errorf("%w: share key missing share id", ErrInvalidShare)
	case k.PointerName == "":
		return fmt.Errorf("%w: share key missing pointer name", ErrInvalidShare)
	case len(k.WrappedKey) == 0:
		return fmt.Errorf("%w: share key missing wrapped key", ErrInvalidShare)
	}
	return nil
}
