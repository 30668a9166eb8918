package sharing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FSM1/cipher-box-sub012/keyring"
	"github.com/FSM1/cipher-box-sub012/wrap"
)

// Rotator rotates the key of one item on behalf of the engine. The
// implementation generates a fresh key, re-encrypts the item's metadata
// under it, republishes, and returns the new plaintext key. The engine
// zeroizes the returned key when it is done wrapping it.
type Rotator interface {
	RotateItem(ctx context.Context, pointerName string) ([]byte, error)
}

// RotationResult reports what a rotation pass did.
type RotationResult struct {
	// Rotated is false when no revoked share existed and the key was
	// left alone.
	Rotated bool

	// RewrappedShares counts grants that received the new key.
	RewrappedShares int

	// PurgedShares counts revoked rows that were hard-deleted.
	PurgedShares int
}

// SubItem names one transitively granted sub-item of a folder share.
type SubItem struct {
	PointerName string
	ItemName    string

	// WrappedKey is the sub-item's key wrapped to the sharer.
	WrappedKey []byte
}

// ShareRequest carries everything needed to grant one item.
// All key fields are wrapped to the sharer; the engine re-wraps them to
// the recipient without ever persisting plaintext.
type ShareRequest struct {
	SharerID     string
	RecipientID  string
	RecipientPub []byte
	ItemType     ItemType
	PointerName  string
	ItemName     string

	// WrappedKey is the item's key wrapped to the sharer.
	WrappedKey []byte

	// SubItems lists the sub-items a folder share transitively grants.
	SubItems []SubItem
}

// Engine implements the grant lifecycle: create, revoke, hide, and the
// lazy key rotation that runs on the next mutation of an item with
// revoked grants.
type Engine struct {
	store Store
	now   func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine creates a sharing engine over store.
func NewEngine(store Store) *Engine {
	return &Engine{
		store: store,
		now:   time.Now,
		locks: make(map[string]*sync.Mutex),
	}
}

// CreateShare grants the requested item to the recipient. The item key
// and every sub-item key are re-wrapped from the sharer to the recipient
// and persisted as one Share plus one ShareKey per sub-item.
func (e *Engine) CreateShare(ctx context.Context, req *ShareRequest, sharerPriv []byte) (*Share, []*ShareKey, error) {
	if req == nil {
		return nil, nil, fmt.Errorf("%w: share request", ErrNilParam)
	}

	recipientWrapped, err := wrap.Rewrap(req.WrappedKey, sharerPriv, req.RecipientPub)
	if err != nil {
		return nil, nil, fmt.Errorf("sharing: rewrap item key: %w", err)
	}

	share := &Share{
		ID:           uuid.NewString(),
		SharerID:     req.SharerID,
		RecipientID:  req.RecipientID,
		RecipientPub: req.RecipientPub,
		ItemType:     req.ItemType,
		PointerName:  req.PointerName,
		ItemName:     req.ItemName,
		WrappedKey:   recipientWrapped,
		CreatedAt:    e.now().UTC(),
	}
	if err := share.Validate(); err != nil {
		return nil, nil, err
	}

	keys := make([]*ShareKey, 0, len(req.SubItems))
	for _, sub := range req.SubItems {
		subWrapped, err := wrap.Rewrap(sub.WrappedKey, sharerPriv, req.RecipientPub)
		if err != nil {
			return nil, nil, fmt.Errorf("sharing: rewrap key for %q: %w", sub.ItemName, err)
		}
		keys = append(keys, &ShareKey{
			ShareID:     share.ID,
			PointerName: sub.PointerName,
			ItemName:    sub.ItemName,
			WrappedKey:  subWrapped,
		})
	}

	if err := e.store.CreateShare(ctx, share, keys); err != nil {
		return nil, nil, err
	}
	return share, keys, nil
}

// RevokeShare marks the share revoked. The underlying key is not rotated
// here; rotation is deferred to the next mutation of the item so that
// reads stay free of rotation cost.
func (e *Engine) RevokeShare(ctx context.Context, shareID string) error {
	return e.store.Revoke(ctx, shareID, e.now().UTC())
}

// HideShare flips the recipient-side hidden flag. Hiding only affects the
// recipient's own listing, never access.
func (e *Engine) HideShare(ctx context.Context, shareID string, hidden bool) error {
	return e.store.SetHidden(ctx, shareID, hidden)
}

// SharedWith returns all shares granted to recipientID, including
// revoked ones.
func (e *Engine) SharedWith(ctx context.Context, recipientID string) ([]*Share, error) {
	return e.store.ListByRecipient(ctx, recipientID)
}

// ShareKeys returns the sub-item key rows of one share.
func (e *Engine) ShareKeys(ctx context.Context, shareID string) ([]*ShareKey, error) {
	return e.store.ListShareKeys(ctx, shareID)
}

// NeedsRotation reports whether the item at pointerName has a revoked
// grant awaiting rotation.
func (e *Engine) NeedsRotation(ctx context.Context, pointerName string) (bool, error) {
	shares, err := e.store.ListByPointer(ctx, pointerName)
	if err != nil {
		return false, err
	}
	for _, s := range shares {
		if !s.Active() {
			return true, nil
		}
	}
	return false, nil
}

// RotateOnMutation rotates the item's key if any revoked grant exists.
//
// The rotator generates the new key and republishes the item; the engine
// then wraps the new key for every still-active recipient, updates any
// folder-share key rows referencing this item, and hard-deletes the
// revoked rows. Concurrent rotations of one pointer name are serialized
// in-process.
//
// If a share is revoked while the rotation runs, its recipient received
// the new key. The rotation result is returned together with
// ErrRevocationRace; the caller's next mutation rotates again.
func (e *Engine) RotateOnMutation(ctx context.Context, pointerName string, rot Rotator) (*RotationResult, error) {
	lock := e.lockFor(pointerName)
	lock.Lock()
	defer lock.Unlock()

	shares, err := e.store.ListByPointer(ctx, pointerName)
	if err != nil {
		return nil, err
	}
	var active, revoked []*Share
	for _, s := range shares {
		if s.Active() {
			active = append(active, s)
		} else {
			revoked = append(revoked, s)
		}
	}
	if len(revoked) == 0 {
		return &RotationResult{}, nil
	}

	newKey, err := rot.RotateItem(ctx, pointerName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRotationFailed, err)
	}
	defer keyring.Zero(newKey)

	result := &RotationResult{Rotated: true}

	for _, s := range active {
		wrapped, err := wrap.Wrap(newKey, s.RecipientPub)
		if err != nil {
			return nil, fmt.Errorf("sharing: wrap new key for %s: %w", s.RecipientID, err)
		}
		if err := e.store.UpdateWrappedKey(ctx, s.ID, wrapped); err != nil {
			return nil, err
		}
		result.RewrappedShares++
	}

	if err := e.updateParentShareKeys(ctx, pointerName, newKey); err != nil {
		return nil, err
	}

	for _, s := range revoked {
		if err := e.store.Purge(ctx, s.ID); err != nil {
			return nil, err
		}
		result.PurgedShares++
	}

	// A grant revoked after the listing above was re-wrapped as active.
	after, err := e.store.ListByPointer(ctx, pointerName)
	if err != nil {
		return nil, err
	}
	for _, s := range after {
		if !s.Active() {
			return result, fmt.Errorf("%w: share %s", ErrRevocationRace, s.ID)
		}
	}
	return result, nil
}

// updateParentShareKeys pushes the item's new key into every folder-share
// key row that grants it, for rows whose parent share is still active.
// Rows under revoked parents are left stale; they die when the parent
// folder rotates.
func (e *Engine) updateParentShareKeys(ctx context.Context, pointerName string, newKey []byte) error {
	rows, err := e.store.ListShareKeysByPointer(ctx, pointerName)
	if err != nil {
		return err
	}
	for _, row := range rows {
		parent, err := e.store.GetShare(ctx, row.ShareID)
		if err != nil {
			return err
		}
		if !parent.Active() {
			continue
		}
		wrapped, err := wrap.Wrap(newKey, parent.RecipientPub)
		if err != nil {
			return fmt.Errorf("sharing: wrap new key for %s: %w", parent.RecipientID, err)
		}
		if err := e.store.UpdateShareKey(ctx, row.ShareID, pointerName, wrapped); err != nil {
			return err
		}
	}
	return nil
}

// lockFor returns the serialization lock for one pointer name.
func (e *Engine) lockFor(pointerName string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	if l, ok := e.locks[pointerName]; ok {
		return l
	}
	l := &sync.Mutex{}
	e.locks[pointerName] = l
	return l
}
