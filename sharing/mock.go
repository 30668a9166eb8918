package sharing

import (
	"context"
	"time"
)

// MockStore is a test double for Store.
// All function fields must be set before the corresponding method is called.
type MockStore struct {
	CreateShareFn            func(ctx context.Context, share *Share, keys []*ShareKey) error
	GetShareFn               func(ctx context.Context, shareID string) (*Share, error)
	ListByPointerFn          func(ctx context.Context, pointerName string) ([]*Share, error)
	ListByRecipientFn        func(ctx context.Context, recipientID string) ([]*Share, error)
	ListShareKeysFn          func(ctx context.Context, shareID string) ([]*ShareKey, error)
	ListShareKeysByPointerFn func(ctx context.Context, pointerName string) ([]*ShareKey, error)
	UpdateWrappedKeyFn       func(ctx context.Context, shareID string, wrapped []byte) error
	UpdateShareKeyFn         func(ctx context.Context, shareID, pointerName string, wrapped []byte) error
	RevokeFn                 func(ctx context.Context, shareID string, at time.Time) error
	SetHiddenFn              func(ctx context.Context, shareID string, hidden bool) error
	PurgeFn                  func(ctx context.Context, shareID string) error
}

func (m *MockStore) CreateShare(ctx context.Context, share *Share, keys []*ShareKey) error {
	return m.CreateShareFn(ctx, share, keys)
}
func (m *MockStore) GetShare(ctx context.Context, shareID string) (*Share, error) {
	return m.GetShareFn(ctx, shareID)
}
func (m *MockStore) ListByPointer(ctx context.Context, pointerName string) ([]*Share, error) {
	return m.ListByPointerFn(ctx, pointerName)
}
func (m *MockStore) ListByRecipient(ctx context.Context, recipientID string) ([]*Share, error) {
	return m.ListByRecipientFn(ctx, recipientID)
}
func (m *MockStore) ListShareKeys(ctx context.Context, shareID string) ([]*ShareKey, error) {
	return m.ListShareKeysFn(ctx, shareID)
}
func (m *MockStore) ListShareKeysByPointer(ctx context.Context, pointerName string) ([]*ShareKey, error) {
	return m.ListShareKeysByPointerFn(ctx, pointerName)
}
func (m *MockStore) UpdateWrappedKey(ctx context.Context, shareID string, wrapped []byte) error {
	return m.UpdateWrappedKeyFn(ctx, shareID, wrapped)
}
func (m *MockStore) UpdateShareKey(ctx context.Context, shareID, pointerName string, wrapped []byte) error {
	return m.UpdateShareKeyFn(ctx, shareID, pointerName, wrapped)
}
func (m *MockStore) Revoke(ctx context.Context, shareID string, at time.Time) error {
	return m.RevokeFn(ctx, shareID, at)
}
func (m *MockStore) SetHidden(ctx context.Context, shareID string, hidden bool) error {
	return m.SetHiddenFn(ctx, shareID, hidden)
}
func (m *MockStore) Purge(ctx context.Context, shareID string) error {
	return m.PurgeFn(ctx, shareID)
}
