package vault

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/FSM1/cipher-box-sub012/keyring"
	"github.com/FSM1/cipher-box-sub012/metadata"
	"github.com/FSM1/cipher-box-sub012/naming"
	"github.com/FSM1/cipher-box-sub012/signing"
	"github.com/FSM1/cipher-box-sub012/storage"
	"github.com/FSM1/cipher-box-sub012/wrap"
)

// putBlob stores a blob locally and returns its content address as hex.
func (v *Vault) putBlob(data []byte) (string, error) {
	addr := storage.ComputeAddress(data)
	if err := v.Store.Put(addr, data); err != nil {
		return "", fmt.Errorf("vault: store blob: %w", err)
	}
	return hex.EncodeToString(addr), nil
}

// fetchBlob retrieves a blob by its hex content address, trying the
// local store first and then the configured gateways.
func (v *Vault) fetchBlob(ctx context.Context, cid string) ([]byte, error) {
	addr, err := hex.DecodeString(cid)
	if err != nil {
		return nil, fmt.Errorf("%w: bad content address %q", ErrInvalidState, cid)
	}
	return v.Gateway.Fetch(ctx, addr)
}

// resolveValue resolves a pointer and returns the content address it
// currently carries.
func (v *Vault) resolveValue(ctx context.Context, pointerName string) (string, error) {
	rec, err := v.Resolver.Resolve(ctx, pointerName)
	if err != nil {
		return "", err
	}
	return rec.Value, nil
}

// newPointer generates a signing keypair for a new item, seals the seed
// under scopeKey and records the binding. Returns the pointer name and
// the keypair for the first publish.
func (v *Vault) newPointer(kind, parent string, scopeKey []byte) (name string, pub, priv []byte, err error) {
	pub, priv, err = signing.GenerateKeypair()
	if err != nil {
		return "", nil, nil, err
	}
	seed, err := signing.Seed(priv)
	if err != nil {
		return "", nil, nil, err
	}
	defer keyring.Zero(seed)

	sealed, err := metadata.EncryptDocument(seed, scopeKey)
	if err != nil {
		return "", nil, nil, fmt.Errorf("vault: seal signing seed: %w", err)
	}

	name = naming.PointerNameForKey(pub)
	v.State.SetPointer(name, &PointerState{
		PublicKey:        hex.EncodeToString(pub),
		SigningKeySealed: sealed,
		Parent:           parent,
		Kind:             kind,
	})
	return name, pub, priv, nil
}

// signingKeypairFor recovers a pointer's signing keypair by unsealing
// its seed with the item's scope key. The seed is zeroized before
// returning.
func (v *Vault) signingKeypairFor(ps *PointerState, scopeKey []byte) (pub, priv []byte, err error) {
	if ps == nil || ps.SigningKeySealed == nil {
		return nil, nil, fmt.Errorf("%w: pointer has no sealed signing seed", ErrInvalidState)
	}
	seed, err := metadata.DecryptDocument(ps.SigningKeySealed, scopeKey)
	if err != nil {
		return nil, nil, fmt.Errorf("vault: unseal signing seed: %w", err)
	}
	defer keyring.Zero(seed)
	return signing.KeypairFromSeed(seed)
}

// resealSeed re-seals a pointer's signing seed from oldKey to newKey,
// updating the binding in place.
func (v *Vault) resealSeed(ps *PointerState, oldKey, newKey []byte) error {
	seed, err := metadata.DecryptDocument(ps.SigningKeySealed, oldKey)
	if err != nil {
		return fmt.Errorf("vault: unseal signing seed: %w", err)
	}
	defer keyring.Zero(seed)

	sealed, err := metadata.EncryptDocument(seed, newKey)
	if err != nil {
		return fmt.Errorf("vault: reseal signing seed: %w", err)
	}
	ps.SigningKeySealed = sealed
	return nil
}

// wrapToOwnerHex wraps a symmetric key to the vault owner's encryption
// public key and returns it hex encoded, the form metadata documents
// carry.
func (v *Vault) wrapToOwnerHex(key []byte) (string, error) {
	wrapped, err := wrap.Wrap(key, v.Identity.EncryptionPub)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(wrapped), nil
}

// unwrapOwnerHex unwraps a hex-encoded key wrapped to the vault owner.
// The caller owns the returned key and must zeroize it.
func (v *Vault) unwrapOwnerHex(wrappedHex string) ([]byte, error) {
	wrapped, err := hex.DecodeString(wrappedHex)
	if err != nil {
		return nil, fmt.Errorf("%w: non-hex wrapped key", ErrInvalidState)
	}
	return wrap.Unwrap(wrapped, v.Identity.EncryptionPriv)
}

// nowRFC3339 returns the current UTC time in the timestamp format
// metadata documents use.
func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
