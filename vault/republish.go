package vault

import (
	"context"
	"fmt"

	"github.com/FSM1/cipher-box-sub012/keyring"
	"github.com/FSM1/cipher-box-sub012/metadata"
	"github.com/FSM1/cipher-box-sub012/wrap"
)

// EnrollRepublish hands a pointer's signing key to a republish
// collaborator so the record outlives this client's sessions. The seed
// travels wrapped to the collaborator's public key; the collaborator
// can re-sign the pointer but cannot read any vault key.
func (v *Vault) EnrollRepublish(ctx context.Context, pointerName string, collaboratorPub []byte) error {
	if v.Republish == nil {
		return ErrNoRepublish
	}
	ps := v.State.GetPointer(pointerName)
	if ps == nil {
		return fmt.Errorf("%w: %s", ErrUnknownPointer, pointerName)
	}

	var scopeKey []byte
	var err error
	switch ps.Kind {
	case KindFolder:
		scopeKey, err = v.folderKeyFor(ctx, pointerName)
	case KindFile:
		scopeKey, err = v.folderKeyFor(ctx, ps.Parent)
	default:
		return fmt.Errorf("%w: pointer kind %q", ErrInvalidState, ps.Kind)
	}
	if err != nil {
		return err
	}
	defer keyring.Zero(scopeKey)

	seed, err := metadata.DecryptDocument(ps.SigningKeySealed, scopeKey)
	if err != nil {
		return err
	}
	defer keyring.Zero(seed)

	wrapped, err := wrap.Wrap(seed, collaboratorPub)
	if err != nil {
		return err
	}
	return v.Republish.SubmitWrappedSigningKey(ctx, pointerName, wrapped)
}
