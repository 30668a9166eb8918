package keyring

import (
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"

	"github.com/FSM1/cipher-box-sub012/signing"
)

// Identity holds the user's deterministic keypairs: a secp256k1 keypair
// for key wrapping and an Ed25519 keypair for pointer signing. Both are
// re-derivable from the master secret alone.
type Identity struct {
	// EncryptionPriv is the 32-byte secp256k1 scalar used to unwrap keys
	// wrapped to this user.
	EncryptionPriv []byte

	// EncryptionPub is the 33-byte compressed secp256k1 point other users
	// wrap keys toward.
	EncryptionPub []byte

	// SigningPriv is the 64-byte Ed25519 private key for the identity's
	// own pointer records.
	SigningPriv []byte

	// SigningPub is the 32-byte Ed25519 public key.
	SigningPub []byte
}

// NewIdentity derives both user keypairs from the master secret. The
// intermediate context keys are zeroized before returning.
func NewIdentity(masterSecret []byte) (*Identity, error) {
	encSeed, err := DeriveContextKey(masterSecret, ContextEncryptionKey)
	if err != nil {
		return nil, err
	}
	defer Zero(encSeed)

	encPriv, encPub := ec.PrivateKeyFromBytes(encSeed)
	if encPriv == nil || encPub == nil {
		return nil, ErrDerivationFailed
	}

	sigSeed, err := DeriveContextKey(masterSecret, ContextSigningKey)
	if err != nil {
		return nil, err
	}
	defer Zero(sigSeed)

	sigPub, sigPriv, err := signing.KeypairFromSeed(sigSeed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDerivationFailed, err)
	}

	return &Identity{
		EncryptionPriv: scalarBytes(encPriv),
		EncryptionPub:  encPub.Compressed(),
		SigningPriv:    sigPriv,
		SigningPub:     sigPub,
	}, nil
}

// Destroy zeroizes the identity's private key material. The identity must
// not be used afterwards.
func (id *Identity) Destroy() {
	if id == nil {
		return
	}
	Zero(id.EncryptionPriv)
	Zero(id.SigningPriv)
}

// scalarBytes returns the private scalar as 32 big-endian bytes,
// zero-padded on the left.
func scalarBytes(priv *ec.PrivateKey) []byte {
	b := priv.D.Bytes()
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}
