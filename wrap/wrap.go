// Package wrap implements asymmetric wrapping of symmetric keys for
// sharing and persistence.
//
// A 256-bit key is wrapped toward a recipient's secp256k1 public key with
// an ephemeral ECDH exchange:
//
//	shared = ECDH(ephemeralPriv, recipientPub).x
//	okm    = HKDF-SHA256(ikm=shared, salt=ephemeralPub, info=HKDFInfo, 44 bytes)
//	aesKey = okm[:32]
//	nonce  = okm[32:]
//	output = ephemeralPub(33) || AES-256-GCM(aesKey, nonce, key) || tag(16)
//
// The nonce is derived, not stored: the ephemeral keypair is fresh per
// wrap, so the (aesKey, nonce) pair never repeats. The output is
// self-contained and starts with a fixed-size compressed public key, so
// no external framing is needed to unwrap it.
//
// Failures during the cryptographic steps of Wrap, Unwrap and Rewrap
// collapse to a single generic error per operation. A wrong private key
// and a tampered blob are indistinguishable to the caller.
package wrap

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"fmt"
	"io"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"golang.org/x/crypto/hkdf"

	"github.com/FSM1/cipher-box-sub012/keyring"
)

const (
	// KeyLen is the length of a wrappable symmetric key.
	KeyLen = 32

	// EphemeralPubKeyLen is the length of the compressed ephemeral public
	// key prefixed to every wrapped key.
	EphemeralPubKeyLen = 33

	// PrivateKeyLen is the length of a recipient private key scalar.
	PrivateKeyLen = 32

	// NonceLen is the AES-GCM nonce length in bytes.
	NonceLen = 12

	// GCMTagLen is the AES-GCM authentication tag length in bytes.
	GCMTagLen = 16

	// WrappedKeyLen is the exact length of a wrapped 32-byte key.
	WrappedKeyLen = EphemeralPubKeyLen + KeyLen + GCMTagLen

	// MinWrappedKeyLen is the minimum plausible wrapped key length:
	// public key prefix plus authentication tag.
	MinWrappedKeyLen = EphemeralPubKeyLen + GCMTagLen

	// HKDFInfo is the domain separation string for wrap key derivation.
	HKDFInfo = "cipherbox-key-wrap"
)

// Wrap encrypts a 32-byte symmetric key toward recipientPub (a 33-byte
// compressed secp256k1 point). The result is ephemeral public key,
// ciphertext and tag concatenated.
func Wrap(key, recipientPub []byte) ([]byte, error) {
	if len(key) != KeyLen {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", ErrInvalidKeyLength, KeyLen, len(key))
	}
	pub, err := parsePublicKey(recipientPub)
	if err != nil {
		return nil, err
	}

	eph, err := ec.NewPrivateKey()
	if err != nil {
		return nil, ErrWrapFailed
	}
	ephPub := eph.PubKey().Compressed()

	gcm, nonce, err := wrapCipher(eph, pub, ephPub)
	if err != nil {
		return nil, ErrWrapFailed
	}

	sealed := gcm.Seal(nil, nonce, key, nil)
	out := make([]byte, 0, len(ephPub)+len(sealed))
	out = append(out, ephPub...)
	out = append(out, sealed...)
	return out, nil
}

// Unwrap recovers a key wrapped toward the holder of recipientPriv (a
// 32-byte secp256k1 scalar).
func Unwrap(wrapped, recipientPriv []byte) ([]byte, error) {
	priv, err := parsePrivateKey(recipientPriv)
	if err != nil {
		return nil, err
	}
	// Length check before any cryptographic work.
	if len(wrapped) < MinWrappedKeyLen {
		return nil, ErrUnwrapFailed
	}

	ephPubBytes := wrapped[:EphemeralPubKeyLen]
	ephPub, err := ec.PublicKeyFromBytes(ephPubBytes)
	if err != nil {
		return nil, ErrUnwrapFailed
	}

	gcm, nonce, err := wrapCipher(priv, ephPub, ephPubBytes)
	if err != nil {
		return nil, ErrUnwrapFailed
	}

	key, err := gcm.Open(nil, nonce, wrapped[EphemeralPubKeyLen:], nil)
	if err != nil {
		return nil, ErrUnwrapFailed
	}
	if len(key) != KeyLen {
		keyring.Zero(key)
		return nil, ErrUnwrapFailed
	}
	return key, nil
}

// Rewrap unwraps a key with the owner's private key and wraps it toward a
// recipient, without the key ever leaving this function. The intermediate
// plaintext key is zeroized on every exit path. All failures collapse to
// ErrRewrapFailed.
func Rewrap(ownerWrapped, ownerPriv, recipientPub []byte) ([]byte, error) {
	key, err := Unwrap(ownerWrapped, ownerPriv)
	if err != nil {
		return nil, ErrRewrapFailed
	}
	defer keyring.Zero(key)

	out, err := Wrap(key, recipientPub)
	if err != nil {
		return nil, ErrRewrapFailed
	}
	return out, nil
}

// wrapCipher derives the AES-GCM cipher and nonce shared by Wrap and
// Unwrap. The intermediate secrets are zeroized before returning.
func wrapCipher(priv *ec.PrivateKey, pub *ec.PublicKey, ephPub []byte) (cipher.AEAD, []byte, error) {
	shared, err := sharedSecretX(priv, pub)
	if err != nil {
		return nil, nil, err
	}
	defer keyring.Zero(shared)

	reader := hkdf.New(sha256.New, shared, ephPub, []byte(HKDFInfo))
	okm := make([]byte, KeyLen+NonceLen)
	if _, err := io.ReadFull(reader, okm); err != nil {
		return nil, nil, err
	}
	defer keyring.Zero(okm[:KeyLen])

	block, err := aes.NewCipher(okm[:KeyLen])
	if err != nil {
		return nil, nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}
	return gcm, okm[KeyLen:], nil
}

// sharedSecretX returns the ECDH shared point x-coordinate as exactly 32
// bytes, left-padded with zeros.
func sharedSecretX(priv *ec.PrivateKey, pub *ec.PublicKey) ([]byte, error) {
	point, err := priv.DeriveSharedSecret(pub)
	if err != nil {
		return nil, err
	}

	xBytes := point.X.Bytes()
	if len(xBytes) < 32 {
		padded := make([]byte, 32)
		copy(padded[32-len(xBytes):], xBytes)
		return padded, nil
	}
	return xBytes[:32], nil
}

func parsePublicKey(pubBytes []byte) (*ec.PublicKey, error) {
	if len(pubBytes) != EphemeralPubKeyLen {
		return nil, fmt.Errorf("%w: public key must be %d bytes, got %d", ErrInvalidPublicKey, EphemeralPubKeyLen, len(pubBytes))
	}
	if pubBytes[0] != 0x02 && pubBytes[0] != 0x03 {
		return nil, fmt.Errorf("%w: public key must be in compressed form", ErrInvalidPublicKey)
	}
	pub, err := ec.PublicKeyFromBytes(pubBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPublicKey, err)
	}
	return pub, nil
}

func parsePrivateKey(privBytes []byte) (*ec.PrivateKey, error) {
	if len(privBytes) != PrivateKeyLen {
		return nil, fmt.Errorf("%w: private key must be %d bytes, got %d", ErrInvalidPrivateKey, PrivateKeyLen, len(privBytes))
	}
	priv, _ := ec.PrivateKeyFromBytes(privBytes)
	if priv == nil {
		return nil, ErrInvalidPrivateKey
	}
	return priv, nil
}
