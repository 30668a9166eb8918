// Package signing implements the Ed25519 keypairs that authenticate
// mutable pointer records.
//
// Every folder and file pointer has its own signing keypair; the user
// identity carries one derived deterministically from the master secret.
// Verification is deliberately boolean: an invalid signature is a normal
// false, never an error, so callers cannot accidentally treat a failed
// check as a fatal condition.
package signing

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

const (
	// PublicKeyLen is the length of an Ed25519 public key in bytes.
	PublicKeyLen = ed25519.PublicKeySize

	// PrivateKeyLen is the length of an Ed25519 private key in bytes.
	PrivateKeyLen = ed25519.PrivateKeySize

	// SeedLen is the length of the private key seed in bytes. The seed is
	// the form that gets sealed or wrapped for persistence; the full
	// private key is reconstructed from it with KeypairFromSeed.
	SeedLen = ed25519.SeedSize

	// SignatureLen is the length of a signature in bytes.
	SignatureLen = ed25519.SignatureSize
)

// GenerateKeypair creates a fresh random signing keypair.
func GenerateKeypair() (pub, priv []byte, err error) {
	p, s, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrKeygenFailed, err)
	}
	return p, s, nil
}

// KeypairFromSeed reconstructs a signing keypair from a 32-byte seed.
// Deterministic: the same seed always yields the same keypair.
func KeypairFromSeed(seed []byte) (pub, priv []byte, err error) {
	if len(seed) != SeedLen {
		return nil, nil, fmt.Errorf("%w: seed must be %d bytes, got %d", ErrInvalidSeed, SeedLen, len(seed))
	}
	s := ed25519.NewKeyFromSeed(seed)
	p := make([]byte, PublicKeyLen)
	copy(p, s[SeedLen:])
	return p, s, nil
}

// Seed extracts a copy of the 32-byte seed from a private key.
func Seed(priv []byte) ([]byte, error) {
	if len(priv) != PrivateKeyLen {
		return nil, fmt.Errorf("%w: private key must be %d bytes, got %d", ErrInvalidPrivateKey, PrivateKeyLen, len(priv))
	}
	seed := make([]byte, SeedLen)
	copy(seed, priv[:SeedLen])
	return seed, nil
}

// Sign signs message with priv and returns a 64-byte signature.
func Sign(message, priv []byte) ([]byte, error) {
	if len(priv) != PrivateKeyLen {
		return nil, fmt.Errorf("%w: private key must be %d bytes, got %d", ErrInvalidPrivateKey, PrivateKeyLen, len(priv))
	}
	return ed25519.Sign(ed25519.PrivateKey(priv), message), nil
}

// Verify reports whether signature is a valid signature of message by the
// holder of pub. Never returns an error: malformed inputs are false.
func Verify(signature, message, pub []byte) bool {
	if len(pub) != PublicKeyLen || len(signature) != SignatureLen {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), message, signature)
}
