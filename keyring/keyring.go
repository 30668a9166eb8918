// Package keyring implements the CipherBox key hierarchy.
//
// All key material descends from, or is wrapped toward, a per-user master
// secret that exists only in memory for the session. Purpose-scoped keys
// are derived deterministically from it with HKDF-SHA256; folder and file
// keys are generated randomly and are never derived, so compromising one
// reveals nothing about any other.
package keyring

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeyLen is the length of all derived and generated symmetric keys.
	KeyLen = 32

	// DomainSalt is the fixed domain-separation salt for context key
	// derivation. Changing it invalidates every derived key.
	DomainSalt = "cipherbox-key-derivation-v1"

	// ContextEncryptionKey labels the derivation of the user's asymmetric
	// encryption keypair.
	ContextEncryptionKey = "user-encryption-keypair"

	// ContextSigningKey labels the derivation of the user's pointer
	// signing keypair.
	ContextSigningKey = "user-signing-keypair"
)

// DeriveContextKey derives a purpose-scoped 256-bit key from the master
// secret. Deterministic: the same (masterSecret, contextLabel) pair always
// yields the same key, which is what makes identity recovery possible
// without any persisted key material. Distinct labels yield independent
// keys.
func DeriveContextKey(masterSecret []byte, contextLabel string) ([]byte, error) {
	if len(masterSecret) == 0 {
		return nil, ErrEmptyMasterSecret
	}
	if contextLabel == "" {
		return nil, ErrEmptyContextLabel
	}

	reader := hkdf.New(sha256.New, masterSecret, []byte(DomainSalt), []byte(contextLabel))
	key := make([]byte, KeyLen)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDerivationFailed, err)
	}
	return key, nil
}

// GenerateFolderKey creates a fresh random 256-bit folder key. Each call
// returns an independent key; folder keys are never derived from the
// master secret and never reused across folders.
func GenerateFolderKey() ([]byte, error) {
	return generateKey()
}

// GenerateFileKey creates a fresh random 256-bit file content key. Each
// call returns an independent key; file keys are never derived from the
// master secret and never reused across files.
func GenerateFileKey() ([]byte, error) {
	return generateKey()
}

func generateKey() ([]byte, error) {
	key := make([]byte, KeyLen)
	if _, err := rand.Read(key); err != nil {
		// Entropy failure is fatal for the operation. Callers must not
		// retry with a weaker source.
		return nil, fmt.Errorf("%w: %w", ErrEntropyFailure, err)
	}
	return key, nil
}

// Zero overwrites b with zeros. Call it on key material as soon as the
// key leaves scope.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
