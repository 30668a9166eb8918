package keyring

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	// SaltLen is the length of a passphrase derivation salt.
	SaltLen = 16

	// Argon2id parameters for master secret derivation.
	argon2Time        = 3
	argon2Memory      = 64 * 1024
	argon2Parallelism = 4
)

// MasterSecretFromPassphrase derives the session master secret from the
// user's passphrase with Argon2id. The salt is public and persisted
// client-side; the passphrase never is. Deterministic for a given
// (passphrase, salt) pair.
func MasterSecretFromPassphrase(passphrase string, salt []byte) ([]byte, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	if len(salt) != SaltLen {
		return nil, fmt.Errorf("%w: salt must be %d bytes, got %d", ErrInvalidSalt, SaltLen, len(salt))
	}
	return argon2.IDKey([]byte(passphrase), salt, argon2Time, argon2Memory, argon2Parallelism, KeyLen), nil
}

// NewPassphraseSalt creates a fresh random salt for passphrase derivation.
func NewPassphraseSalt() ([]byte, error) {
	salt := make([]byte, SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEntropyFailure, err)
	}
	return salt, nil
}
