package keyring

import "errors"

var (
	// ErrEmptyMasterSecret is returned when a derivation is attempted
	// with no master secret.
	ErrEmptyMasterSecret = errors.New("keyring: empty master secret")

	// ErrEmptyContextLabel is returned when a derivation is attempted
	// with no context label.
	ErrEmptyContextLabel = errors.New("keyring: empty context label")

	// ErrDerivationFailed is returned when key derivation fails
	// internally.
	ErrDerivationFailed = errors.New("keyring: key derivation failed")

	// ErrEntropyFailure is returned when the system entropy source fails.
	// The operation must be aborted, never retried with a weaker source.
	ErrEntropyFailure = errors.New("keyring: entropy source failure")

	// ErrEmptyPassphrase is returned when an empty passphrase is given.
	ErrEmptyPassphrase = errors.New("keyring: empty passphrase")

	// ErrInvalidSalt is returned when a passphrase salt has the wrong
	// length.
	ErrInvalidSalt = errors.New("keyring: invalid salt")
)
