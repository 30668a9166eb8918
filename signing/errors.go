package signing

import "errors"

var (
	// ErrKeygenFailed is returned when the system entropy source fails
	// during keypair generation.
	ErrKeygenFailed = errors.New("signing: keypair generation failed")

	// ErrInvalidSeed is returned when a seed has the wrong length.
	ErrInvalidSeed = errors.New("signing: invalid seed")

	// ErrInvalidPrivateKey is returned when a private key has the wrong
	// length.
	ErrInvalidPrivateKey = errors.New("signing: invalid private key")
)
