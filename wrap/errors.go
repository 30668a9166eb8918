package wrap

import "errors"

var (
	// ErrInvalidPublicKey is returned when a recipient public key is not
	// a valid compressed secp256k1 point.
	ErrInvalidPublicKey = errors.New("wrap: invalid public key")

	// ErrInvalidPrivateKey is returned when a recipient private key has
	// the wrong length or cannot be parsed.
	ErrInvalidPrivateKey = errors.New("wrap: invalid private key")

	// ErrInvalidKeyLength is returned when the key to wrap is not exactly
	// KeyLen bytes.
	ErrInvalidKeyLength = errors.New("wrap: invalid key length")

	// ErrWrapFailed is returned on any internal wrap failure. The cause
	// is deliberately not exposed.
	ErrWrapFailed = errors.New("wrap: key wrap failed")

	// ErrUnwrapFailed is returned on any unwrap failure. A wrong key and
	// a tampered blob produce this same error.
	ErrUnwrapFailed = errors.New("wrap: key unwrap failed")

	// ErrRewrapFailed is returned on any rewrap failure.
	ErrRewrapFailed = errors.New("wrap: key rewrap failed")
)
