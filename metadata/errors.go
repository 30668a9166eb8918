package metadata

import "errors"

var (
	// ErrInvalidKey is returned when a document key has the wrong length.
	ErrInvalidKey = errors.New("metadata: invalid document key")

	// ErrEncryptionFailed is returned on any internal encryption failure.
	ErrEncryptionFailed = errors.New("metadata: document encryption failed")

	// ErrDecryptionFailed is returned when an envelope cannot be opened.
	// A wrong key and a tampered envelope produce this same error.
	ErrDecryptionFailed = errors.New("metadata: document decryption failed")

	// ErrInvalidEnvelope is returned when a stored envelope is
	// structurally malformed.
	ErrInvalidEnvelope = errors.New("metadata: invalid envelope")

	// ErrInvalidMetadata is returned when a document fails structural
	// validation.
	ErrInvalidMetadata = errors.New("metadata: invalid metadata document")

	// ErrUnsupportedVersion is returned for a version tag this build does
	// not know.
	ErrUnsupportedVersion = errors.New("metadata: unsupported schema version")

	// ErrHybridChildren is returned when a folder document mixes child
	// schema versions. Hybrid documents are rejected, never coerced.
	ErrHybridChildren = errors.New("metadata: mixed child schema versions")

	// ErrInvalidName is returned when a child name is unusable.
	ErrInvalidName = errors.New("metadata: invalid child name")

	// ErrChildExists is returned when a child name is already taken.
	ErrChildExists = errors.New("metadata: child already exists")

	// ErrChildNotFound is returned when a named child does not exist.
	ErrChildNotFound = errors.New("metadata: child not found")
)
