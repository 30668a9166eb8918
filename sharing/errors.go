package sharing

import "errors"

var (
	// ErrNilParam indicates a required parameter was nil.
	ErrNilParam = errors.New("sharing: nil parameter")

	// ErrInvalidShare indicates a share row missing required fields.
	ErrInvalidShare = errors.New("sharing: invalid share")

	// ErrShareNotFound indicates no share exists with the given id.
	ErrShareNotFound = errors.New("sharing: share not found")

	// ErrShareKeyNotFound indicates no sub-item key row exists for the
	// given share and pointer name.
	ErrShareKeyNotFound = errors.New("sharing: share key not found")

	// ErrDuplicateShare indicates a share id collision on create.
	ErrDuplicateShare = errors.New("sharing: duplicate share")

	// ErrAlreadyRevoked indicates a revoke on a share that is already
	// revoked.
	ErrAlreadyRevoked = errors.New("sharing: share already revoked")

	// ErrRevoked indicates an operation that requires an active share was
	// attempted on a revoked one.
	ErrRevoked = errors.New("sharing: share is revoked")

	// ErrStoreFailure indicates the underlying share store failed.
	ErrStoreFailure = errors.New("sharing: store failure")

	// ErrRotationFailed indicates the item owner could not rotate the
	// underlying key.
	ErrRotationFailed = errors.New("sharing: rotation failed")

	// ErrRevocationRace indicates a share was revoked while a rotation for
	// the same item was in flight. The rotation itself completed; the newly
	// revoked recipient still holds the new key until the next mutation.
	ErrRevocationRace = errors.New("sharing: share revoked during rotation")
)
