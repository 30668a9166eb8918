package vault

import "errors"

var (
	// ErrRootExists is returned when InitRoot runs on a vault that
	// already has a root folder.
	ErrRootExists = errors.New("vault: root folder already initialized")

	// ErrRootMissing is returned by operations that need a root folder
	// before InitRoot has run.
	ErrRootMissing = errors.New("vault: root folder not initialized")

	// ErrUnknownPointer is returned when a pointer name has no local
	// binding in the vault state.
	ErrUnknownPointer = errors.New("vault: unknown pointer")

	// ErrNotFolder is returned when a folder operation targets a file.
	ErrNotFolder = errors.New("vault: item is not a folder")

	// ErrNotFile is returned when a file operation targets a folder.
	ErrNotFile = errors.New("vault: item is not a file")

	// ErrDepthExceeded is returned when a key lookup or share walk
	// descends past the folder nesting limit.
	ErrDepthExceeded = errors.New("vault: folder nesting too deep")

	// ErrContentEncryptionFailed reports a file content sealing failure.
	ErrContentEncryptionFailed = errors.New("vault: content encryption failed")

	// ErrContentDecryptionFailed reports a file content opening failure.
	// A wrong key and tampered ciphertext are indistinguishable.
	ErrContentDecryptionFailed = errors.New("vault: content decryption failed")

	// ErrNoSharedMetadata is returned when a direct file share is read
	// but the file blob carries no copy sealed under the file key.
	ErrNoSharedMetadata = errors.New("vault: file has no shared metadata copy")

	// ErrNoRepublish is returned when republish enrollment runs without
	// a configured collaborator.
	ErrNoRepublish = errors.New("vault: no republish collaborator configured")

	// ErrInvalidState reports a corrupt or inconsistent local state
	// entry.
	ErrInvalidState = errors.New("vault: invalid local state")
)
