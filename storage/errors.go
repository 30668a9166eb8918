package storage

import "errors"

var (
	// ErrNotFound indicates no blob exists for the given address.
	ErrNotFound = errors.New("storage: content not found")

	// ErrInvalidAddress indicates an address is not exactly 32 bytes.
	ErrInvalidAddress = errors.New("storage: address must be 32 bytes")

	// ErrAddressMismatch indicates the data does not hash to the address
	// it was stored under.
	ErrAddressMismatch = errors.New("storage: content does not match address")

	// ErrIOFailure indicates a file read/write error.
	ErrIOFailure = errors.New("storage: I/O failure")

	// ErrEmptyContent indicates an attempt to store an empty blob.
	ErrEmptyContent = errors.New("storage: content is empty")

	// ErrInvalidBaseDir indicates the base directory path is invalid.
	ErrInvalidBaseDir = errors.New("storage: invalid base directory")
)
