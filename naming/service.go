package naming

import "context"

// Service is the transport to a naming service that stores pointer records.
// Implementations must enforce sequence ordering on submission and should
// return records with their verification bundle intact.
type Service interface {
	// ResolvePointer fetches the current record for name.
	// Returns ErrPointerNotFound if the name has never been published.
	ResolvePointer(ctx context.Context, name string) (*PointerRecord, error)

	// SubmitPointer stores a new record for name. The record's sequence
	// must exceed the currently stored sequence; otherwise the service
	// returns ErrSequenceConflict.
	SubmitPointer(ctx context.Context, name string, record *PointerRecord) error
}
