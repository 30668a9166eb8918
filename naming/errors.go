package naming

import "errors"

var (
	// ErrInvalidPointerName indicates a pointer name that is not 40 lowercase
	// hex characters.
	ErrInvalidPointerName = errors.New("naming: invalid pointer name")

	// ErrEmptyValue indicates an attempt to publish a record with no value.
	ErrEmptyValue = errors.New("naming: empty record value")

	// ErrInvalidRecord indicates a pointer record that is structurally broken:
	// missing fields, a malformed verification bundle, or an inconsistent
	// signed payload.
	ErrInvalidRecord = errors.New("naming: invalid pointer record")

	// ErrPointerNotFound indicates the naming service has no record for the
	// requested name.
	ErrPointerNotFound = errors.New("naming: pointer not found")

	// ErrSequenceConflict indicates a publish was rejected because the record's
	// sequence number does not exceed the currently stored one.
	ErrSequenceConflict = errors.New("naming: sequence conflict")

	// ErrPublishConflict indicates repeated publish attempts kept losing the
	// sequence race and the publisher gave up.
	ErrPublishConflict = errors.New("naming: publish conflict")

	// ErrUnverifiedRecord indicates a record whose verification bundle is
	// absent, incomplete, or fails signature or ownership checks.
	ErrUnverifiedRecord = errors.New("naming: unverified record")

	// ErrStaleRecord indicates the service returned a record with a lower
	// sequence number than one previously observed for the same name.
	ErrStaleRecord = errors.New("naming: stale record")

	// ErrResolveFailed indicates resolution failed and no cached record was
	// available to fall back on.
	ErrResolveFailed = errors.New("naming: resolve failed")

	// ErrCacheFailure indicates the local pointer cache could not be read
	// or written.
	ErrCacheFailure = errors.New("naming: cache failure")

	// ErrNoDNSLinkRecord indicates the queried domain has no TXT record
	// carrying a pointer name.
	ErrNoDNSLinkRecord = errors.New("naming: no dnslink record")

	// ErrDNSLookupFailed indicates the DNS query itself failed.
	ErrDNSLookupFailed = errors.New("naming: dns lookup failed")

	// ErrDNSSECValidationFailed indicates the resolver did not authenticate
	// the DNS response.
	ErrDNSSECValidationFailed = errors.New("naming: dnssec validation failed")

	// ErrRepublishFailed indicates enrollment with the republish service
	// did not complete.
	ErrRepublishFailed = errors.New("naming: republish enrollment failed")
)
