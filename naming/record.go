// Package naming publishes and resolves mutable pointer records.
//
// A pointer record maps a stable name, derived from an ed25519 public key,
// to a mutable value with a monotonically increasing sequence number. The
// naming service enforces sequence ordering; clients carry a verification
// bundle (signature, signed payload, public key) so records can be checked
// end to end without trusting the service.
package naming

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/FSM1/cipher-box-sub012/signing"
)

// payloadPrefix domain-separates pointer signatures from any other use of
// the same signing key.
const payloadPrefix = "cipherbox-pointer-v1:"

// PointerRecord is a single published state of a mutable pointer.
//
// Value and Sequence are always present. Signature, SignedPayload and
// PublicKey form the verification bundle; a record read back from the
// local cache carries no bundle and has FromCache set.
type PointerRecord struct {
	// Value is the content the pointer currently targets, typically a
	// content address in hex.
	Value string

	// Sequence orders successive publishes of the same name. The service
	// rejects any submission whose sequence does not exceed the stored one.
	Sequence uint64

	// Signature is the ed25519 signature over SignedPayload.
	Signature []byte

	// SignedPayload is the exact byte string that was signed. Verifiers
	// recompute it from Value and Sequence and require a byte match.
	SignedPayload []byte

	// PublicKey is the ed25519 key the record claims to be signed with.
	// Its hash must equal the pointer name.
	PublicKey []byte

	// FromCache marks records served from the local cache rather than the
	// naming service. Cached records are unverifiable and must not be used
	// where authenticity matters.
	FromCache bool
}

// SignedPayloadFor builds the canonical byte string signed for a pointer
// publish: a fixed prefix, the sequence in big-endian, then the value.
func SignedPayloadFor(value string, sequence uint64) []byte {
	payload := make([]byte, 0, len(payloadPrefix)+8+len(value))
	payload = append(payload, payloadPrefix...)
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], sequence)
	payload = append(payload, seq[:]...)
	payload = append(payload, value...)
	return payload
}

// HasBundle reports whether the record carries a complete verification
// bundle. A record with some but not all bundle fields is treated as
// bundle-less; StripPartialBundle normalizes it.
func (r *PointerRecord) HasBundle() bool {
	return len(r.Signature) > 0 && len(r.SignedPayload) > 0 && len(r.PublicKey) > 0
}

// StripPartialBundle clears the verification bundle unless all three
// fields are present. A partial bundle carries no authenticity and would
// otherwise fail verification in confusing ways.
func (r *PointerRecord) StripPartialBundle() {
	if r.HasBundle() {
		return
	}
	r.Signature = nil
	r.SignedPayload = nil
	r.PublicKey = nil
}

// VerifyBundle checks the record's verification bundle against the pointer
// name it was resolved under. It requires, in order:
//
//   - a complete bundle
//   - SignedPayload equal to the canonical payload for (Value, Sequence)
//   - PublicKey hashing to name
//   - a valid signature over SignedPayload
//
// Any failure returns ErrUnverifiedRecord.
func (r *PointerRecord) VerifyBundle(name string) error {
	if !r.HasBundle() {
		return fmt.Errorf("%w: missing verification bundle", ErrUnverifiedRecord)
	}
	if !bytes.Equal(r.SignedPayload, SignedPayloadFor(r.Value, r.Sequence)) {
		return fmt.Errorf("%w: signed payload does not match record contents", ErrUnverifiedRecord)
	}
	if PointerNameForKey(r.PublicKey) != name {
		return fmt.Errorf("%w: public key does not own pointer name", ErrUnverifiedRecord)
	}
	if !signing.Verify(r.Signature, r.SignedPayload, r.PublicKey) {
		return fmt.Errorf("%w: bad signature", ErrUnverifiedRecord)
	}
	return nil
}

// Clone returns a deep copy of the record.
func (r *PointerRecord) Clone() *PointerRecord {
	if r == nil {
		return nil
	}
	out := &PointerRecord{
		Value:     r.Value,
		Sequence:  r.Sequence,
		FromCache: r.FromCache,
	}
	if r.Signature != nil {
		out.Signature = append([]byte(nil), r.Signature...)
	}
	if r.SignedPayload != nil {
		out.SignedPayload = append([]byte(nil), r.SignedPayload...)
	}
	if r.PublicKey != nil {
		out.PublicKey = append([]byte(nil), r.PublicKey...)
	}
	return out
}
