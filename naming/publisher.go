package naming

import (
	"context"
	"errors"
	"fmt"

	"github.com/FSM1/cipher-box-sub012/signing"
)

// MaxPublishRetries bounds how many times a publish is retried after
// losing a sequence race to a concurrent writer.
const MaxPublishRetries = 3

// Publisher signs and submits pointer records, handling sequence
// assignment and conflict retries.
type Publisher struct {
	// Service receives submissions. Required.
	Service Service

	// Resolver establishes the current sequence before each attempt.
	// Required; it must resolve through the same service.
	Resolver *Resolver
}

// NewPublisher creates a publisher over svc with an optional cache shared
// with its resolver.
func NewPublisher(svc Service, cache *PointerCache) *Publisher {
	return &Publisher{Service: svc, Resolver: NewResolver(svc, cache)}
}

// Publish signs value under privateKey and submits it to the pointer name
// owned by publicKey, at one past the current sequence. Lost sequence
// races are retried with a re-resolved sequence up to MaxPublishRetries
// times, then give up with ErrPublishConflict.
//
// On success the accepted record is returned and cached.
func (p *Publisher) Publish(ctx context.Context, publicKey, privateKey []byte, value string) (*PointerRecord, error) {
	if value == "" {
		return nil, ErrEmptyValue
	}
	if len(publicKey) != signing.PublicKeyLen {
		return nil, fmt.Errorf("%w: public key must be %d bytes", ErrInvalidRecord, signing.PublicKeyLen)
	}
	name := PointerNameForKey(publicKey)

	seq, err := p.currentSequence(ctx, name)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < MaxPublishRetries; attempt++ {
		rec, err := buildRecord(value, seq+1, publicKey, privateKey)
		if err != nil {
			return nil, err
		}

		err = p.Service.SubmitPointer(ctx, name, rec)
		if err == nil {
			if p.Resolver != nil && p.Resolver.Cache != nil {
				_ = p.Resolver.Cache.Put(name, rec)
			}
			return rec, nil
		}
		if !errors.Is(err, ErrSequenceConflict) {
			return nil, fmt.Errorf("naming: publish: %w", err)
		}

		// Lost the race. Re-resolve to pick up the winner's sequence.
		seq, err = p.currentSequence(ctx, name)
		if err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: gave up after %d attempts", ErrPublishConflict, MaxPublishRetries)
}

// currentSequence returns the sequence of the latest verified record for
// name, or zero for a name that has never been published. Cached and
// bundle-less records cannot settle a sequence race, so only a verified
// resolve counts.
func (p *Publisher) currentSequence(ctx context.Context, name string) (uint64, error) {
	rec, err := p.Resolver.ResolveVerified(ctx, name)
	if err != nil {
		if errors.Is(err, ErrPointerNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("naming: current sequence: %w", err)
	}
	return rec.Sequence, nil
}

// buildRecord signs the canonical payload for (value, sequence) and
// assembles the full record with its verification bundle.
func buildRecord(value string, sequence uint64, publicKey, privateKey []byte) (*PointerRecord, error) {
	payload := SignedPayloadFor(value, sequence)
	sig, err := signing.Sign(payload, privateKey)
	if err != nil {
		return nil, fmt.Errorf("naming: sign record: %w", err)
	}
	return &PointerRecord{
		Value:         value,
		Sequence:      sequence,
		Signature:     sig,
		SignedPayload: payload,
		PublicKey:     publicKey,
	}, nil
}
