package naming

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishFirstRecord(t *testing.T) {
	pub, priv := generateSigningKeypair(t)
	svc := NewMemService()
	p := NewPublisher(svc, nil)

	rec, err := p.Publish(context.Background(), pub, priv, "cid-one")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rec.Sequence, "first publish starts at sequence 1")
	assert.Equal(t, "cid-one", rec.Value)

	name := PointerNameForKey(pub)
	require.NoError(t, rec.VerifyBundle(name))

	got, err := p.Resolver.ResolveVerified(context.Background(), name)
	require.NoError(t, err)
	assert.Equal(t, "cid-one", got.Value)
}

func TestPublishIncrementsSequence(t *testing.T) {
	pub, priv := generateSigningKeypair(t)
	p := NewPublisher(NewMemService(), nil)
	ctx := context.Background()

	for i, value := range []string{"cid-a", "cid-b", "cid-c"} {
		rec, err := p.Publish(ctx, pub, priv, value)
		require.NoError(t, err)
		assert.Equal(t, uint64(i+1), rec.Sequence)
	}

	got, err := p.Resolver.Resolve(ctx, PointerNameForKey(pub))
	require.NoError(t, err)
	assert.Equal(t, "cid-c", got.Value)
	assert.Equal(t, uint64(3), got.Sequence)
}

func TestPublishCachesAcceptedRecord(t *testing.T) {
	pub, priv := generateSigningKeypair(t)
	cache := openTestCache(t)
	p := NewPublisher(NewMemService(), cache)

	_, err := p.Publish(context.Background(), pub, priv, "cid-one")
	require.NoError(t, err)

	cached, err := cache.Get(PointerNameForKey(pub))
	require.NoError(t, err)
	assert.Equal(t, "cid-one", cached.Value)
	assert.Equal(t, uint64(1), cached.Sequence)
}

func TestPublishRetriesAfterSequenceConflict(t *testing.T) {
	pub, priv := generateSigningKeypair(t)
	name := PointerNameForKey(pub)

	// A concurrent writer holding the same key has already published
	// sequence 5. The first submission races against it and loses.
	winner := signedRecord(t, "cid-winner", 5, pub, priv)
	var submitted []uint64
	var resolved int
	svc := &MockService{
		ResolvePointerFn: func(ctx context.Context, n string) (*PointerRecord, error) {
			resolved++
			if resolved == 1 {
				return nil, ErrPointerNotFound
			}
			return winner.Clone(), nil
		},
		SubmitPointerFn: func(ctx context.Context, n string, rec *PointerRecord) error {
			submitted = append(submitted, rec.Sequence)
			if rec.Sequence <= 5 {
				return ErrSequenceConflict
			}
			return nil
		},
	}

	p := NewPublisher(svc, nil)
	rec, err := p.Publish(context.Background(), pub, priv, "cid-mine")
	require.NoError(t, err)
	assert.Equal(t, uint64(6), rec.Sequence, "retry must jump past the winner's sequence")
	assert.Equal(t, []uint64{1, 6}, submitted)
	require.NoError(t, rec.VerifyBundle(name))
}

func TestPublishGivesUpAfterRepeatedConflicts(t *testing.T) {
	pub, priv := generateSigningKeypair(t)
	current := signedRecord(t, "cid-current", 1, pub, priv)

	var submits int
	svc := &MockService{
		ResolvePointerFn: func(ctx context.Context, n string) (*PointerRecord, error) {
			return current.Clone(), nil
		},
		SubmitPointerFn: func(ctx context.Context, n string, rec *PointerRecord) error {
			submits++
			return ErrSequenceConflict
		},
	}

	p := NewPublisher(svc, nil)
	_, err := p.Publish(context.Background(), pub, priv, "cid-mine")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPublishConflict)
	assert.Equal(t, MaxPublishRetries, submits)
}

func TestPublishFatalSubmitError(t *testing.T) {
	pub, priv := generateSigningKeypair(t)

	var submits int
	svc := &MockService{
		ResolvePointerFn: func(ctx context.Context, n string) (*PointerRecord, error) {
			return nil, ErrPointerNotFound
		},
		SubmitPointerFn: func(ctx context.Context, n string, rec *PointerRecord) error {
			submits++
			return errors.New("service exploded")
		},
	}

	p := NewPublisher(svc, nil)
	_, err := p.Publish(context.Background(), pub, priv, "cid-mine")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPublishConflict)
	assert.Equal(t, 1, submits, "non-conflict errors must not be retried")
}

func TestPublishValidation(t *testing.T) {
	pub, priv := generateSigningKeypair(t)
	p := NewPublisher(NewMemService(), nil)
	ctx := context.Background()

	_, err := p.Publish(ctx, pub, priv, "")
	assert.ErrorIs(t, err, ErrEmptyValue)

	_, err = p.Publish(ctx, pub[:16], priv, "cid-one")
	assert.ErrorIs(t, err, ErrInvalidRecord)
}
