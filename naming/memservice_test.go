package naming

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPointerName(seed string) string {
	return strings.Repeat(seed, 40/len(seed))
}

func TestMemServiceRoundTrip(t *testing.T) {
	svc := NewMemService()
	ctx := context.Background()
	name := testPointerName("ab")

	_, err := svc.ResolvePointer(ctx, name)
	assert.ErrorIs(t, err, ErrPointerNotFound)

	rec := &PointerRecord{Value: "cid-one", Sequence: 1}
	require.NoError(t, svc.SubmitPointer(ctx, name, rec))

	got, err := svc.ResolvePointer(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, "cid-one", got.Value)
	assert.Equal(t, uint64(1), got.Sequence)
	assert.False(t, got.FromCache)
}

func TestMemServiceSequenceOrdering(t *testing.T) {
	svc := NewMemService()
	ctx := context.Background()
	name := testPointerName("cd")

	require.NoError(t, svc.SubmitPointer(ctx, name, &PointerRecord{Value: "v1", Sequence: 5}))

	tests := []struct {
		name string
		seq  uint64
	}{
		{"equal sequence", 5},
		{"lower sequence", 4},
		{"zero sequence", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.SubmitPointer(ctx, name, &PointerRecord{Value: "v2", Sequence: tt.seq})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSequenceConflict)
		})
	}

	// Higher sequence wins.
	require.NoError(t, svc.SubmitPointer(ctx, name, &PointerRecord{Value: "v2", Sequence: 6}))
	got, err := svc.ResolvePointer(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Value)
	assert.Equal(t, uint64(6), got.Sequence)
}

func TestMemServiceReturnsCopies(t *testing.T) {
	svc := NewMemService()
	ctx := context.Background()
	name := testPointerName("ef")

	require.NoError(t, svc.SubmitPointer(ctx, name, &PointerRecord{
		Value:         "v1",
		Sequence:      1,
		Signature:     []byte{1, 2, 3},
		SignedPayload: []byte{4, 5, 6},
		PublicKey:     []byte{7, 8, 9},
	}))

	first, err := svc.ResolvePointer(ctx, name)
	require.NoError(t, err)
	first.Value = "mutated"
	first.Signature[0] = 0xFF

	second, err := svc.ResolvePointer(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, "v1", second.Value)
	assert.Equal(t, []byte{1, 2, 3}, second.Signature)
}

func TestMemServiceValidation(t *testing.T) {
	svc := NewMemService()
	ctx := context.Background()

	_, err := svc.ResolvePointer(ctx, "not-a-pointer")
	assert.ErrorIs(t, err, ErrInvalidPointerName)

	err = svc.SubmitPointer(ctx, "not-a-pointer", &PointerRecord{Value: "v", Sequence: 1})
	assert.ErrorIs(t, err, ErrInvalidPointerName)

	err = svc.SubmitPointer(ctx, testPointerName("ab"), &PointerRecord{Sequence: 1})
	assert.ErrorIs(t, err, ErrEmptyValue)

	err = svc.SubmitPointer(ctx, testPointerName("ab"), nil)
	assert.ErrorIs(t, err, ErrEmptyValue)
}

func TestMemServiceCanceledContext(t *testing.T) {
	svc := NewMemService()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ResolvePointer(ctx, testPointerName("ab"))
	assert.ErrorIs(t, err, context.Canceled)

	err = svc.SubmitPointer(ctx, testPointerName("ab"), &PointerRecord{Value: "v", Sequence: 1})
	assert.ErrorIs(t, err, context.Canceled)
}
