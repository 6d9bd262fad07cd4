package sku

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateShape(t *testing.T) {
	for i := 0; i < 200; i++ {
		got, err := Generate()
		require.NoError(t, err)
		assert.Len(t, got, Length)
		assert.True(t, Valid(got), "unexpected sku %q", got)
	}
}

func TestUniqueRetriesExactlyOnceOnSingleCollision(t *testing.T) {
	gen := NewGenerator(5)
	calls := 0
	seen := make([]string, 0, 2)

	got, err := gen.Unique(context.Background(), func(_ context.Context, candidate string) (bool, error) {
		calls++
		seen = append(seen, candidate)
		return calls == 1, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, seen[1], got)
	assert.True(t, Valid(got))
}

func TestUniqueRedrawsCandidateOnCollision(t *testing.T) {
	gen := NewGenerator(5)
	draws := []string{"AAAAAAAA", "BBBBBBBB"}
	gen.random = func() (string, error) {
		next := draws[0]
		draws = draws[1:]
		return next, nil
	}

	got, err := gen.Unique(context.Background(), func(_ context.Context, candidate string) (bool, error) {
		return candidate == "AAAAAAAA", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "BBBBBBBB", got)
}

func TestUniqueGivesUpAfterMaxAttempts(t *testing.T) {
	gen := NewGenerator(3)
	calls := 0

	_, err := gen.Unique(context.Background(), func(context.Context, string) (bool, error) {
		calls++
		return true, nil
	})

	require.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 3, calls)
}

func TestUniqueStopsOnCheckerError(t *testing.T) {
	gen := NewGenerator(3)
	boom := errors.New("db down")
	calls := 0

	_, err := gen.Unique(context.Background(), func(context.Context, string) (bool, error) {
		calls++
		return false, boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("AB12CD34"))
	assert.False(t, Valid("ab12cd34"))
	assert.False(t, Valid("AB12CD3"))
	assert.False(t, Valid("AB12-D34"))
}
