package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateFormat(t *testing.T) {
	alloc := NewIDAllocator()
	pattern := regexp.MustCompile(`^[1-9][0-9]{9}$`)

	never := func(ctx context.Context, id string) (bool, error) { return false, nil }

	for i := 0; i < 100; i++ {
		id, err := alloc.Allocate(context.Background(), never)
		require.NoError(t, err)
		assert.Regexp(t, pattern, id)
	}
}

func TestAllocateRetriesOnCollision(t *testing.T) {
	alloc := NewIDAllocator()

	calls := 0
	exists := func(ctx context.Context, id string) (bool, error) {
		calls++
		// first three draws collide
		return calls <= 3, nil
	}

	id, err := alloc.Allocate(context.Background(), exists)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 4, calls)
}

func TestAllocateGivesUpEventually(t *testing.T) {
	alloc := NewIDAllocator()

	always := func(ctx context.Context, id string) (bool, error) { return true, nil }

	_, err := alloc.Allocate(context.Background(), always)
	assert.Error(t, err)
}
