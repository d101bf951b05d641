package service

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	apperrors "github.com/wfunc/remi-scorer/internal/errors"
)

// idMin and idMax bound the identifier space: every ID is exactly ten
// decimal digits with a nonzero leading digit.
const (
	idMin = 1_000_000_000
	idMax = 9_999_999_999

	// maxAllocAttempts collision retries before giving up. The space
	// holds nine billion IDs, so hitting this means the store is
	// misbehaving, not that the space is full.
	maxAllocAttempts = 16
)

// IDAllocator draws random ten-digit identifiers and re-draws on
// collision. Each namespace (series, sessions) probes its own
// existence check.
type IDAllocator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewIDAllocator seeds a private random source
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Allocate returns an identifier unused according to exists
func (a *IDAllocator) Allocate(ctx context.Context, exists func(ctx context.Context, id string) (bool, error)) (string, error) {
	for attempt := 0; attempt < maxAllocAttempts; attempt++ {
		a.mu.Lock()
		n := idMin + a.rng.Int63n(idMax-idMin+1)
		a.mu.Unlock()

		id := strconv.FormatInt(n, 10)

		taken, err := exists(ctx, id)
		if err != nil {
			return "", apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "id existence check failed")
		}
		if !taken {
			return id, nil
		}
	}

	return "", apperrors.New(apperrors.ErrDatabaseInsert, "could not allocate a unique identifier")
}
