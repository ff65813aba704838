package auth

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"

	"go-user-api/internal/model"
)

const DefaultHashCost = 10

// PasswordHasher computes bcrypt digests off the caller's goroutine. At most
// `concurrency` digests are computed at once; further callers queue until a
// slot frees up or their context ends.
type PasswordHasher struct {
	cost  int
	slots *semaphore.Weighted
}

func NewPasswordHasher(cost int, concurrency int) (*PasswordHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	return &PasswordHasher{
		cost:  cost,
		slots: semaphore.NewWeighted(int64(concurrency)),
	}, nil
}

func (h *PasswordHasher) Hash(ctx context.Context, password string) (string, error) {
	if password == "" || len(password) > model.MaxPasswordBytes {
		return "", fmt.Errorf("hash password: %w", model.ErrInvalidInput)
	}

	type result struct {
		digest []byte
		err    error
	}

	out, err := run(ctx, h.slots, func() result {
		digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
		return result{digest: digest, err: err}
	})
	if err != nil {
		return "", err
	}
	if out.err != nil {
		return "", fmt.Errorf("hash password: %w", out.err)
	}

	return string(out.digest), nil
}

// Verify reports whether password matches digest. A malformed digest, an
// oversized password or a cancelled context all yield false.
func (h *PasswordHasher) Verify(ctx context.Context, password string, digest string) bool {
	if digest == "" || len(password) > model.MaxPasswordBytes {
		return false
	}

	ok, err := run(ctx, h.slots, func() bool {
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
	})
	if err != nil {
		return false
	}

	return ok
}

// NeedsRehash reports whether digest was produced with a cost other than the
// configured one.
func (h *PasswordHasher) NeedsRehash(digest string) bool {
	cost, err := bcrypt.Cost([]byte(digest))
	if err != nil {
		return true
	}
	return cost != h.cost
}

func (h *PasswordHasher) Cost() int {
	return h.cost
}

func run[T any](ctx context.Context, slots *semaphore.Weighted, fn func() T) (T, error) {
	var zero T

	if err := slots.Acquire(ctx, 1); err != nil {
		return zero, fmt.Errorf("wait for hash slot: %w", err)
	}

	done := make(chan T, 1)
	go func() {
		defer slots.Release(1)
		done <- fn()
	}()

	select {
	case v := <-done:
		return v, nil
	case <-ctx.Done():
		// The worker still finishes and releases its slot.
		return zero, fmt.Errorf("hash aborted: %w", ctx.Err())
	}
}
