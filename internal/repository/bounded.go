package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"go-minimal-auth/internal/model"
)

const (
	DefaultStoreTimeout      = 5 * time.Second
	DefaultStoreReadAttempts = 3
)

// BoundedUserStore puts a deadline on every store call and retries the
// idempotent reads with exponential backoff. Inserts are attempted once.
type BoundedUserStore struct {
	inner         UserStore
	timeout       time.Duration
	readAttempts  uint
	retryInterval time.Duration
}

func NewBoundedUserStore(inner UserStore, timeout time.Duration, readAttempts int) *BoundedUserStore {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	if readAttempts <= 0 {
		readAttempts = DefaultStoreReadAttempts
	}

	return &BoundedUserStore{
		inner:         inner,
		timeout:       timeout,
		readAttempts:  uint(readAttempts),
		retryInterval: 100 * time.Millisecond,
	}
}

func (s *BoundedUserStore) FindByUsername(ctx context.Context, username string) (model.User, bool, error) {
	type lookup struct {
		user  model.User
		found bool
	}

	result, err := retryRead(ctx, s, "find_by_username", func(callCtx context.Context) (lookup, error) {
		user, found, err := s.inner.FindByUsername(callCtx, username)
		return lookup{user: user, found: found}, err
	})
	if err != nil {
		return model.User{}, false, err
	}
	return result.user, result.found, nil
}

func (s *BoundedUserStore) Insert(ctx context.Context, username string, passwordHash string) (model.User, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.inner.Insert(callCtx, username, passwordHash)
}

func (s *BoundedUserStore) ListUsernamesOrderedByCreation(ctx context.Context) ([]string, error) {
	return retryRead(ctx, s, "list_usernames", s.inner.ListUsernamesOrderedByCreation)
}

func (s *BoundedUserStore) Ping(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.inner.Ping(callCtx)
}

func (s *BoundedUserStore) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retryInterval
	b.MaxInterval = 10 * s.retryInterval
	return b
}

// retryRead retries only store failures; anything else, including the
// caller's own cancellation, ends the loop immediately.
func retryRead[T any](ctx context.Context, s *BoundedUserStore, op string, fn func(context.Context) (T, error)) (T, error) {
	attempt := 0

	return backoff.Retry(ctx, func() (T, error) {
		attempt++

		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		value, err := fn(callCtx)
		if err == nil {
			return value, nil
		}
		if ctx.Err() != nil || !errors.Is(err, model.ErrStore) {
			return value, backoff.Permanent(err)
		}

		slog.Warn("store read failed", "op", op, "attempt", attempt, "error", err)
		return value, err
	},
		backoff.WithBackOff(s.newBackOff()),
		backoff.WithMaxTries(s.readAttempts),
	)
}
