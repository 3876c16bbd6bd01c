package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrLockHeld means another instance owns the key.
var ErrLockHeld = errors.New("lock held by another owner")

type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

var _ Locker = (*RedisLocker)(nil)

type RedisLocker struct {
	cli RedisClient
}

func NewLocker(c RedisClient) *RedisLocker {
	return &RedisLocker{cli: c}
}

// TryLock makes a single SET NX attempt. Callers that lose simply skip their turn.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := l.cli.SetNX(ctx, key, token, ttl)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrLockHeld
	}
	return token, nil
}

func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	_, err := l.cli.CompareAndDelete(ctx, key, token)
	return err
}
