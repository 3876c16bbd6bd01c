//go:build !integration

package postgres

import (
	"context"
	"time"

	"coach-storefront/internal/domain/model"
	"coach-storefront/internal/domain/ports/repository"
	red "coach-storefront/internal/infra/redis"
)

// mockInnerProductRepo mocks the database repository that the product decorator wraps.
type mockInnerProductRepo struct {
	FindByIDFunc   func(ctx context.Context, tx repository.Tx, id string) (*model.Product, error)
	ListActiveFunc func(ctx context.Context, tx repository.Tx) ([]*model.Product, error)
	UpsertFunc     func(ctx context.Context, tx repository.Tx, p *model.Product) error
}

func (m *mockInnerProductRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Product, error) {
	return m.FindByIDFunc(ctx, tx, id)
}
func (m *mockInnerProductRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Product, error) {
	return m.ListActiveFunc(ctx, tx)
}
func (m *mockInnerProductRepo) Upsert(ctx context.Context, tx repository.Tx, p *model.Product) error {
	return m.UpsertFunc(ctx, tx, p)
}

// mockRedisClient mocks our Redis client wrapper. Unset funcs behave like an empty cache.
type mockRedisClient struct {
	GetFunc func(ctx context.Context, key string) (string, error)
	SetFunc func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc func(ctx context.Context, keys ...string) error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc == nil {
		return "", red.Nil
	}
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc == nil {
		return nil
	}
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc == nil {
		return nil
	}
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return true, nil
}
func (m *mockRedisClient) CompareAndDelete(ctx context.Context, key, expected string) (bool, error) {
	return true, nil
}
func (m *mockRedisClient) Ping(ctx context.Context) error                      { return nil }
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) { return 1, nil }
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return nil
}
func (m *mockRedisClient) Close() error { return nil }
