package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"coach-storefront/internal/domain/model"
	"coach-storefront/internal/domain/ports/repository"
	"coach-storefront/internal/infra/metrics"
	red "coach-storefront/internal/infra/redis"
)

var (
	_ repository.ProductRepository = (*productRepoCacheDecorator)(nil)
	_ repository.ProductSeeder     = (*productRepoCacheDecorator)(nil)
)

const productListKey = "products:active"

type productSource interface {
	repository.ProductRepository
	repository.ProductSeeder
}

// productRepoCacheDecorator serves catalog reads from Redis. Cache errors fall through to the DB.
type productRepoCacheDecorator struct {
	inner  productSource
	cache  red.RedisClient
	ttl    time.Duration
	logger *zerolog.Logger
}

func NewProductRepoCacheDecorator(inner productSource, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) *productRepoCacheDecorator {
	if ttl <= 0 {
		ttl = time.Hour
	}
	l := logger.With().Str("component", "ProductCache").Logger()
	return &productRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, logger: &l}
}

func productKey(id string) string { return "product:" + id }

func (d *productRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Product, error) {
	key := productKey(id)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var p model.Product
		if json.Unmarshal([]byte(val), &p) == nil {
			metrics.IncCacheRequest("product", "hit")
			return &p, nil
		}
	} else if !errors.Is(err, red.Nil) {
		metrics.IncCacheRequest("product", "error")
		d.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}

	metrics.IncCacheRequest("product", "miss")
	p, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(p); err == nil {
		if err := d.cache.Set(ctx, key, b, d.ttl); err != nil {
			d.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	return p, nil
}

func (d *productRepoCacheDecorator) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Product, error) {
	val, err := d.cache.Get(ctx, productListKey)
	if err == nil {
		var ps []*model.Product
		if json.Unmarshal([]byte(val), &ps) == nil {
			metrics.IncCacheRequest("product_list", "hit")
			return ps, nil
		}
	}

	metrics.IncCacheRequest("product_list", "miss")
	ps, err := d.inner.ListActive(ctx, tx)
	if err != nil {
		return nil, err
	}
	if len(ps) > 0 {
		if b, err := json.Marshal(ps); err == nil {
			_ = d.cache.Set(ctx, productListKey, b, d.ttl)
		}
	}
	return ps, nil
}

// Upsert drops the item and list keys before writing.
func (d *productRepoCacheDecorator) Upsert(ctx context.Context, tx repository.Tx, p *model.Product) error {
	if p != nil {
		_ = d.cache.Del(ctx, productKey(p.ID), productListKey)
	}
	return d.inner.Upsert(ctx, tx, p)
}
