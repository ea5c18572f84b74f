package earnings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
	"github.com/safar/go-sql-marketplace/internal/database"
	"github.com/safar/go-sql-marketplace/internal/store"
	"github.com/shopspring/decimal"
)

var ErrUnknownCategory = errors.New("unknown category")

// StoreRates reads commission rates straight from the categories table.
type StoreRates struct {
	q database.Querier
}

func NewStoreRates(q database.Querier) *StoreRates {
	return &StoreRates{q: q}
}

func (s *StoreRates) CommissionRate(ctx context.Context, categoryID int64) (decimal.Decimal, error) {
	rate, err := store.GetCommissionRate(ctx, s.q, categoryID)
	if errors.Is(err, database.ErrCategoryNotFound) {
		return decimal.Zero, fmt.Errorf("category %d: %w", categoryID, ErrUnknownCategory)
	}
	return rate, err
}

const localCacheSize = 1024

// CachedRates is a read-through cache in front of another CommissionSource.
// Entries live in a TinyLFU local cache and, when a client is given, in Redis
// so every API instance sees the same rate for the TTL.
type CachedRates struct {
	next  CommissionSource
	cache *cache.Cache
	ttl   time.Duration
}

func NewCachedRates(next CommissionSource, client *redis.Client, ttl time.Duration) *CachedRates {
	opts := &cache.Options{
		LocalCache: cache.NewTinyLFU(localCacheSize, ttl),
	}
	if client != nil {
		opts.Redis = client
	}

	return &CachedRates{
		next:  next,
		cache: cache.New(opts),
		ttl:   ttl,
	}
}

func rateKey(categoryID int64) string {
	return fmt.Sprintf("commission-rate:%d", categoryID)
}

func (c *CachedRates) CommissionRate(ctx context.Context, categoryID int64) (decimal.Decimal, error) {
	// decimals are cached in their string form; msgpack has no codec for them
	var raw string
	err := c.cache.Once(&cache.Item{
		Ctx:   ctx,
		Key:   rateKey(categoryID),
		Value: &raw,
		TTL:   c.ttl,
		Do: func(*cache.Item) (interface{}, error) {
			rate, err := c.next.CommissionRate(ctx, categoryID)
			if err != nil {
				return nil, err
			}
			return rate.String(), nil
		},
	})
	if err != nil {
		return decimal.Zero, err
	}

	return decimal.NewFromString(raw)
}

// Invalidate drops a category's cached rate after an admin changes it.
func (c *CachedRates) Invalidate(ctx context.Context, categoryID int64) error {
	err := c.cache.Delete(ctx, rateKey(categoryID))
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil
	}
	return err
}
