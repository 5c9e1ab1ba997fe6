// Package cache keeps short-lived snapshots of course listings in Redis.
//
// Entries are the raw upstream bodies, so a hit decodes exactly like a fresh
// fetch. A nil *CourseCache is valid and never hits.
package cache

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const keyPrefix = "portal:courses:"

// Store is the key-value backend of the cache
type Store interface {
	// Get returns the value stored under key.
	// Returns redis.Nil if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}

type redisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a Store backed by Redis
func NewRedisStore(rdb *redis.Client) Store {
	return &redisStore{rdb: rdb}
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	return s.rdb.Get(ctx, key).Bytes()
}

func (s *redisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *redisStore) DeletePrefix(ctx context.Context, prefix string) error {
	iter := s.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}

// CourseCache caches course listing bodies
type CourseCache struct {
	store  Store
	ttl    time.Duration
	logger *zap.Logger
}

// NewCourseCache creates a course cache; a nil store or non-positive ttl
// returns nil, which disables caching
func NewCourseCache(store Store, ttl time.Duration, logger *zap.Logger) *CourseCache {
	if store == nil || ttl <= 0 {
		return nil
	}
	return &CourseCache{store: store, ttl: ttl, logger: logger}
}

// ListingKey builds the cache key of a listing and its query parameters
func ListingKey(listing string, params map[string]string) string {
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	key := keyPrefix + listing
	if encoded := values.Encode(); encoded != "" {
		key += "?" + encoded
	}
	return key
}

// Get returns the cached body under key. Backend failures count as misses.
func (c *CourseCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}

	body, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("course cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return body, true
}

// Set stores body under key
func (c *CourseCache) Set(ctx context.Context, key string, body []byte) {
	if c == nil {
		return
	}
	if err := c.store.Set(ctx, key, body, c.ttl); err != nil {
		c.logger.Warn("course cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops every cached listing, after a course or batch changed
func (c *CourseCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	if err := c.store.DeletePrefix(ctx, keyPrefix); err != nil {
		c.logger.Warn("course cache invalidation failed", zap.Error(err))
	}
}
