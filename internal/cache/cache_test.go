package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// memoryStore is an in-memory Store for tests
type memoryStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	failGet error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return nil, m.failGet
	}
	v, ok := m.data[key]
	if !ok {
		return nil, redis.Nil
	}
	return v, nil
}

func (m *memoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memoryStore) DeletePrefix(ctx context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
		}
	}
	return nil
}

func TestListingKey(t *testing.T) {
	assert.Equal(t, "portal:courses:all", ListingKey("all", nil))
	assert.Equal(t,
		"portal:courses:search?limit=12&page=1&q=go",
		ListingKey("search", map[string]string{"q": "go", "page": "1", "limit": "12"}),
	)
}

func TestCourseCache(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	c := NewCourseCache(store, time.Minute, zap.NewNop())

	_, ok := c.Get(ctx, "portal:courses:all")
	assert.False(t, ok)

	c.Set(ctx, "portal:courses:all", []byte(`[]`))
	body, ok := c.Get(ctx, "portal:courses:all")
	assert.True(t, ok)
	assert.Equal(t, `[]`, string(body))
	assert.Equal(t, time.Minute, store.ttls["portal:courses:all"])

	store.data["other:key"] = []byte("keep")
	c.Invalidate(ctx)
	_, ok = c.Get(ctx, "portal:courses:all")
	assert.False(t, ok)
	assert.Contains(t, store.data, "other:key")

	store.failGet = errors.New("connection refused")
	_, ok = c.Get(ctx, "portal:courses:all")
	assert.False(t, ok)
}

func TestCourseCache_Disabled(t *testing.T) {
	assert.Nil(t, NewCourseCache(nil, time.Minute, zap.NewNop()))
	assert.Nil(t, NewCourseCache(newMemoryStore(), 0, zap.NewNop()))

	var c *CourseCache
	ctx := context.Background()
	c.Set(ctx, "k", []byte("v"))
	c.Invalidate(ctx)
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestCourseCache_UnreachableRedis(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	c := NewCourseCache(NewRedisStore(rdb), time.Minute, zap.NewNop())
	ctx := context.Background()

	c.Set(ctx, "portal:courses:all", []byte(`[]`))
	_, ok := c.Get(ctx, "portal:courses:all")
	assert.False(t, ok)
	c.Invalidate(ctx)
}
