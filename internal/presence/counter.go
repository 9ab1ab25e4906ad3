package presence

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Counter holds the number of live connections per user.
type Counter interface {
	Incr(ctx context.Context, userID string) (int64, error)
	// Decr never goes below zero. ok is false when the count was already zero.
	Decr(ctx context.Context, userID string) (n int64, ok bool, err error)
	Get(ctx context.Context, userID string) (int64, error)
}

type MemoryCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{counts: make(map[string]int64)}
}

func (c *MemoryCounter) Incr(_ context.Context, userID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[userID]++
	return c.counts[userID], nil
}

func (c *MemoryCounter) Decr(_ context.Context, userID string) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.counts[userID]
	if n <= 0 {
		return 0, false, nil
	}
	n--
	if n == 0 {
		delete(c.counts, userID)
	} else {
		c.counts[userID] = n
	}
	return n, true, nil
}

func (c *MemoryCounter) Get(_ context.Context, userID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[userID], nil
}

// floored decrement; -1 means the key was already at zero
var decrScript = redis.NewScript(`
local v = tonumber(redis.call('GET', KEYS[1]) or '0')
if v <= 0 then
  return -1
end
v = redis.call('DECR', KEYS[1])
if v <= 0 then
  redis.call('DEL', KEYS[1])
end
return v
`)

// RedisCounter shares connection counts between instances.
// Keys: <prefix>:presence:<userID>
type RedisCounter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisCounter(client redis.UniversalClient, prefix string) *RedisCounter {
	return &RedisCounter{client: client, prefix: prefix}
}

func (c *RedisCounter) key(userID string) string {
	return fmt.Sprintf("%s:presence:%s", c.prefix, userID)
}

func (c *RedisCounter) Incr(ctx context.Context, userID string) (int64, error) {
	return c.client.Incr(ctx, c.key(userID)).Result()
}

func (c *RedisCounter) Decr(ctx context.Context, userID string) (int64, bool, error) {
	n, err := decrScript.Run(ctx, c.client, []string{c.key(userID)}).Int64()
	if err != nil {
		return 0, false, err
	}
	if n < 0 {
		return 0, false, nil
	}
	return n, true, nil
}

func (c *RedisCounter) Get(ctx context.Context, userID string) (int64, error) {
	n, err := c.client.Get(ctx, c.key(userID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}
