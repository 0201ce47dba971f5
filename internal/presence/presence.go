package presence

import (
	"context"
	"fmt"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const onlineTTL = 5 * time.Minute

// Tracker records which users currently hold a live gateway connection.
type Tracker interface {
	SetOnline(ctx context.Context, userID int64) error
	SetOffline(ctx context.Context, userID int64) error
	IsOnline(ctx context.Context, userID int64) (bool, error)
	Close() error
}

// RedisTracker keeps presence in Redis so multiple gateway nodes agree on
// who is connected. Keys carry a TTL as a safety net against crashed nodes
// that never ran SetOffline.
type RedisTracker struct {
	client *redis.Client
}

func NewRedisTracker(redisURL string) (*RedisTracker, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("presence: parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("presence: ping: %w", err)
	}

	return &RedisTracker{client: client}, nil
}

func presenceKey(userID int64) string {
	return fmt.Sprintf("presence:user:%d", userID)
}

func (t *RedisTracker) SetOnline(ctx context.Context, userID int64) error {
	return t.client.Set(ctx, presenceKey(userID), "1", onlineTTL).Err()
}

func (t *RedisTracker) SetOffline(ctx context.Context, userID int64) error {
	return t.client.Del(ctx, presenceKey(userID)).Err()
}

func (t *RedisTracker) IsOnline(ctx context.Context, userID int64) (bool, error) {
	count, err := t.client.Exists(ctx, presenceKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (t *RedisTracker) Close() error {
	return t.client.Close()
}

// MemoryTracker is the single-node fallback when Redis is not configured.
type MemoryTracker struct {
	mu     sync.RWMutex
	online map[int64]int
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{online: make(map[int64]int)}
}

func (t *MemoryTracker) SetOnline(ctx context.Context, userID int64) error {
	t.mu.Lock()
	t.online[userID]++
	t.mu.Unlock()
	return nil
}

func (t *MemoryTracker) SetOffline(ctx context.Context, userID int64) error {
	t.mu.Lock()
	if t.online[userID] > 1 {
		t.online[userID]--
	} else {
		delete(t.online, userID)
	}
	t.mu.Unlock()
	return nil
}

func (t *MemoryTracker) IsOnline(ctx context.Context, userID int64) (bool, error) {
	t.mu.RLock()
	_, ok := t.online[userID]
	t.mu.RUnlock()
	return ok, nil
}

func (t *MemoryTracker) Close() error { return nil }
