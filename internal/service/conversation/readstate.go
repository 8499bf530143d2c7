package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// ReadStateStore tracks how many support replies a visitor has not seen yet.
// Agent messages increment the counter, markMessagesAsRead resets it and the
// closed-widget poll reads it without touching the message table.
type ReadStateStore interface {
	Increment(ctx context.Context, widgetID, conversationID string, delta int) error
	Reset(ctx context.Context, widgetID, conversationID string) error
	Count(ctx context.Context, widgetID, conversationID string) (int, error)
}

// RedisReadStateStore keeps counters in Redis. Counters are a cache of read
// state, not the source of truth; losing them on a Redis restart only resets
// unread badges to zero.
type RedisReadStateStore struct {
	client *redis.Client
}

func NewRedisReadStateStore(addr, password string) *RedisReadStateStore {
	return &RedisReadStateStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       0,
		}),
	}
}

func unreadKey(widgetID, conversationID string) string {
	return fmt.Sprintf("unread:%s:%s", widgetID, conversationID)
}

func (s *RedisReadStateStore) Increment(ctx context.Context, widgetID, conversationID string, delta int) error {
	if err := s.client.IncrBy(ctx, unreadKey(widgetID, conversationID), int64(delta)).Err(); err != nil {
		return fmt.Errorf("increment unread counter: %w", err)
	}
	return nil
}

func (s *RedisReadStateStore) Reset(ctx context.Context, widgetID, conversationID string) error {
	if err := s.client.Del(ctx, unreadKey(widgetID, conversationID)).Err(); err != nil {
		return fmt.Errorf("reset unread counter: %w", err)
	}
	return nil
}

func (s *RedisReadStateStore) Count(ctx context.Context, widgetID, conversationID string) (int, error) {
	count, err := s.client.Get(ctx, unreadKey(widgetID, conversationID)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("read unread counter: %w", err)
	}
	return count, nil
}
