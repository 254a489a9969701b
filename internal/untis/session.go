package untis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore caches authenticated upstream sessions between requests so
// that repeated calls for the same user avoid re-authenticating. A nil store
// means every request logs in and out, which matches the upstream's regular
// single-shot flow.
type SessionStore interface {
	Get(ctx context.Context, username string) (*Session, error)
	Put(ctx context.Context, username string, session *Session) error
	Delete(ctx context.Context, username string) error
}

// RedisSessionStore keeps sessions in Redis under a per-username key with a
// TTL matching the upstream session lifetime.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore constructs the store.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisSessionStore{client: client, ttl: ttl}
}

func sessionKey(username string) string {
	return fmt.Sprintf("untis:session:%s", username)
}

// Get returns the cached session, or (nil, nil) on a miss.
func (s *RedisSessionStore) Get(ctx context.Context, username string) (*Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(username)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Put stores the session, refreshing its TTL.
func (s *RedisSessionStore) Put(ctx context.Context, username string, session *Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKey(username), raw, s.ttl).Err()
}

// Delete evicts a session the upstream no longer accepts.
func (s *RedisSessionStore) Delete(ctx context.Context, username string) error {
	return s.client.Del(ctx, sessionKey(username)).Err()
}
