package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goAuthClient/api"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps Redis failures other than a missing key.
var ErrRedisUnavailable = errors.New("redis unavailable")

// RedisStore keeps one profile's session under a single Redis key.
type RedisStore struct {
	redis redis.UniversalClient
	key   string
	ttl   time.Duration
}

// NewRedisStore returns a RedisStore for profile under prefix. A zero ttl
// keeps the key until Clear.
func NewRedisStore(client redis.UniversalClient, prefix, profile string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "gac"
	}
	return &RedisStore{
		redis: client,
		key:   prefix + ":token:" + profile,
		ttl:   ttl,
	}
}

// Key returns the Redis key holding the session.
func (s *RedisStore) Key() string { return s.key }

// Get implements [Store].
func (s *RedisStore) Get(ctx context.Context) (Persisted, bool, error) {
	data, err := s.redis.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Persisted{}, false, nil
		}
		return Persisted{}, false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var p Persisted
	if err := json.Unmarshal(data, &p); err != nil {
		return Persisted{}, false, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if p.Token == "" {
		return Persisted{}, false, nil
	}
	return p, true, nil
}

// Set implements [Store].
func (s *RedisStore) Set(ctx context.Context, token string, user *api.User) error {
	if token == "" {
		return errors.New("empty token")
	}
	data, err := json.Marshal(Persisted{Token: token, User: user, SavedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Clear implements [Store].
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
