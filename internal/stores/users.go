package stores

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserExists           = errors.New("user already exists")
	ErrUserRedisUnavailable = errors.New("user redis unavailable")
)

// UserRecord is an account of the development auth server.
type UserRecord struct {
	ID           string
	Name         string
	Email        string
	Role         string
	PasswordHash string
}

// UserStore keeps accounts as Redis hashes with a unique email index.
//
//	<prefix>:u:<id>     hash of the record
//	<prefix>:e:<email>  id
type UserStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewUserStore(redisClient redis.UniversalClient, prefix string) *UserStore {
	if prefix == "" {
		prefix = "dsu"
	}
	return &UserStore{redis: redisClient, prefix: prefix}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserStore) userKey(id string) string {
	return s.prefix + ":u:" + id
}

func (s *UserStore) emailKey(email string) string {
	return s.prefix + ":e:" + normalizeEmail(email)
}

// Create stores rec. The email claim is taken first so two concurrent
// registrations cannot both succeed.
func (s *UserStore) Create(ctx context.Context, rec *UserRecord) error {
	claimed, err := s.redis.SetNX(ctx, s.emailKey(rec.Email), rec.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUserRedisUnavailable, err)
	}
	if !claimed {
		return ErrUserExists
	}

	err = s.redis.HSet(ctx, s.userKey(rec.ID),
		"id", rec.ID,
		"name", rec.Name,
		"email", normalizeEmail(rec.Email),
		"role", rec.Role,
		"hash", rec.PasswordHash,
	).Err()
	if err != nil {
		s.redis.Del(ctx, s.emailKey(rec.Email))
		return fmt.Errorf("%w: %v", ErrUserRedisUnavailable, err)
	}
	return nil
}

func (s *UserStore) ByID(ctx context.Context, id string) (*UserRecord, error) {
	fields, err := s.redis.HGetAll(ctx, s.userKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUserRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrUserNotFound
	}
	return &UserRecord{
		ID:           fields["id"],
		Name:         fields["name"],
		Email:        fields["email"],
		Role:         fields["role"],
		PasswordHash: fields["hash"],
	}, nil
}

func (s *UserStore) ByEmail(ctx context.Context, email string) (*UserRecord, error) {
	id, err := s.redis.Get(ctx, s.emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUserRedisUnavailable, err)
	}
	return s.ByID(ctx, id)
}

func (s *UserStore) SetPasswordHash(ctx context.Context, id, hash string) error {
	n, err := s.redis.Exists(ctx, s.userKey(id)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUserRedisUnavailable, err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	if err := s.redis.HSet(ctx, s.userKey(id), "hash", hash).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUserRedisUnavailable, err)
	}
	return nil
}
