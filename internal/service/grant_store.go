package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AccessGrantStore records per-session exam access-code grants. A grant is
// scoped to one login session and one exam; it expires with the session and
// is never persisted to the entity store.
type AccessGrantStore interface {
	Grant(ctx context.Context, sessionID string, examID uint) error
	HasGrant(ctx context.Context, sessionID string, examID uint) (bool, error)
}

type redisGrantStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisGrantStore builds a grant store backed by Redis. The TTL should
// match the login session lifetime so grants die with the session.
func NewRedisGrantStore(client *redis.Client, ttl time.Duration) AccessGrantStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &redisGrantStore{client: client, ttl: ttl}
}

func grantKey(sessionID string, examID uint) string {
	return fmt.Sprintf("access_grant:%s:exam:%d", sessionID, examID)
}

func (s *redisGrantStore) Grant(ctx context.Context, sessionID string, examID uint) error {
	return s.client.Set(ctx, grantKey(sessionID, examID), "1", s.ttl).Err()
}

func (s *redisGrantStore) HasGrant(ctx context.Context, sessionID string, examID uint) (bool, error) {
	_, err := s.client.Get(ctx, grantKey(sessionID, examID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
