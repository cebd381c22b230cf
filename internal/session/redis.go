package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"minimart/internal/model"
	"minimart/pkg/uid"
)

// redisKeyPrefix namespaces session keys in a shared redis.
const redisKeyPrefix = "minimart:session:"

// RedisStore keeps sessions in redis so several customerd replicas can
// share them. Staleness is checked in code against the last-active time
// stored in the value; the key TTL is only a garbage-collection floor, so
// within the retention window an expired session still reports ErrExpired
// instead of ErrNotFound.
type RedisStore struct {
	client  *redis.Client
	timeout time.Duration
	now     func() time.Time
}

// NewRedisStore wraps an existing redis client. A timeout of zero
// selects DefaultTimeout.
func NewRedisStore(client *redis.Client, timeout time.Duration) *RedisStore {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RedisStore{
		client:  client,
		timeout: timeout,
		now:     time.Now,
	}
}

// Create issues a brand-new session token.
func (s *RedisStore) Create(ctx context.Context, role string, userID int64) (string, error) {
	token := uid.New()
	sess := model.Session{
		ID:         token,
		Role:       role,
		UserID:     userID,
		LastActive: s.now(),
	}
	if err := s.write(ctx, &sess); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return token, nil
}

// Get validates a token, refreshing last-active on success.
func (s *RedisStore) Get(ctx context.Context, token string) (*model.Session, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+token).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var sess model.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}

	now := s.now()
	if now.Sub(sess.LastActive) > s.timeout {
		s.client.Del(ctx, redisKeyPrefix+token)
		return nil, ErrExpired
	}

	sess.LastActive = now
	if err := s.write(ctx, &sess); err != nil {
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}
	return &sess, nil
}

// Delete removes a session; absent tokens are ignored.
func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Close closes the redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) write(ctx context.Context, sess *model.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKeyPrefix+sess.ID, raw, retention).Err()
}

var _ Store = (*RedisStore)(nil)
