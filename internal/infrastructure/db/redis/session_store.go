package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/sdca/hris-portal/internal/core/domain"
)

const keyPrefix = "hris:session:"

// SessionStore keeps the current session in two Redis keys.
// Key format: hris:session:<namespace>:user and hris:session:<namespace>:token
type SessionStore struct {
	client   *redis.Client
	userKey  string
	tokenKey string
}

// NewSessionStore creates a SessionStore wrapping the given Redis client.
func NewSessionStore(client *redis.Client, namespace string) *SessionStore {
	if namespace == "" {
		namespace = "default"
	}
	base := keyPrefix + namespace
	return &SessionStore{
		client:   client,
		userKey:  base + ":user",
		tokenKey: base + ":token",
	}
}

// Load reads both halves of the session in one round-trip.
func (s *SessionStore) Load(ctx context.Context) (domain.Session, error) {
	vals, err := s.client.MGet(ctx, s.userKey, s.tokenKey).Result()
	if err != nil {
		return domain.Session{}, fmt.Errorf("load session: %w", err)
	}
	return domain.DecodeSession(str(vals[0]), str(vals[1]))
}

// Save writes user and token inside MULTI/EXEC so readers never see one without the other.
func (s *SessionStore) Save(ctx context.Context, sess domain.Session) error {
	user, token, err := domain.EncodeSession(sess)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.userKey, user, 0)
		p.Set(ctx, s.tokenKey, token, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Clear removes both keys. Clearing an empty store is not an error.
func (s *SessionStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.userKey, s.tokenKey).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Ping checks connectivity for readiness probes.
func (s *SessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func str(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
