package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pitchroom/internal/auth"
	"pitchroom/pkg/platform/sentinel"
)

const keyPrefix = "session:"

// Redis stores sessions as JSON values with a TTL matching their expiry, so
// Redis itself reaps stale sessions.
type Redis struct {
	client redis.Cmdable
}

func NewRedis(client redis.Cmdable) *Redis {
	return &Redis{client: client}
}

func (s *Redis) Save(ctx context.Context, session auth.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session %s: %w", session.ID, sentinel.ErrExpired)
	}
	if err := s.client.Set(ctx, keyPrefix+session.ID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *Redis) Find(ctx context.Context, id string) (auth.Session, error) {
	payload, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return auth.Session{}, fmt.Errorf("session %s: %w", id, sentinel.ErrNotFound)
		}
		return auth.Session{}, fmt.Errorf("find session: %w", err)
	}
	var session auth.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return auth.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return session, nil
}

func (s *Redis) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
