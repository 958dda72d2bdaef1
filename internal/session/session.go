// Package session holds the dashboard's explicit credential object: it is
// acquired at login, attached to every backend request, and cleared at
// logout.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/inventory-dashboard/internal/backend"
	"github.com/ariefcatur/inventory-dashboard/internal/redisx"
)

var ErrNotFound = errors.New("session not found")

type Session struct {
	ID        string       `json:"id"`
	Token     string       `json:"token"`
	User      backend.User `json:"user"`
	CreatedAt time.Time    `json:"created_at"`
}

type Store struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewStore(rdb redis.Cmdable, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = redisx.TTLSession
	}
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) TTL() time.Duration { return s.ttl }

func (s *Store) Create(ctx context.Context, token string, user backend.User) (Session, error) {
	sess := Session{
		ID:        uuid.NewString(),
		Token:     token,
		User:      user,
		CreatedAt: time.Now().UTC(),
	}
	b, err := json.Marshal(sess)
	if err != nil {
		return Session{}, err
	}
	if err := s.rdb.Set(ctx, key(sess.ID), b, s.ttl).Err(); err != nil {
		return Session{}, fmt.Errorf("store session: %w", err)
	}
	return sess, nil
}

func (s *Store) Get(ctx context.Context, id string) (Session, error) {
	raw, err := s.rdb.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return sess, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, key(id)).Err()
}

func key(id string) string { return fmt.Sprintf(redisx.KeySession, id) }

type ctxKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}
