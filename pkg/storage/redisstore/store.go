package redisstore

import (
	"context"
	"errors"
	"time"

	pkgredis "github.com/angelmondragon/storefront/pkg/redis"
)

type client interface {
	Get(ctx context.Context, key string) (string, error)
	GetDel(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	VisitorKey(visitorID, name string) string
	Ping(ctx context.Context) error
	Close() error
}

// Store keeps visitor state in Redis, one string key per visitor entry. Every write
// refreshes the entry TTL so abandoned visitors expire on their own.
type Store struct {
	client client
	ttl    time.Duration
}

func New(c *pkgredis.Client, ttl time.Duration) *Store {
	return &Store{client: c, ttl: ttl}
}

func (s *Store) Get(ctx context.Context, visitorID, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.client.VisitorKey(visitorID, key))
	if errors.Is(err, pkgredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, visitorID, key, value string) error {
	return s.client.Set(ctx, s.client.VisitorKey(visitorID, key), value, s.ttl)
}

func (s *Store) Delete(ctx context.Context, visitorID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, key := range keys {
		full = append(full, s.client.VisitorKey(visitorID, key))
	}
	return s.client.Del(ctx, full...)
}

// Take relies on GETDEL, which is atomic on the server.
func (s *Store) Take(ctx context.Context, visitorID, key string) (string, bool, error) {
	v, err := s.client.GetDel(ctx, s.client.VisitorKey(visitorID, key))
	if errors.Is(err, pkgredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *Store) Close() error {
	return s.client.Close()
}
