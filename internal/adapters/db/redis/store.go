// Package redis stores credential entries in Redis so several daemons can share one session.
package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// Store is a Redis-backed key-value store. Keys are namespaced as marquee:<namespace>:<key>.
type Store struct {
	client *goredis.Client
	prefix string
}

// NewStore wraps an existing client
func NewStore(client *goredis.Client, namespace string) *Store {
	return &Store{client: client, prefix: keyPrefix(namespace)}
}

func keyPrefix(namespace string) string {
	if namespace == "" {
		namespace = "default"
	}
	return "marquee:" + namespace + ":"
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

// Get returns the value stored under key
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

// Set stores value under key without expiry; session expiry is enforced by the monitor
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes keys
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
