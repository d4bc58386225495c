package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store keeps credential entries in the credential_entries table, one row per (namespace, key)
type Store struct {
	pool      *pgxpool.Pool
	namespace string
}

// NewStore constructs a Store for one namespace
func NewStore(pool *pgxpool.Pool, namespace string) *Store {
	if namespace == "" {
		namespace = "default"
	}
	return &Store{pool: pool, namespace: namespace}
}

// Get returns the value stored under key
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM credential_entries WHERE namespace=$1 AND key=$2`,
		s.namespace, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get credential entry %s: %w", key, err)
	}
	return value, true, nil
}

// Set upserts value under key
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO credential_entries (namespace,key,value,updated_at) VALUES ($1,$2,$3,now())
		 ON CONFLICT (namespace,key) DO UPDATE SET value=EXCLUDED.value, updated_at=now()`,
		s.namespace, key, value)
	if err != nil {
		return fmt.Errorf("set credential entry %s: %w", key, err)
	}
	return nil
}

// Delete removes keys
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`DELETE FROM credential_entries WHERE namespace=$1 AND key = ANY($2)`,
		s.namespace, keys)
	if err != nil {
		return fmt.Errorf("delete credential entries: %w", err)
	}
	return nil
}
