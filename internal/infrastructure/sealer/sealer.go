// Package sealer encrypts values before they reach a key-value backend.
package sealer

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	domain "marquee/internal/domain/session"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// prefix marks sealed values so plaintext written by an older build is still readable
const prefix = "sealed:v1:"

var errEmptySecret = errors.New("sealer: empty secret")

// Store wraps a KeyValueStore and seals every value with XChaCha20-Poly1305.
// The key name is bound as additional data, so a value copied under another key fails to open.
type Store struct {
	next domain.KeyValueStore
	aead cipher.AEAD
}

// New derives a 256-bit key from secret with HKDF-SHA256
func New(next domain.KeyValueStore, secret string) (*Store, error) {
	if secret == "" {
		return nil, errEmptySecret
	}
	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("marquee credential store"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return &Store{next: next, aead: aead}, nil
}

// Get opens the value stored under key
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	raw, ok, err := s.next.Get(ctx, key)
	if err != nil || !ok {
		return raw, ok, err
	}
	plain, err := s.open(key, raw)
	if err != nil {
		return "", true, err
	}
	return plain, true, nil
}

// Set seals value and stores it under key
func (s *Store) Set(ctx context.Context, key, value string) error {
	sealed, err := s.seal(key, value)
	if err != nil {
		return err
	}
	return s.next.Set(ctx, key, sealed)
}

// Delete forwards to the wrapped store
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	return s.next.Delete(ctx, keys...)
}

func (s *Store) seal(key, value string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(value)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	out := s.aead.Seal(nonce, nonce, []byte(value), []byte(key))
	return prefix + base64.RawURLEncoding.EncodeToString(out), nil
}

func (s *Store) open(key, raw string) (string, error) {
	if len(raw) < len(prefix) || raw[:len(prefix)] != prefix {
		return raw, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(raw[len(prefix):])
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrStorageParse, key, err)
	}
	ns := s.aead.NonceSize()
	if len(data) < ns+s.aead.Overhead() {
		return "", fmt.Errorf("%w: %s: sealed value too short", domain.ErrStorageParse, key)
	}
	plain, err := s.aead.Open(nil, data[:ns], data[ns:], []byte(key))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrStorageParse, key, err)
	}
	return string(plain), nil
}
