package session

import (
	"context"
	"encoding/json"
	"fmt"

	domain "marquee/internal/domain/session"

	"github.com/rs/zerolog/log"
)

// Fixed entry names of the credential record
const (
	KeyUser         = "user"
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
)

// CredentialStore persists the credential record as three independent entries.
// It never fails a read: anything unreadable is reported as "no session".
type CredentialStore struct {
	kv domain.KeyValueStore
}

// NewCredentialStore wraps a key-value backend
func NewCredentialStore(kv domain.KeyValueStore) *CredentialStore {
	return &CredentialStore{kv: kv}
}

// Save writes user, access token and (when given) refresh token.
// An empty refresh token removes any previously stored one.
func (s *CredentialStore) Save(ctx context.Context, user domain.User, accessToken, refreshToken string) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.kv.Set(ctx, KeyUser, string(raw)); err != nil {
		return fmt.Errorf("store user: %w", err)
	}
	if err := s.kv.Set(ctx, KeyAccessToken, accessToken); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	if refreshToken == "" {
		if err := s.kv.Delete(ctx, KeyRefreshToken); err != nil {
			return fmt.Errorf("drop refresh token: %w", err)
		}
		return nil
	}
	if err := s.kv.Set(ctx, KeyRefreshToken, refreshToken); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// Load reads the record back. ok is false when no complete record exists.
func (s *CredentialStore) Load(ctx context.Context) (domain.Record, bool) {
	rec, err := s.load(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("ignoring stored credentials")
		return domain.Record{}, false
	}
	return rec, rec.Complete()
}

// LoadUser returns only the persisted user, which is what the expiration check needs
func (s *CredentialStore) LoadUser(ctx context.Context) (*domain.User, bool) {
	raw, ok, err := s.kv.Get(ctx, KeyUser)
	if err != nil {
		log.Warn().Err(err).Msg("read stored user")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	user, err := decodeUser(raw)
	if err != nil {
		log.Warn().Err(err).Msg("ignoring stored user")
		return nil, false
	}
	return user, true
}

// RefreshToken returns the stored refresh token, if any
func (s *CredentialStore) RefreshToken(ctx context.Context) (string, bool) {
	tok, ok, err := s.kv.Get(ctx, KeyRefreshToken)
	if err != nil {
		log.Warn().Err(err).Msg("read stored refresh token")
		return "", false
	}
	return tok, ok && tok != ""
}

// Clear removes every entry of the record
func (s *CredentialStore) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, KeyUser, KeyAccessToken, KeyRefreshToken); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

func (s *CredentialStore) load(ctx context.Context) (domain.Record, error) {
	var rec domain.Record
	rawUser, ok, err := s.kv.Get(ctx, KeyUser)
	if err != nil {
		return rec, err
	}
	if ok {
		if rec.User, err = decodeUser(rawUser); err != nil {
			return domain.Record{}, err
		}
	}
	if rec.AccessToken, _, err = s.kv.Get(ctx, KeyAccessToken); err != nil {
		return domain.Record{}, err
	}
	if rec.RefreshToken, _, err = s.kv.Get(ctx, KeyRefreshToken); err != nil {
		return domain.Record{}, err
	}
	return rec, nil
}

func decodeUser(raw string) (*domain.User, error) {
	var u domain.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageParse, err)
	}
	return &u, nil
}
