package authapi

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	domain "marquee/internal/domain/session"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// loginShape tells which of the two accepted login bodies the server sent
type loginShape int

const (
	shapeUnknown loginShape = iota
	// {"access": "...", "refresh": "...", "user": {...}}
	shapeTokenPair
	// {"token": "...", "user": {...}}
	shapeSingleToken
)

type loginEnvelope struct {
	Access  string    `json:"access"`
	Refresh string    `json:"refresh"`
	Token   string    `json:"token"`
	User    *wireUser `json:"user"`
}

func (e loginEnvelope) shape() loginShape {
	switch {
	case e.Access != "":
		return shapeTokenPair
	case e.Token != "":
		return shapeSingleToken
	}
	return shapeUnknown
}

type wireUser struct {
	ID             json.RawMessage `json:"id"`
	Email          string          `json:"email"`
	Username       string          `json:"username"`
	FirstName      string          `json:"firstName"`
	LastName       string          `json:"lastName"`
	FirstNameSnake string          `json:"first_name"`
	LastNameSnake  string          `json:"last_name"`
}

func (w wireUser) normalize() domain.User {
	u := domain.User{
		ID:        rawID(w.ID),
		Email:     w.Email,
		Username:  w.Username,
		FirstName: w.FirstName,
		LastName:  w.LastName,
	}
	if u.FirstName == "" {
		u.FirstName = w.FirstNameSnake
	}
	if u.LastName == "" {
		u.LastName = w.LastNameSnake
	}
	if u.Username == "" {
		u.Username = u.FirstName
	}
	return u
}

// decodeLoginResponse is the only place that knows about the two login shapes
func decodeLoginResponse(body []byte) (*domain.LoginResult, error) {
	var env loginEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("login: %w: %v", domain.ErrMalformedResponse, err)
	}
	res := &domain.LoginResult{}
	switch env.shape() {
	case shapeTokenPair:
		res.AccessToken = env.Access
		res.RefreshToken = env.Refresh
	case shapeSingleToken:
		res.AccessToken = env.Token
	default:
		return nil, fmt.Errorf("login: %w", domain.ErrMissingToken)
	}
	if env.User == nil {
		return nil, fmt.Errorf("login: %w: no user object", domain.ErrMalformedResponse)
	}
	res.User = env.User.normalize()
	logTokenExpiry("login", res.AccessToken)
	return res, nil
}

// rawID accepts numeric and string ids
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// logTokenExpiry records when the access token itself expires. The session deadline does not depend on it.
func logTokenExpiry(op, token string) {
	if exp := tokenExpiry(token); !exp.IsZero() {
		log.Debug().Str("op", op).Time("token_exp", exp).Msg("access token expiry")
	}
}

// tokenExpiry reads the exp claim of a JWT access token without verifying it.
// Opaque tokens yield the zero time.
func tokenExpiry(token string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
