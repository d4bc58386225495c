// Package authapi talks to the remote authentication API.
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	domain "marquee/internal/domain/session"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	registerPath = "/api/users/register/"
	loginPath    = "/api/auth/login"
	refreshPath  = "/api/users/refresh/"

	maxBodySize = 1 << 20
)

// Client implements domain.AuthAPI over HTTP+JSON
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for baseURL. A zero timeout means no client-side timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Register posts the registration payload
func (c *Client) Register(ctx context.Context, req domain.RegisterRequest) error {
	status, body, err := c.post(ctx, "register", registerPath, req)
	if err != nil {
		return err
	}
	if isSuccess(status) {
		return nil
	}
	if status == http.StatusBadRequest || status == http.StatusConflict {
		if conflict := parseConflict(body); conflict != nil {
			return conflict
		}
	}
	return &domain.StatusError{Op: "register", Status: status}
}

// Login posts credentials and normalizes either response shape
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (*domain.LoginResult, error) {
	status, body, err := c.post(ctx, "login", loginPath, creds)
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, &domain.StatusError{Op: "login", Status: status}
	}
	return decodeLoginResponse(body)
}

// Refresh exchanges a refresh token for a new access token
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*domain.RefreshResult, error) {
	status, body, err := c.post(ctx, "refresh", refreshPath, map[string]string{"refresh": refreshToken})
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, &domain.StatusError{Op: "refresh", Status: status}
	}
	var payload struct {
		Access string `json:"access"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("refresh: %w: %v", domain.ErrMalformedResponse, err)
	}
	if payload.Access == "" {
		return nil, fmt.Errorf("refresh: %w", domain.ErrMissingToken)
	}
	logTokenExpiry("refresh", payload.Access)
	return &domain.RefreshResult{AccessToken: payload.Access}, nil
}

func (c *Client) post(ctx context.Context, op, path string, payload any) (int, []byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: encode request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return 0, nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("op", op).Str("request_id", requestID).Msg("auth api unreachable")
		return 0, nil, fmt.Errorf("%s: %w: %v", op, domain.ErrNetwork, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return 0, nil, fmt.Errorf("%s: %w: read body: %v", op, domain.ErrNetwork, err)
	}
	log.Debug().
		Str("op", op).
		Str("path", path).
		Int("status", resp.StatusCode).
		Str("request_id", requestID).
		Dur("took", time.Since(start)).
		Msg("auth api call")
	return resp.StatusCode, body, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// parseConflict extracts field-level conflicts from an error body such as
// {"email": ["user with this email already exists."]} or {"username": "taken"}
func parseConflict(body []byte) *domain.ConflictError {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil
	}
	out := map[string]string{}
	for _, name := range []string{"username", "email"} {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		out[name] = firstMessage(raw)
	}
	if len(out) == 0 {
		return nil
	}
	return &domain.ConflictError{Fields: out}
}

func firstMessage(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	return "already in use"
}
