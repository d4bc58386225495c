package authapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	domain "marquee/internal/domain/session"

	"github.com/golang-jwt/jwt/v5"
)

func mintToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func newTestServer(t *testing.T, path string, status int, body string) (*httptest.Server, *http.Header) {
	t.Helper()
	captured := http.Header{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			t.Errorf("Expected path %s, got %s", path, r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		captured = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func TestLogin_TokenPairShape(t *testing.T) {
	exp := time.Now().Add(20 * time.Minute).Truncate(time.Second)
	access := mintToken(t, exp)
	body := `{"access":"` + access + `","refresh":"r1","user":{"id":7,"email":"ada@example.com","first_name":"Ada","last_name":"Lovelace"}}`
	srv, req := newTestServer(t, loginPath, http.StatusOK, body)

	res, err := NewClient(srv.URL, 0).Login(context.Background(), domain.Credentials{Email: "ada@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if res.AccessToken != access || res.RefreshToken != "r1" {
		t.Errorf("Unexpected tokens %q/%q", res.AccessToken, res.RefreshToken)
	}
	if res.User.ID != "7" || res.User.FirstName != "Ada" || res.User.LastName != "Lovelace" {
		t.Errorf("Unexpected user %+v", res.User)
	}
	if res.User.Username != "Ada" {
		t.Errorf("Expected username to fall back to first name, got %q", res.User.Username)
	}
	if req.Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header")
	}
}

func TestLogin_SingleTokenShape(t *testing.T) {
	body := `{"token":"opaque-token","user":{"id":"u-1","email":"ada@example.com","username":"ada","firstName":"Ada","lastName":"L"}}`
	srv, _ := newTestServer(t, loginPath, http.StatusOK, body)

	res, err := NewClient(srv.URL+"/", 0).Login(context.Background(), domain.Credentials{Email: "ada@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if res.AccessToken != "opaque-token" || res.RefreshToken != "" {
		t.Errorf("Unexpected tokens %q/%q", res.AccessToken, res.RefreshToken)
	}
	if res.User.ID != "u-1" || res.User.Username != "ada" {
		t.Errorf("Unexpected user %+v", res.User)
	}
}

func TestLogin_Failures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"detail":"bad credentials"}`, domain.ErrNetwork},
		{"no token", http.StatusOK, `{"user":{"id":1}}`, domain.ErrMissingToken},
		{"no user", http.StatusOK, `{"token":"t"}`, domain.ErrMalformedResponse},
		{"not json", http.StatusOK, `<html>`, domain.ErrMalformedResponse},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newTestServer(t, loginPath, tc.status, tc.body)
			_, err := NewClient(srv.URL, 0).Login(context.Background(), domain.Credentials{Email: "a", Password: "b"})
			if !errors.Is(err, tc.want) {
				t.Errorf("Expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestLogin_StatusErrorCarriesStatus(t *testing.T) {
	srv, _ := newTestServer(t, loginPath, http.StatusUnauthorized, `{}`)
	_, err := NewClient(srv.URL, 0).Login(context.Background(), domain.Credentials{Email: "a", Password: "b"})
	var status *domain.StatusError
	if !errors.As(err, &status) || status.Status != http.StatusUnauthorized {
		t.Errorf("Expected StatusError 401, got %v", err)
	}
}

func TestRegister(t *testing.T) {
	var got domain.RegisterRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != registerPath {
			t.Errorf("Expected path %s, got %s", registerPath, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	req := domain.RegisterRequest{FirstName: "Ada", LastName: "Lovelace", Age: 36, Email: "ada@example.com", Password: "analytical"}
	if err := NewClient(srv.URL, time.Second).Register(context.Background(), req); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if got != req {
		t.Errorf("Expected payload %+v, got %+v", req, got)
	}
}

func TestRegister_Conflict(t *testing.T) {
	srv, _ := newTestServer(t, registerPath, http.StatusBadRequest,
		`{"email":["user with this email already exists."],"username":"taken"}`)

	err := NewClient(srv.URL, 0).Register(context.Background(), domain.RegisterRequest{})
	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("Expected ConflictError, got %v", err)
	}
	if conflict.Fields["email"] != "user with this email already exists." {
		t.Errorf("Unexpected email conflict %q", conflict.Fields["email"])
	}
	if conflict.Fields["username"] != "taken" {
		t.Errorf("Unexpected username conflict %q", conflict.Fields["username"])
	}
}

func TestRegister_ServerError(t *testing.T) {
	srv, _ := newTestServer(t, registerPath, http.StatusInternalServerError, `oops`)
	err := NewClient(srv.URL, 0).Register(context.Background(), domain.RegisterRequest{})
	if !errors.Is(err, domain.ErrNetwork) {
		t.Errorf("Expected ErrNetwork, got %v", err)
	}
	if errors.Is(err, domain.ErrConflict) {
		t.Error("Expected a server error not to be a conflict")
	}
}

func TestRefresh(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	access := mintToken(t, exp)
	var sent map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != refreshPath {
			t.Errorf("Expected path %s, got %s", refreshPath, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&sent)
		_, _ = w.Write([]byte(`{"access":"` + access + `"}`))
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL, 0).Refresh(context.Background(), "r1")
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if sent["refresh"] != "r1" {
		t.Errorf("Expected refresh token in body, got %v", sent)
	}
	if res.AccessToken != access {
		t.Errorf("Unexpected result %+v", res)
	}
}

func TestRefresh_Failures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"expired refresh token", http.StatusUnauthorized, `{"detail":"Token is invalid or expired"}`, domain.ErrNetwork},
		{"missing access", http.StatusOK, `{}`, domain.ErrMissingToken},
		{"malformed", http.StatusOK, `nope`, domain.ErrMalformedResponse},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newTestServer(t, refreshPath, tc.status, tc.body)
			_, err := NewClient(srv.URL, 0).Refresh(context.Background(), "r1")
			if !errors.Is(err, tc.want) {
				t.Errorf("Expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second).Refresh(context.Background(), "r1")
	if !errors.Is(err, domain.ErrNetwork) {
		t.Errorf("Expected ErrNetwork, got %v", err)
	}
}

func TestTokenExpiry(t *testing.T) {
	if !tokenExpiry("not-a-jwt").IsZero() {
		t.Error("Expected zero expiry for an opaque token")
	}
	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "7"}).SignedString([]byte("k"))
	if !tokenExpiry(noExp).IsZero() {
		t.Error("Expected zero expiry for a JWT without exp")
	}
	// expired tokens still report their exp
	past := time.Now().Add(-time.Hour).Truncate(time.Second)
	if got := tokenExpiry(mintToken(t, past)); !got.Equal(past) {
		t.Errorf("Expected %v, got %v", past, got)
	}
}
