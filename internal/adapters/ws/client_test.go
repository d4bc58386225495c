package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("Expected X-Request-ID on the handshake")
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Failed to upgrade connection: %v", err)
			return
		}
		defer func() { _ = conn.Close() }()

		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if err := conn.WriteMessage(messageType, message); err != nil {
				break
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_WriteAndReadMessage(t *testing.T) {
	srv := echoServer(t)
	client := NewClient()
	if err := client.Connect("ws" + strings.TrimPrefix(srv.URL, "http")); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer func() { _ = client.Close() }()

	for _, msg := range []string{`{"type":"visibility","visible":true}`, "second"} {
		if err := client.WriteMessage([]byte(msg)); err != nil {
			t.Errorf("Failed to write message '%s': %v", msg, err)
		}
		got, err := client.ReadMessage()
		if err != nil {
			t.Fatalf("Failed to read message: %v", err)
		}
		if string(got) != msg {
			t.Errorf("Expected message '%s', got '%s'", msg, string(got))
		}
	}
}

func TestClient_ConcurrentWrites(t *testing.T) {
	srv := echoServer(t)
	client := NewClient()
	if err := client.Connect("ws" + strings.TrimPrefix(srv.URL, "http")); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer func() { _ = client.Close() }()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := client.WriteMessage([]byte("ping")); err != nil {
				t.Errorf("Failed to write: %v", err)
			}
		}()
	}
	wg.Wait()
	for i := 0; i < 10; i++ {
		if _, err := client.ReadMessage(); err != nil {
			t.Fatalf("Failed to read echo %d: %v", i, err)
		}
	}
}

func TestClient_CloseUnblocksRead(t *testing.T) {
	srv := echoServer(t)
	client := NewClient()
	if err := client.Connect("ws" + strings.TrimPrefix(srv.URL, "http")); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := client.ReadMessage()
		done <- err
	}()
	_ = client.Close()
	if err := <-done; err == nil {
		t.Error("Expected read to fail after Close")
	}
	// closing again is harmless
	if err := client.Close(); err != nil {
		t.Errorf("Unexpected error on second Close: %v", err)
	}
}

func TestClient_WithoutConnection(t *testing.T) {
	client := NewClient()
	if err := client.WriteMessage([]byte("test")); err != websocket.ErrBadHandshake {
		t.Errorf("Expected ErrBadHandshake, got %v", err)
	}
	if _, err := client.ReadMessage(); err != websocket.ErrBadHandshake {
		t.Errorf("Expected ErrBadHandshake, got %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("Unexpected error when closing without connection: %v", err)
	}
}

func TestClient_ConnectInvalidURL(t *testing.T) {
	if err := NewClient().Connect("invalid-url"); err == nil {
		t.Error("Expected error when connecting to invalid URL")
	}
}

func TestURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:8090":  "ws://localhost:8090/api/v1/ws",
		"https://daemon.local/":  "wss://daemon.local/api/v1/ws",
		"ws://already.websocket": "ws://already.websocket/api/v1/ws",
	}
	for in, want := range cases {
		if got := URL(in); got != want {
			t.Errorf("URL(%q): expected %q, got %q", in, want, got)
		}
	}
}
