package session

import (
	"context"
	"time"
)

// KeyValueStore is durable string storage that survives restarts
type KeyValueStore interface {
	// Get returns the value for key; ok is false when the key is absent
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	// Delete removes the keys; absent keys are not an error
	Delete(ctx context.Context, keys ...string) error
}

// AuthAPI is the remote authentication API
type AuthAPI interface {
	Register(ctx context.Context, req RegisterRequest) error
	Login(ctx context.Context, creds Credentials) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error)
}

// Prompt is the expiration dialog shown to the user
type Prompt struct {
	Message      string
	ConfirmLabel string
	DeclineLabel string
	Remaining    time.Duration
}

// Prompter shows a blocking confirmation that cannot be dismissed by clicking outside it
type Prompter interface {
	// Confirm returns true on "extend", false on "log out". ErrPromptUnavailable means nothing was shown.
	Confirm(ctx context.Context, p Prompt) (bool, error)
}

// View is a navigation target of the UI
type View string

const (
	ViewLogin View = "login"
	ViewHome  View = "home"
)

// Navigator redirects the UI
type Navigator interface {
	Navigate(view View)
}

// Level classifies a user-facing notification
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

// Notifier surfaces transient messages to the user
type Notifier interface {
	Notify(level Level, message string)
}

// Clock abstracts time so debounce and cool-down can be driven by tests
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// SystemClock is the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time                         { return time.Now() }
func (SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
