package session

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Client-side failures
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("account already exists")
)

// Remote API failures
var (
	ErrAuthentication    = errors.New("authentication failed")
	ErrNetwork           = errors.New("remote request failed")
	ErrMalformedResponse = errors.New("malformed response")
	ErrMissingToken      = errors.New("response carries no access token")
)

// Session lifecycle failures
var (
	ErrNoRefreshToken    = errors.New("no refresh token stored")
	ErrStaleRefresh      = errors.New("refresh result discarded: session changed while in flight")
	ErrPromptUnavailable = errors.New("no prompt surface available")
	ErrStorageParse      = errors.New("stored credentials are unreadable")
)

// ValidationError rejects a payload before any network call
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConflictError carries one human-readable message per conflicting field (username, email)
type ConflictError struct {
	Fields map[string]string
}

func (e *ConflictError) Error() string {
	if len(e.Fields) == 0 {
		return ErrConflict.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return strings.Join(parts, "; ")
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// StatusError records the HTTP status of a failed remote call. It unwraps to ErrNetwork.
type StatusError struct {
	Op     string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Status)
}

func (e *StatusError) Unwrap() error { return ErrNetwork }
