package session

import "time"

// User is the profile of the authenticated actor as persisted in the credential store
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	// ExpirationDate is the absolute session deadline in epoch milliseconds (0 = unknown)
	ExpirationDate int64 `json:"expirationDate"`
}

// Deadline returns ExpirationDate as a time.Time. ok is false when no deadline is recorded.
func (u *User) Deadline() (t time.Time, ok bool) {
	if u == nil || u.ExpirationDate <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(u.ExpirationDate), true
}

// WithDeadline returns a copy of the user carrying the given deadline
func (u User) WithDeadline(t time.Time) User {
	u.ExpirationDate = t.UnixMilli()
	return u
}

// Credentials is the login payload
type Credentials struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest is the registration payload sent to the remote API
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Age       int    `json:"age"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// LoginResult is the normalized outcome of a login call, whatever shape the remote API answered with
type LoginResult struct {
	AccessToken  string
	RefreshToken string // optional
	User         User
}

// RefreshResult is the outcome of a refresh call
type RefreshResult struct {
	AccessToken string
}
