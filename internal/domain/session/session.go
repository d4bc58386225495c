package session

// Session is the in-memory representation of the current actor.
// User and AccessToken are either both set or both empty.
type Session struct {
	User        *User  `json:"user"`
	AccessToken string `json:"access_token,omitempty"`
}

// Authenticated reports whether the session carries a user and a token
func (s Session) Authenticated() bool {
	return s.User != nil && s.AccessToken != ""
}

// Clone returns a deep copy so callers never share the user pointer with the store
func (s Session) Clone() Session {
	if s.User == nil {
		return Session{}
	}
	u := *s.User
	return Session{User: &u, AccessToken: s.AccessToken}
}

// Record is the durable mirror of a Session plus the optional refresh token
type Record struct {
	User         *User
	AccessToken  string
	RefreshToken string
}

// Complete reports whether the record can restore a session
func (r Record) Complete() bool {
	return r.User != nil && r.AccessToken != ""
}
