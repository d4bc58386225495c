package session

import (
	"sync"

	domain "marquee/internal/domain/session"
)

// Action is a Session State transition
type Action interface{ isAction() }

// SetSession replaces user and token together
type SetSession struct {
	User        domain.User
	AccessToken string
}

// ClearSession resets to the unauthenticated value
type ClearSession struct{}

func (SetSession) isAction()   {}
func (ClearSession) isAction() {}

// State holds the current session and notifies subscribers after every transition
type State struct {
	mu      sync.RWMutex
	current domain.Session
	seq     uint64
	nextID  int
	subs    map[int]func(domain.Session)

	// pmu guards delivery; only one goroutine delivers at a time and it always ends on the latest commit
	pmu        sync.Mutex
	queued     commit
	published  uint64
	publishing bool
}

// commit is an applied transition waiting to be published
type commit struct {
	seq     uint64
	session domain.Session
}

// NewState returns an unauthenticated state
func NewState() *State {
	return &State{subs: make(map[int]func(domain.Session))}
}

// Dispatch applies an action and publishes the result. A SetSession without a token clears instead,
// so user and token never diverge.
func (s *State) Dispatch(a Action) {
	s.publish(s.apply(a))
}

// apply changes the current session without notifying anyone
func (s *State) apply(a Action) commit {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch act := a.(type) {
	case SetSession:
		if act.AccessToken == "" {
			s.current = domain.Session{}
			break
		}
		u := act.User
		s.current = domain.Session{User: &u, AccessToken: act.AccessToken}
	case ClearSession:
		s.current = domain.Session{}
	}
	s.seq++
	return commit{seq: s.seq, session: s.current.Clone()}
}

// publish hands c to subscribers. If another goroutine is already delivering, c is queued for it and
// publish returns at once; commits overtaken by a newer one are skipped.
func (s *State) publish(c commit) {
	s.pmu.Lock()
	if c.seq <= s.queued.seq {
		s.pmu.Unlock()
		return
	}
	s.queued = c
	if s.publishing {
		s.pmu.Unlock()
		return
	}
	s.publishing = true
	for s.queued.seq > s.published {
		next := s.queued
		s.published = next.seq
		s.pmu.Unlock()
		for _, fn := range s.subscribers() {
			fn(next.session.Clone())
		}
		s.pmu.Lock()
	}
	s.publishing = false
	s.pmu.Unlock()
}

func (s *State) subscribers() []func(domain.Session) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subs := make([]func(domain.Session), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	return subs
}

// Current returns a copy of the session
func (s *State) Current() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Subscribe registers fn for every future transition and returns its cancel func
func (s *State) Subscribe(fn func(domain.Session)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}
