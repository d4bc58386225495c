package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domain "marquee/internal/domain/session"

	"github.com/rs/zerolog/log"
)

// Config holds the session lifetimes and the monitor timing.
// Login and refresh lifetimes differ on purpose; both are configurable.
type Config struct {
	LoginLifetime   time.Duration
	RefreshLifetime time.Duration
	Monitor         MonitorConfig
}

// DefaultConfig mirrors the remote API's issuance policy: 45 minutes after login, 30 after a refresh
func DefaultConfig() Config {
	return Config{
		LoginLifetime:   2700 * time.Second,
		RefreshLifetime: 1800 * time.Second,
		Monitor:         DefaultMonitorConfig(),
	}
}

// Service is the public surface of the session core. It alone mutates State and CredentialStore.
type Service struct {
	api      domain.AuthAPI
	store    *CredentialStore
	state    *State
	navigate domain.Navigator
	notifier domain.Notifier
	clock    domain.Clock
	cfg      Config
	monitor  *Monitor

	// mu serializes commits to state+store; generation invalidates in-flight refreshes
	mu         sync.Mutex
	generation uint64
}

// NewService wires the facade and its expiration monitor
func NewService(
	api domain.AuthAPI,
	store *CredentialStore,
	state *State,
	prompter domain.Prompter,
	navigate domain.Navigator,
	notifier domain.Notifier,
	clock domain.Clock,
	cfg Config,
) *Service {
	s := &Service{
		api:      api,
		store:    store,
		state:    state,
		navigate: navigate,
		notifier: notifier,
		clock:    clock,
		cfg:      cfg,
	}
	s.monitor = NewMonitor(store, prompter, s, clock, cfg.Monitor)
	return s
}

// Monitor exposes the expiration monitor so the host can Run it and forward visibility events
func (s *Service) Monitor() *Monitor { return s.monitor }

// State returns the current session
func (s *Service) State() domain.Session { return s.state.Current() }

// User returns the current user or nil
func (s *Service) User() *domain.User { return s.state.Current().User }

// Subscribe forwards to the session state
func (s *Service) Subscribe(fn func(domain.Session)) func() { return s.state.Subscribe(fn) }

// Restore loads a persisted session at start-up. It reports whether one was found.
func (s *Service) Restore(ctx context.Context) bool {
	rec, ok := s.store.Load(ctx)
	if !ok {
		log.Info().Msg("no stored session to restore")
		return false
	}
	s.mu.Lock()
	c := s.state.apply(SetSession{User: *rec.User, AccessToken: rec.AccessToken})
	s.mu.Unlock()
	s.state.publish(c)
	log.Info().Str("user_id", rec.User.ID).Bool("refreshable", rec.RefreshToken != "").Msg("session restored")
	return true
}

// Register creates an account. It never authenticates; on success the UI is sent to the login view.
func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) error {
	req = normalizeRegister(req)
	if err := validateRegister(req); err != nil {
		s.notifier.Notify(domain.LevelError, err.Error())
		return err
	}
	if err := s.api.Register(ctx, req); err != nil {
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) {
			log.Info().Interface("fields", conflict.Fields).Msg("registration conflict")
			for _, msg := range conflictMessages(conflict) {
				s.notifier.Notify(domain.LevelError, msg)
			}
			return err
		}
		log.Error().Err(err).Msg("registration failed")
		s.notifier.Notify(domain.LevelError, "Registration failed. Please try again later.")
		return err
	}
	log.Info().Str("email", req.Email).Msg("account registered")
	s.notifier.Notify(domain.LevelSuccess, "Account created. You can now log in.")
	s.navigate.Navigate(domain.ViewLogin)
	return nil
}

// Login authenticates and establishes the session
func (s *Service) Login(ctx context.Context, creds domain.Credentials) error {
	creds = normalizeCredentials(creds)
	if err := validateCredentials(creds); err != nil {
		s.notifier.Notify(domain.LevelError, err.Error())
		return err
	}
	res, err := s.api.Login(ctx, creds)
	if err != nil {
		log.Warn().Err(err).Msg("login failed")
		s.notifier.Notify(domain.LevelError, "Authentication failed. Check your email and password.")
		return fmt.Errorf("%w: %w", domain.ErrAuthentication, err)
	}

	user := res.User.WithDeadline(s.clock.Now().Add(s.cfg.LoginLifetime))

	s.mu.Lock()
	s.generation++
	c := s.state.apply(SetSession{User: user, AccessToken: res.AccessToken})
	if err := s.store.Save(ctx, user, res.AccessToken, res.RefreshToken); err != nil {
		log.Error().Err(err).Msg("persist session")
	}
	s.mu.Unlock()
	s.state.publish(c)

	log.Info().Str("user_id", user.ID).Bool("refreshable", res.RefreshToken != "").Msg("logged in")
	s.notifier.Notify(domain.LevelSuccess, "Welcome back, "+displayName(user)+"!")
	s.navigate.Navigate(domain.ViewHome)
	return nil
}

// Logout ends the session. Safe to call when already logged out.
func (s *Service) Logout(ctx context.Context) {
	s.logout(ctx, domain.LevelInfo, "You have been logged out.")
}

// Expire ends a session whose deadline already passed
func (s *Service) Expire(ctx context.Context) {
	s.logout(ctx, domain.LevelError, "Your session has expired. Please log in again.")
}

// CheckExpiration runs one expiration check cycle
func (s *Service) CheckExpiration(ctx context.Context) Outcome {
	return s.monitor.Check(ctx)
}

func (s *Service) logout(ctx context.Context, level domain.Level, message string) {
	s.mu.Lock()
	c := s.clearLocked(ctx)
	s.mu.Unlock()
	s.finishLogout(c, level, message)
}

// logoutIfGeneration ends the session only when no login or logout happened since gen was read.
// It reports whether it logged out.
func (s *Service) logoutIfGeneration(ctx context.Context, gen uint64, level domain.Level, message string) bool {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return false
	}
	c := s.clearLocked(ctx)
	s.mu.Unlock()
	s.finishLogout(c, level, message)
	return true
}

// clearLocked must be called with s.mu held
func (s *Service) clearLocked(ctx context.Context) commit {
	s.generation++
	if err := s.store.Clear(ctx); err != nil {
		log.Error().Err(err).Msg("clear stored credentials")
	}
	return s.state.apply(ClearSession{})
}

func (s *Service) finishLogout(c commit, level domain.Level, message string) {
	s.state.publish(c)
	log.Info().Msg("logged out")
	s.notifier.Notify(level, message)
	s.navigate.Navigate(domain.ViewLogin)
}

func (s *Service) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func displayName(u domain.User) string {
	switch {
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return u.Username
	}
	return u.Email
}
