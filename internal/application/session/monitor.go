package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	domain "marquee/internal/domain/session"

	"github.com/rs/zerolog/log"
)

// MonitorState is the position of the expiration monitor in its check cycle
type MonitorState int

const (
	Idle MonitorState = iota
	Checking
	PromptShown
	CoolingDown
)

func (s MonitorState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Checking:
		return "checking"
	case PromptShown:
		return "prompt_shown"
	case CoolingDown:
		return "cooling_down"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Outcome is what a single check cycle ended with
type Outcome string

const (
	OutcomeSkipped       Outcome = "skipped"
	OutcomeNoSession     Outcome = "no_session"
	OutcomeFresh         Outcome = "fresh"
	OutcomeExpired       Outcome = "expired"
	OutcomeExtended      Outcome = "extended"
	OutcomeRefreshFailed Outcome = "refresh_failed"
	OutcomeLoggedOut     Outcome = "logged_out"
	OutcomeUnavailable   Outcome = "prompt_unavailable"
	OutcomeCancelled     Outcome = "cancelled"
)

// MonitorConfig holds the timing of the check cycle
type MonitorConfig struct {
	Interval  time.Duration // periodic trigger
	Debounce  time.Duration // wait before the second read
	Threshold time.Duration // prompt when remaining time is at most this
	Cooldown  time.Duration // lock stays held this long after a prompt
}

// DefaultMonitorConfig checks every minute and warns five minutes ahead
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:  time.Minute,
		Debounce:  time.Second,
		Threshold: 5 * time.Minute,
		Cooldown:  5 * time.Minute,
	}
}

// sessionActions are the facade operations the monitor falls back on
type sessionActions interface {
	Refresh(ctx context.Context) error
	Logout(ctx context.Context)
	Expire(ctx context.Context)
}

// Monitor watches the persisted deadline and asks the user to extend or end the session.
// The state field doubles as the prompt lock: only a check that moved it out of Idle may prompt.
type Monitor struct {
	store    *CredentialStore
	prompter domain.Prompter
	actions  sessionActions
	clock    domain.Clock
	cfg      MonitorConfig

	mu            sync.Mutex
	state         MonitorState
	cooldownUntil time.Time

	visible chan struct{}
	wg      sync.WaitGroup
}

// NewMonitor creates an idle monitor
func NewMonitor(store *CredentialStore, prompter domain.Prompter, actions sessionActions, clock domain.Clock, cfg MonitorConfig) *Monitor {
	return &Monitor{
		store:    store,
		prompter: prompter,
		actions:  actions,
		clock:    clock,
		cfg:      cfg,
		visible:  make(chan struct{}, 1),
	}
}

// State reports the current monitor state
func (m *Monitor) State() MonitorState {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rearmLocked()
	return m.state
}

// Run drives checks from the periodic timer and from visibility events until ctx is done
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()
	log.Info().Dur("interval", m.cfg.Interval).Msg("expiration monitor started")
	for {
		select {
		case <-ctx.Done():
			m.wg.Wait()
			log.Info().Msg("expiration monitor stopped")
			return
		case <-ticker.C:
			m.spawn(ctx, "timer")
		case <-m.visible:
			m.spawn(ctx, "visibility")
		}
	}
}

// Visible signals that the UI became visible again. Never blocks.
func (m *Monitor) Visible() {
	select {
	case m.visible <- struct{}{}:
	default:
	}
}

func (m *Monitor) spawn(ctx context.Context, trigger string) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		outcome := m.Check(ctx)
		log.Debug().Str("trigger", trigger).Str("outcome", string(outcome)).Msg("expiration check done")
	}()
}

// Check runs one check cycle
func (m *Monitor) Check(ctx context.Context) Outcome {
	// lock before the debounce wait
	if !m.acquire() {
		log.Debug().Msg("expiration check skipped: prompt lock held")
		return OutcomeSkipped
	}
	if _, ok := m.remaining(ctx); !ok {
		m.release()
		return OutcomeNoSession
	}

	select {
	case <-ctx.Done():
		m.release()
		return OutcomeCancelled
	case <-m.clock.After(m.cfg.Debounce):
	}

	remaining, ok := m.remaining(ctx)
	switch {
	case !ok:
		m.release()
		return OutcomeNoSession
	case remaining <= 0:
		m.release()
		log.Info().Dur("overdue", -remaining).Msg("session expired before it could be extended")
		m.actions.Expire(ctx)
		return OutcomeExpired
	case remaining > m.cfg.Threshold:
		m.release()
		return OutcomeFresh
	}

	m.transition(PromptShown)
	log.Info().Dur("remaining", remaining).Msg("session about to expire, prompting")
	confirmed, err := m.prompter.Confirm(ctx, domain.Prompt{
		Message:      fmt.Sprintf("Your session expires in %s. Do you want to stay signed in?", remaining.Round(time.Second)),
		ConfirmLabel: "Extend session",
		DeclineLabel: "Log out",
		Remaining:    remaining,
	})
	if err != nil {
		log.Warn().Err(err).Msg("expiration prompt not answered")
		m.release()
		return OutcomeUnavailable
	}

	outcome := OutcomeLoggedOut
	if confirmed {
		outcome = OutcomeExtended
		if err := m.actions.Refresh(ctx); err != nil {
			outcome = OutcomeRefreshFailed
		}
	} else {
		m.actions.Logout(ctx)
	}
	m.coolDown()
	return outcome
}

// remaining reads the deadline from the credential store, not from memory.
func (m *Monitor) remaining(ctx context.Context) (time.Duration, bool) {
	user, ok := m.store.LoadUser(ctx)
	if !ok {
		return 0, false
	}
	deadline, ok := user.Deadline()
	if !ok {
		return 0, false
	}
	return deadline.Sub(m.clock.Now()), true
}

func (m *Monitor) acquire() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rearmLocked()
	if m.state != Idle {
		return false
	}
	m.state = Checking
	return true
}

// rearmLocked returns an elapsed cool-down to Idle
func (m *Monitor) rearmLocked() {
	if m.state == CoolingDown && !m.clock.Now().Before(m.cooldownUntil) {
		m.state = Idle
		m.cooldownUntil = time.Time{}
	}
}

func (m *Monitor) transition(to MonitorState) {
	m.mu.Lock()
	from := m.state
	m.state = to
	m.mu.Unlock()
	log.Debug().Str("from", from.String()).Str("to", to.String()).Msg("expiration monitor transition")
}

func (m *Monitor) release() {
	m.transition(Idle)
}

func (m *Monitor) coolDown() {
	m.mu.Lock()
	m.state = CoolingDown
	m.cooldownUntil = m.clock.Now().Add(m.cfg.Cooldown)
	m.mu.Unlock()
	log.Debug().Dur("cooldown", m.cfg.Cooldown).Msg("expiration monitor cooling down")
}
