package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"marquee/internal/adapters/db/memory"
	domain "marquee/internal/domain/session"
)

// fakeClock advances by d on every After call, so debounce waits complete immediately
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	c.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type mockAuthAPI struct {
	mu sync.Mutex

	registerErr error
	loginResult *domain.LoginResult
	loginErr    error
	refreshRes  *domain.RefreshResult
	refreshErr  error
	// refreshHook runs inside Refresh before it returns, to interleave other operations
	refreshHook func()

	registered   []domain.RegisterRequest
	logins       []domain.Credentials
	refreshCalls []string
}

func (m *mockAuthAPI) Register(_ context.Context, req domain.RegisterRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registered = append(m.registered, req)
	return m.registerErr
}

func (m *mockAuthAPI) Login(_ context.Context, creds domain.Credentials) (*domain.LoginResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins = append(m.logins, creds)
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	res := *m.loginResult
	return &res, nil
}

func (m *mockAuthAPI) Refresh(_ context.Context, refreshToken string) (*domain.RefreshResult, error) {
	m.mu.Lock()
	m.refreshCalls = append(m.refreshCalls, refreshToken)
	hook := m.refreshHook
	res, err := m.refreshRes, m.refreshErr
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, errors.New("mock: no refresh result configured")
	}
	out := *res
	return &out, nil
}

func (m *mockAuthAPI) refreshCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.refreshCalls)
}

// mockPrompter answers with a fixed value; when block is set it waits for a value on it
type mockPrompter struct {
	mu      sync.Mutex
	answer  bool
	err     error
	block   chan bool
	shown   chan domain.Prompt
	prompts []domain.Prompt
}

func (m *mockPrompter) Confirm(ctx context.Context, p domain.Prompt) (bool, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, p)
	answer, err, block, shown := m.answer, m.err, m.block, m.shown
	m.mu.Unlock()
	if shown != nil {
		shown <- p
	}
	if err != nil {
		return false, err
	}
	if block != nil {
		select {
		case v := <-block:
			return v, nil
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return answer, nil
}

func (m *mockPrompter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

type notification struct {
	level   domain.Level
	message string
}

type mockNotifier struct {
	mu    sync.Mutex
	items []notification
}

func (m *mockNotifier) Notify(level domain.Level, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, notification{level, message})
}

func (m *mockNotifier) last() notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.items) == 0 {
		return notification{}
	}
	return m.items[len(m.items)-1]
}

func (m *mockNotifier) has(message string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.items {
		if n.message == message {
			return true
		}
	}
	return false
}

type mockNavigator struct {
	mu    sync.Mutex
	views []domain.View
}

func (m *mockNavigator) Navigate(view domain.View) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.views = append(m.views, view)
}

func (m *mockNavigator) last() domain.View {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.views) == 0 {
		return ""
	}
	return m.views[len(m.views)-1]
}

// fixture is a fully wired service over an in-memory store
type fixture struct {
	kv       *memory.Store
	store    *CredentialStore
	api      *mockAuthAPI
	prompter *mockPrompter
	notifier *mockNotifier
	nav      *mockNavigator
	clock    *fakeClock
	service  *Service
}

func newFixture() *fixture {
	f := &fixture{
		kv:       memory.NewStore(),
		api:      &mockAuthAPI{},
		prompter: &mockPrompter{},
		notifier: &mockNotifier{},
		nav:      &mockNavigator{},
		clock:    newFakeClock(),
	}
	f.store = NewCredentialStore(f.kv)
	f.service = NewService(f.api, f.store, NewState(), f.prompter, f.nav, f.notifier, f.clock, DefaultConfig())
	return f
}

var testUser = domain.User{ID: "7", Email: "ada@example.com", Username: "ada", FirstName: "Ada", LastName: "Lovelace"}

// seed persists a session whose deadline is remaining from now and restores it into memory
func (f *fixture) seed(remaining time.Duration, refreshToken string) {
	u := testUser.WithDeadline(f.clock.Now().Add(remaining))
	if err := f.store.Save(context.Background(), u, "access-1", refreshToken); err != nil {
		panic(err)
	}
	f.service.Restore(context.Background())
}
