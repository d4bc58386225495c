package api

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	domain "marquee/internal/domain/session"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 10 * time.Second

// client is one connected UI screen
type client struct {
	id   string
	conn *websocket.Conn
	wmu  sync.Mutex // gorilla allows one concurrent writer
}

func (c *client) send(ev domain.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// pendingPrompt waits for the first answer from any screen
type pendingPrompt struct {
	answer    chan bool
	abandoned chan struct{}
}

// Bridge fans session events out to connected UI screens and collects their prompt answers.
// It is the Prompter, Navigator and Notifier of the session service.
type Bridge struct {
	mu      sync.RWMutex
	clients map[string]*client
	pending map[string]*pendingPrompt

	onVisible func()
}

// NewBridge creates a bridge with no connected screens
func NewBridge() *Bridge {
	return &Bridge{
		clients: make(map[string]*client),
		pending: make(map[string]*pendingPrompt),
	}
}

// OnVisible sets the callback run when a screen reports it became visible
func (b *Bridge) OnVisible(fn func()) {
	b.mu.Lock()
	b.onVisible = fn
	b.mu.Unlock()
}

// Clients returns the number of connected screens
func (b *Bridge) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Register adds a connection and returns its client id
func (b *Bridge) Register(conn *websocket.Conn) string {
	c := &client{id: uuid.NewString(), conn: conn}
	b.mu.Lock()
	b.clients[c.id] = c
	b.mu.Unlock()
	log.Info().Str("client_id", c.id).Msg("UI screen connected")
	return c.id
}

// Unregister removes a connection. When the last screen leaves, open prompts are abandoned.
func (b *Bridge) Unregister(id string) {
	b.mu.Lock()
	delete(b.clients, id)
	var abandoned []*pendingPrompt
	if len(b.clients) == 0 {
		for pid, p := range b.pending {
			abandoned = append(abandoned, p)
			delete(b.pending, pid)
		}
	}
	b.mu.Unlock()

	for _, p := range abandoned {
		close(p.abandoned)
	}
	log.Info().Str("client_id", id).Int("abandoned_prompts", len(abandoned)).Msg("UI screen disconnected")
}

// SendTo delivers an event to a single screen
func (b *Bridge) SendTo(id string, ev domain.Event) error {
	b.mu.RLock()
	c, ok := b.clients[id]
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("client %s not connected", id)
	}
	return c.send(ev)
}

// broadcast sends ev to every screen and returns how many received it
func (b *Bridge) broadcast(ev domain.Event) int {
	b.mu.RLock()
	clients := make([]*client, 0, len(b.clients))
	for _, c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	delivered := 0
	for _, c := range clients {
		if err := c.send(ev); err != nil {
			log.Warn().Err(err).Str("client_id", c.id).Str("type", string(ev.Type)).Msg("failed to deliver event")
			continue
		}
		delivered++
	}
	return delivered
}

// Notify implements domain.Notifier
func (b *Bridge) Notify(level domain.Level, message string) {
	b.broadcast(domain.Event{Type: domain.EventNotify, Level: level, Message: message})
}

// Navigate implements domain.Navigator
func (b *Bridge) Navigate(view domain.View) {
	b.broadcast(domain.Event{Type: domain.EventNavigate, View: view})
}

// PublishSession pushes the new session to every screen; it is subscribed to the session state
func (b *Bridge) PublishSession(s domain.Session) {
	b.broadcast(domain.Event{Type: domain.EventSession, Session: &s})
}

// Confirm implements domain.Prompter. The prompt goes to every screen and the first answer wins;
// the answer is echoed so the other screens close their dialog.
func (b *Bridge) Confirm(ctx context.Context, p domain.Prompt) (bool, error) {
	id := uuid.NewString()
	pp := &pendingPrompt{answer: make(chan bool, 1), abandoned: make(chan struct{})}

	b.mu.Lock()
	if len(b.clients) == 0 {
		b.mu.Unlock()
		return false, domain.ErrPromptUnavailable
	}
	b.pending[id] = pp
	b.mu.Unlock()

	delivered := b.broadcast(domain.Event{
		Type:             domain.EventPrompt,
		ID:               id,
		Message:          p.Message,
		ConfirmLabel:     p.ConfirmLabel,
		DeclineLabel:     p.DeclineLabel,
		RemainingSeconds: int64(p.Remaining / time.Second),
		Dismissable:      false,
	})
	if delivered == 0 {
		b.dropPrompt(id)
		return false, domain.ErrPromptUnavailable
	}
	log.Info().Str("prompt_id", id).Int("screens", delivered).Msg("expiration prompt shown")

	select {
	case confirm := <-pp.answer:
		b.broadcast(domain.Event{Type: domain.EventPromptReply, ID: id, Confirm: confirm})
		return confirm, nil
	case <-pp.abandoned:
		return false, domain.ErrPromptUnavailable
	case <-ctx.Done():
		b.dropPrompt(id)
		return false, ctx.Err()
	}
}

// Reply records a screen's answer. Answers to unknown or already answered prompts are ignored.
func (b *Bridge) Reply(id string, confirm bool) bool {
	b.mu.Lock()
	pp, ok := b.pending[id]
	delete(b.pending, id)
	b.mu.Unlock()
	if !ok {
		log.Debug().Str("prompt_id", id).Msg("ignoring reply to unknown prompt")
		return false
	}
	pp.answer <- confirm
	log.Info().Str("prompt_id", id).Bool("confirm", confirm).Msg("expiration prompt answered")
	return true
}

// Handle processes one message received from a screen
func (b *Bridge) Handle(ev domain.Event) {
	switch ev.Type {
	case domain.EventPromptReply:
		b.Reply(ev.ID, ev.Confirm)
	case domain.EventVisibility:
		if !ev.Visible {
			return
		}
		b.mu.RLock()
		fn := b.onVisible
		b.mu.RUnlock()
		if fn != nil {
			fn()
		}
	default:
		log.Debug().Str("type", string(ev.Type)).Msg("ignoring UI event")
	}
}

func (b *Bridge) dropPrompt(id string) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}
