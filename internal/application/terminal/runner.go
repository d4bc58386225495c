// Package terminal keeps a terminal attached to the session daemon's UI bridge.
package terminal

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	domain "marquee/internal/domain/session"
	"marquee/internal/ports"

	"github.com/rs/zerolog/log"
)

type Runner struct {
	wsClient    ports.WebSocketClientPort
	console     ports.ConsolePort
	confirm     ports.ConfirmPort
	wsURL       string
	backoffBase time.Duration
	backoffMax  time.Duration

	mu      sync.Mutex
	prompts map[string]context.CancelFunc // open prompts by id
}

func NewRunner(wsClient ports.WebSocketClientPort, console ports.ConsolePort, confirm ports.ConfirmPort, wsURL string) *Runner {
	return &Runner{
		wsClient:    wsClient,
		console:     console,
		confirm:     confirm,
		wsURL:       wsURL,
		backoffBase: time.Second,
		backoffMax:  30 * time.Second,
		prompts:     make(map[string]context.CancelFunc),
	}
}

// Start connects with exponential backoff and serves events until stop is closed
func (r *Runner) Start(stop <-chan struct{}) {
	backoff := r.backoffBase
	for {
		select {
		case <-stop:
			log.Info().Msg("terminal runner stopping")
			return
		default:
		}
		if err := r.wsClient.Connect(r.wsURL); err != nil {
			log.Error().Err(err).Dur("retry", backoff).Msg("websocket connect failed")
			select {
			case <-stop:
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > r.backoffMax {
				backoff = r.backoffMax
			}
			continue
		}
		backoff = r.backoffBase
		log.Info().Str("url", r.wsURL).Msg("websocket connected")

		// a terminal that (re)appears counts as the UI becoming visible
		if err := r.send(domain.Event{Type: domain.EventVisibility, Visible: true}); err != nil {
			log.Warn().Err(err).Msg("failed to report visibility")
		}
		r.serve(stop)
		_ = r.wsClient.Close()
	}
}

// serve reads events until the connection drops or stop is closed
func (r *Runner) serve(stop <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-stop:
			cancel()
			_ = r.wsClient.Close()
		case <-done:
		}
	}()

	for {
		msgBytes, err := r.wsClient.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Error().Err(err).Msg("websocket read error; reconnecting")
			}
			return
		}
		var ev domain.Event
		if err := json.Unmarshal(msgBytes, &ev); err != nil {
			log.Error().Err(err).Msg("invalid websocket message")
			continue
		}
		r.handle(ctx, ev)
	}
}

func (r *Runner) handle(ctx context.Context, ev domain.Event) {
	switch ev.Type {
	case domain.EventSession:
		if ev.Session != nil && ev.Session.Authenticated() {
			r.console.Printf("Signed in as %s", ev.Session.User.Email)
		} else {
			r.console.Printf("Signed out")
		}
	case domain.EventNotify:
		r.console.Printf("[%s] %s", ev.Level, ev.Message)
	case domain.EventNavigate:
		r.console.Printf("-> %s", ev.View)
	case domain.EventPrompt:
		pctx, pcancel := context.WithCancel(ctx)
		r.mu.Lock()
		r.prompts[ev.ID] = pcancel
		r.mu.Unlock()
		go r.answer(pctx, ev)
	case domain.EventPromptReply:
		if r.withdraw(ev.ID) {
			r.console.Printf("Answered on another screen.")
		}
	default:
		log.Debug().Str("type", string(ev.Type)).Msg("ignoring event")
	}
}

func (r *Runner) answer(ctx context.Context, ev domain.Event) {
	confirmed, err := r.confirm.Confirm(ctx, ev.Message, ev.ConfirmLabel, ev.DeclineLabel)
	if !r.withdraw(ev.ID) || err != nil {
		// withdrawn, or the terminal could not answer
		return
	}
	if err := r.send(domain.Event{Type: domain.EventPromptReply, ID: ev.ID, Confirm: confirmed}); err != nil {
		log.Error().Err(err).Str("prompt_id", ev.ID).Msg("failed to send prompt answer")
	}
}

// withdraw cancels and forgets an open prompt; it reports whether the prompt was still open
func (r *Runner) withdraw(id string) bool {
	r.mu.Lock()
	cancel, ok := r.prompts[id]
	delete(r.prompts, id)
	r.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

func (r *Runner) send(ev domain.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.wsClient.WriteMessage(data)
}
