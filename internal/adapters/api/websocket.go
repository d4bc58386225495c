package api

import (
	"encoding/json"
	"net/http"

	domain "marquee/internal/domain/session"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// UI screens connect from arbitrary local origins
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWebSocket godoc
//
//	@Summary		UI bridge
//	@Description	WebSocket carrying session, notify, navigate and prompt events
//	@Tags			session
//	@Router			/ws [get]
func (h *Handler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}
	id := h.bridge.Register(conn)
	defer func() {
		h.bridge.Unregister(id)
		_ = conn.Close()
	}()

	// the current session first, so a screen opened mid-session renders the right view
	s := h.service.State()
	if err := h.bridge.SendTo(id, domain.Event{Type: domain.EventSession, Session: &s}); err != nil {
		log.Error().Err(err).Str("client_id", id).Msg("Failed to send initial session")
		return
	}

	for {
		msgType, message, err := conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Str("client_id", id).Msg("WebSocket connection closed")
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		var ev domain.Event
		if err := json.Unmarshal(message, &ev); err != nil {
			log.Warn().Err(err).Str("client_id", id).Msg("Failed to parse UI event")
			continue
		}
		h.bridge.Handle(ev)
	}
}
