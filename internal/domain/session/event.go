package session

// EventType discriminates UI bridge messages
type EventType string

const (
	// daemon -> UI
	EventSession  EventType = "session"
	EventNotify   EventType = "notify"
	EventNavigate EventType = "navigate"
	EventPrompt   EventType = "prompt"
	// UI -> daemon; echoed back to every screen once a prompt is answered
	EventPromptReply EventType = "prompt_reply"
	EventVisibility  EventType = "visibility"
)

// Event is the JSON message exchanged with UI screens over the bridge
type Event struct {
	Type    EventType `json:"type"`
	ID      string    `json:"id,omitempty"`
	Level   Level     `json:"level,omitempty"`
	Message string    `json:"message,omitempty"`
	View    View      `json:"view,omitempty"`
	// Confirm answers a prompt; Dismissable is always false for expiration prompts
	Confirm          bool     `json:"confirm,omitempty"`
	Dismissable      bool     `json:"dismissable"`
	ConfirmLabel     string   `json:"confirm_label,omitempty"`
	DeclineLabel     string   `json:"decline_label,omitempty"`
	RemainingSeconds int64    `json:"remaining_seconds,omitempty"`
	Visible          bool     `json:"visible,omitempty"`
	Session          *Session `json:"session,omitempty"`
}
