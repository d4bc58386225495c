package ports

import "context"

// WebSocketClientPort defines capability to connect, exchange messages and close.
type WebSocketClientPort interface {
	Connect(url string) error
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// ConsolePort defines capability to show a line of text to the user.
type ConsolePort interface {
	Printf(format string, args ...any)
}

// ConfirmPort defines capability to ask the user a yes/no question.
// It returns ctx.Err() when the question is withdrawn before an answer.
type ConfirmPort interface {
	Confirm(ctx context.Context, question, yes, no string) (bool, error)
}
