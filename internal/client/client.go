package client

import (
	"context"

	"google.golang.org/genai"
)

// Client is the model collaborator boundary. One request, one reply; the
// orchestrator owns the conversation state and passes it in whole each call.
type Client interface {
	// Send issues a model call with a system instruction, the ordered
	// transcript, and the declared tool surface.
	Send(ctx context.Context, system string, history []*genai.Content, tools []*genai.Tool) (*Response, error)

	// ModelName returns the configured model identifier.
	ModelName() string

	// Close releases any underlying connections.
	Close() error
}

// Response is a complete model reply. genai types are the lingua franca
// for tool calls across providers.
type Response struct {
	// Text is the textual content of the reply, possibly empty.
	Text string

	// FunctionCalls are the tool calls the model requested, in reply order.
	FunctionCalls []*genai.FunctionCall
}

// Ptr returns a pointer to the given value.
func Ptr[T any](v T) *T {
	return &v
}
