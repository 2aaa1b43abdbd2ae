package llm

import (
	"context"
	"errors"
)

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("llm returned an empty response")

// Message is one prior turn of the conversation in provider-agnostic form.
type Message struct {
	Role string // RoleUser or RoleModel
	Text string
}

// Client produces the next model turn. Implementations do not retry.
type Client interface {
	Reply(ctx context.Context, history []Message, content string) (string, error)
}
