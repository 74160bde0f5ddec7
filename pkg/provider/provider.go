package provider

import (
	"context"

	"github.com/pkg/errors"

	"github.com/go-go-golems/figaro/pkg/chat"
)

var (
	// ErrNoChoices means the provider answered but returned no usable
	// completion choice.
	ErrNoChoices = errors.New("no response from completion provider")
	// ErrTimeout marks provider failures caused by a network timeout, so the
	// request boundary can surface a distinct message.
	ErrTimeout = errors.New("completion request timed out")
)

// Completer invokes a chat-completion provider with a full message history as
// context and returns the single best assistant reply.
type Completer interface {
	Complete(ctx context.Context, userID string, credential string, history chat.Messages) (chat.Message, error)
}
