package store

import (
	"context"

	"github.com/pkg/errors"

	"github.com/go-go-golems/figaro/pkg/chat"
)

// ErrNotFound is returned by LoadOne and GetUser when no row matches. Callers
// loading a conversation treat it as an empty history, since conversations
// are created implicitly by their first completed turn.
var ErrNotFound = errors.New("not found")

// Store persists conversation message histories keyed by (user, conversation).
//
// UpsertAppend is a full-state write, not a delta append: the caller supplies
// the complete desired message list every time, which makes the operation
// idempotent and safe to retry after a failed write. On insert the creation
// timestamp is recorded; on update only the content field is overwritten.
type Store interface {
	// LoadAll returns every conversation owned by userID, empty slice when
	// there are none.
	LoadAll(ctx context.Context, userID string) ([]chat.Conversation, error)
	// LoadOne returns one conversation or ErrNotFound.
	LoadOne(ctx context.Context, userID string, conversationID string) (*chat.Conversation, error)
	// UpsertAppend inserts the conversation if absent, otherwise overwrites
	// its message content with msgs, leaving name and creation time as they
	// were.
	UpsertAppend(ctx context.Context, conversationID string, userID string, msgs chat.Messages, name string) error
}

// UserStore persists user login state. Users are upserted on login and never
// hard-deleted; logout only flips the login flag.
type UserStore interface {
	// GetUser returns the user row or ErrNotFound.
	GetUser(ctx context.Context, userID string) (*chat.User, error)
	SaveAndLogin(ctx context.Context, userID string) error
	Logout(ctx context.Context, userID string) error
}
