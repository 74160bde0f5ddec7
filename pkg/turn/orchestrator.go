package turn

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/figaro/pkg/chat"
	"github.com/go-go-golems/figaro/pkg/events"
	"github.com/go-go-golems/figaro/pkg/provider"
	"github.com/go-go-golems/figaro/pkg/store"
)

var (
	// ErrBadRequest means a required turn input (prompt or conversation id)
	// was missing. No side effects have happened when it is returned.
	ErrBadRequest = errors.New("missing prompt or conversation id")
	// ErrStorage wraps persistence failures. The provider call may have
	// succeeded by then; resubmitting is safe because the upsert is
	// idempotent on the same resulting state.
	ErrStorage = errors.New("could not persist conversation")
)

// Orchestrator runs one turn: load history, append the user prompt, obtain
// the assistant reply, persist the full updated history.
//
// Turns on the same conversation are serialized through a per-conversation
// lock held across the whole load-complete-persist sequence, so concurrent
// turns queue up instead of silently overwriting each other. Turns on
// different conversations do not contend.
type Orchestrator struct {
	store     store.Store
	completer provider.Completer
	sink      events.EventSink
	model     string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

type Option func(*Orchestrator)

// WithEventSink sets the sink that receives turn-completed events.
func WithEventSink(sink events.EventSink) Option {
	return func(o *Orchestrator) {
		o.sink = sink
	}
}

// WithModel sets the model name reported in turn events.
func WithModel(model string) Option {
	return func(o *Orchestrator) {
		o.model = model
	}
}

func NewOrchestrator(s store.Store, completer provider.Completer, options ...Option) *Orchestrator {
	ret := &Orchestrator{
		store:     s,
		completer: completer,
		sink:      events.NullSink{},
		locks:     map[string]*sync.Mutex{},
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

func (o *Orchestrator) conversationLock(userID string, conversationID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()

	key := userID + "\x00" + conversationID
	lock, ok := o.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[key] = lock
	}
	return lock
}

// SubmitTurn runs one full turn and returns the complete updated message
// sequence. Nothing is persisted unless both halves of the turn exist in
// memory: a failed provider call leaves the stored conversation untouched.
func (o *Orchestrator) SubmitTurn(
	ctx context.Context,
	userID string,
	credential string,
	conversationID string,
	conversationName string,
	prompt string,
) (chat.Messages, error) {
	if prompt == "" || conversationID == "" {
		return nil, ErrBadRequest
	}

	lock := o.conversationLock(userID, conversationID)
	lock.Lock()
	defer lock.Unlock()

	started := time.Now()

	history := chat.Messages{}
	existing, err := o.store.LoadOne(ctx, userID, conversationID)
	switch {
	case err == nil:
		history = existing.Messages
	case errors.Is(err, store.ErrNotFound):
		// new conversations are created implicitly on their first turn
	default:
		return nil, errors.Wrap(err, "could not load conversation")
	}

	working := history.Append(chat.NewMessage(chat.RoleUser, prompt))

	reply, err := o.completer.Complete(ctx, userID, credential, working)
	if err != nil {
		log.Warn().
			Err(err).
			Str("user_id", userID).
			Str("conversation_id", conversationID).
			Msg("completion failed, discarding turn")
		return nil, err
	}

	working = working.Append(reply)

	if err := o.store.UpsertAppend(ctx, conversationID, userID, working, conversationName); err != nil {
		return nil, errors.Wrapf(ErrStorage, "%v", err)
	}

	if err := o.sink.PublishEvent(events.TurnCompleted{
		UserID:         userID,
		ConversationID: conversationID,
		MessageCount:   len(working),
		Model:          o.model,
		Duration:       time.Since(started),
	}); err != nil {
		log.Warn().Err(err).Msg("failed to publish turn event")
	}

	log.Debug().
		Str("user_id", userID).
		Str("conversation_id", conversationID).
		Int("num_messages", len(working)).
		Dur("duration", time.Since(started)).
		Msg("turn completed")

	return working, nil
}

// ListConversations returns all of the user's conversations, oldest first.
func (o *Orchestrator) ListConversations(ctx context.Context, userID string) ([]chat.Conversation, error) {
	return o.store.LoadAll(ctx, userID)
}

// CreateConversation persists a fresh, empty conversation under a generated
// id and returns it.
func (o *Orchestrator) CreateConversation(ctx context.Context, userID string, name string) (*chat.Conversation, error) {
	conversationID := uuid.NewString()
	if err := o.store.UpsertAppend(ctx, conversationID, userID, chat.Messages{}, name); err != nil {
		return nil, errors.Wrapf(ErrStorage, "%v", err)
	}
	conv, err := o.store.LoadOne(ctx, userID, conversationID)
	if err != nil {
		return nil, errors.Wrap(err, "could not load created conversation")
	}
	return conv, nil
}
