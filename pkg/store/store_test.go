package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/figaro/pkg/chat"
)

type backend interface {
	Store
	UserStore
}

func backends(t *testing.T) map[string]backend {
	t.Helper()

	sqliteStore, err := NewSQLiteStore(filepath.Join(t.TempDir(), "figaro-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteStore.Close() })

	return map[string]backend{
		"memory": NewMemoryStore(),
		"sqlite": sqliteStore,
	}
}

func TestLoadAllEmptyUserReturnsEmptySlice(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			convs, err := s.LoadAll(context.Background(), "nobody")
			require.NoError(t, err)
			require.NotNil(t, convs)
			assert.Len(t, convs, 0)
		})
	}
}

func TestLoadOneAbsentConversationIsNotFound(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.LoadOne(context.Background(), "user-1", "no-such-chat")
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestUpsertAppendInsertsThenOverwritesContentOnly(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			first := chat.Messages{chat.NewMessage(chat.RoleUser, "hello")}

			require.NoError(t, s.UpsertAppend(ctx, "chat-1", "user-1", first, "greetings"))

			created, err := s.LoadOne(ctx, "user-1", "chat-1")
			require.NoError(t, err)
			assert.Equal(t, "greetings", created.Name)
			assert.Equal(t, first, created.Messages)
			assert.False(t, created.CreatedAt.IsZero())

			second := first.Append(
				chat.NewMessage(chat.RoleAssistant, "hi there"),
			)
			// the name argument is ignored on update
			require.NoError(t, s.UpsertAppend(ctx, "chat-1", "user-1", second, "renamed"))

			updated, err := s.LoadOne(ctx, "user-1", "chat-1")
			require.NoError(t, err)
			assert.Equal(t, "greetings", updated.Name)
			assert.Equal(t, second, updated.Messages)
			assert.Equal(t, created.CreatedAt.Unix(), updated.CreatedAt.Unix())
		})
	}
}

func TestUpsertAppendIsIdempotent(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			msgs := chat.Messages{
				chat.NewMessage(chat.RoleUser, "hello"),
				chat.NewMessage(chat.RoleAssistant, "hi there"),
			}

			require.NoError(t, s.UpsertAppend(ctx, "chat-1", "user-1", msgs, "greetings"))
			once, err := s.LoadOne(ctx, "user-1", "chat-1")
			require.NoError(t, err)

			require.NoError(t, s.UpsertAppend(ctx, "chat-1", "user-1", msgs, "greetings"))
			twice, err := s.LoadOne(ctx, "user-1", "chat-1")
			require.NoError(t, err)

			assert.Equal(t, once.Messages, twice.Messages)
			assert.Equal(t, once.Name, twice.Name)
			assert.Equal(t, once.CreatedAt.Unix(), twice.CreatedAt.Unix())
		})
	}
}

func TestConversationsAreScopedPerUser(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			msgs := chat.Messages{chat.NewMessage(chat.RoleUser, "mine")}

			require.NoError(t, s.UpsertAppend(ctx, "chat-1", "alice", msgs, "a"))

			_, err := s.LoadOne(ctx, "bob", "chat-1")
			require.ErrorIs(t, err, ErrNotFound)

			convs, err := s.LoadAll(ctx, "bob")
			require.NoError(t, err)
			assert.Len(t, convs, 0)
		})
	}
}

func TestLoadAllReturnsAllConversationsForUser(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.UpsertAppend(ctx, "chat-1", "user-1", chat.Messages{}, "one"))
			require.NoError(t, s.UpsertAppend(ctx, "chat-2", "user-1", chat.Messages{}, "two"))

			convs, err := s.LoadAll(ctx, "user-1")
			require.NoError(t, err)
			require.Len(t, convs, 2)

			ids := []string{convs[0].ID, convs[1].ID}
			assert.ElementsMatch(t, []string{"chat-1", "chat-2"}, ids)
		})
	}
}

func TestUserLoginLogoutRoundtrip(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.GetUser(ctx, "user-1")
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.SaveAndLogin(ctx, "user-1"))
			u, err := s.GetUser(ctx, "user-1")
			require.NoError(t, err)
			assert.True(t, u.IsLogin)
			assert.False(t, u.CreatedAt.IsZero())

			require.NoError(t, s.Logout(ctx, "user-1"))
			u, err = s.GetUser(ctx, "user-1")
			require.NoError(t, err)
			assert.False(t, u.IsLogin)

			// logging in again flips the flag back without duplicating the row
			require.NoError(t, s.SaveAndLogin(ctx, "user-1"))
			u, err = s.GetUser(ctx, "user-1")
			require.NoError(t, err)
			assert.True(t, u.IsLogin)
		})
	}
}
