package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/figaro/pkg/store"
)

func TestSealOpenRoundtrip(t *testing.T) {
	token, err := Seal("sk-test-key", "secret")
	require.NoError(t, err)

	credential, err := Open(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "sk-test-key", credential)
}

func TestOpenRejectsTamperedToken(t *testing.T) {
	token, err := Seal("sk-test-key", "secret")
	require.NoError(t, err)

	tampered := "00" + token[2:]
	if tampered == token {
		tampered = "ff" + token[2:]
	}
	_, err = Open(tampered, "secret")
	require.Error(t, err)
}

func TestOpenRejectsWrongSecret(t *testing.T) {
	token, err := Seal("sk-test-key", "secret")
	require.NoError(t, err)

	_, err = Open(token, "other-secret")
	require.Error(t, err)
}

func TestFingerprintIsStable(t *testing.T) {
	assert.Equal(t, Fingerprint("sk-a"), Fingerprint("sk-a"))
	assert.NotEqual(t, Fingerprint("sk-a"), Fingerprint("sk-b"))
}

func TestResolveMissingTokenIsUnauthenticated(t *testing.T) {
	r := NewResolver(store.NewMemoryStore(), "secret")

	_, err := r.Resolve(context.Background(), "")
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestResolveUnknownUserIsExpired(t *testing.T) {
	r := NewResolver(store.NewMemoryStore(), "secret")

	// a valid token for a user that was never logged in
	token, err := Seal("sk-test-key", "secret")
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), token)
	require.ErrorIs(t, err, ErrSessionExpired)
}

func TestResolveGarbageTokenIsExpired(t *testing.T) {
	r := NewResolver(store.NewMemoryStore(), "secret")

	_, err := r.Resolve(context.Background(), "not-a-token")
	require.ErrorIs(t, err, ErrSessionExpired)
}

func TestResolveAfterLoginSucceeds(t *testing.T) {
	users := store.NewMemoryStore()
	r := NewResolver(users, "secret")
	ctx := context.Background()

	token, err := r.Login(ctx, "sk-test-key")
	require.NoError(t, err)

	sess, err := r.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "sk-test-key", sess.Credential)
	assert.Equal(t, Fingerprint("sk-test-key"), sess.User.ID)
	assert.True(t, sess.User.IsLogin)
}

func TestResolveAfterLogoutIsExpired(t *testing.T) {
	users := store.NewMemoryStore()
	r := NewResolver(users, "secret")
	ctx := context.Background()

	token, err := r.Login(ctx, "sk-test-key")
	require.NoError(t, err)
	require.NoError(t, r.Logout(ctx, token))

	_, err = r.Resolve(ctx, token)
	require.ErrorIs(t, err, ErrSessionExpired)
}

func TestLoginTwiceYieldsSameUser(t *testing.T) {
	users := store.NewMemoryStore()
	r := NewResolver(users, "secret")
	ctx := context.Background()

	t1, err := r.Login(ctx, "sk-test-key")
	require.NoError(t, err)
	t2, err := r.Login(ctx, "sk-test-key")
	require.NoError(t, err)

	// tokens differ (fresh nonce) but resolve to the same user
	s1, err := r.Resolve(ctx, t1)
	require.NoError(t, err)
	s2, err := r.Resolve(ctx, t2)
	require.NoError(t, err)
	assert.Equal(t, s1.User.ID, s2.User.ID)
}
