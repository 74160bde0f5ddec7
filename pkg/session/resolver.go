package session

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/figaro/pkg/chat"
	"github.com/go-go-golems/figaro/pkg/store"
)

var (
	// ErrUnauthenticated means no session credential was presented at all.
	ErrUnauthenticated = errors.New("not logged in")
	// ErrSessionExpired means a credential was presented but is stale or
	// invalid. Callers should clear the presented credential so the client
	// does not keep re-sending it.
	ErrSessionExpired = errors.New("login session expired")
)

// Session is a resolved request identity: the user record plus the provider
// credential recovered from the session token.
type Session struct {
	User       *chat.User
	Credential string
}

// Resolver validates session tokens against the user store. It is read-only;
// resolving never mutates user state.
type Resolver struct {
	users  store.UserStore
	secret string
}

func NewResolver(users store.UserStore, secret string) *Resolver {
	return &Resolver{users: users, secret: secret}
}

// Resolve maps a session token to a Session. An empty token fails with
// ErrUnauthenticated; an undecryptable token, an unknown user, or a logged-out
// user fails with ErrSessionExpired.
func (r *Resolver) Resolve(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	credential, err := Open(token, r.secret)
	if err != nil {
		log.Debug().Err(err).Msg("could not open session token")
		return nil, ErrSessionExpired
	}

	userID := Fingerprint(credential)
	user, err := r.users.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not look up session user")
	}
	if !user.IsLogin {
		return nil, ErrSessionExpired
	}

	return &Session{User: user, Credential: credential}, nil
}

// Login seals the credential into a new session token and upserts the user
// row with its login flag set.
func (r *Resolver) Login(ctx context.Context, credential string) (string, error) {
	token, err := Seal(credential, r.secret)
	if err != nil {
		return "", err
	}
	userID := Fingerprint(credential)
	if err := r.users.SaveAndLogin(ctx, userID); err != nil {
		return "", err
	}
	log.Info().Str("user_id", userID).Msg("user logged in")
	return token, nil
}

// Logout flips the login flag for the user behind the token. Unknown or
// malformed tokens are ignored; logout is idempotent from the client's view.
func (r *Resolver) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	credential, err := Open(token, r.secret)
	if err != nil {
		return nil
	}
	return r.users.Logout(ctx, Fingerprint(credential))
}
