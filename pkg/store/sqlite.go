package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/figaro/pkg/chat"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	is_login   BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS chats (
	id           TEXT NOT NULL,
	user_id      TEXT NOT NULL,
	chat_name    TEXT NOT NULL DEFAULT '',
	chat_content TEXT NOT NULL DEFAULT '[]',
	created_at   TIMESTAMP NOT NULL,
	PRIMARY KEY (id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_chats_user_id ON chats (user_id);
`

// SQLiteStore is the durable backend. Each write is a single-row transaction;
// there is no cross-call transaction spanning a load and a later upsert, which
// is why the orchestrator serializes turns per conversation.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ Store = (*SQLiteStore)(nil)
var _ UserStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at dsn and ensures the
// schema exists.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, errors.Wrapf(err, "could not open sqlite database %s", dsn)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "could not initialize schema")
	}
	log.Debug().Str("dsn", dsn).Msg("opened sqlite conversation store")
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type chatRow struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	ChatName    string    `db:"chat_name"`
	ChatContent string    `db:"chat_content"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r *chatRow) toConversation() (*chat.Conversation, error) {
	msgs, err := chat.DecodeContent(r.ChatContent)
	if err != nil {
		return nil, errors.Wrapf(err, "corrupt chat content for conversation %s", r.ID)
	}
	return &chat.Conversation{
		ID:        r.ID,
		UserID:    r.UserID,
		Name:      r.ChatName,
		Messages:  msgs,
		CreatedAt: r.CreatedAt,
	}, nil
}

func (s *SQLiteStore) LoadAll(ctx context.Context, userID string) ([]chat.Conversation, error) {
	var rows []chatRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, user_id, chat_name, chat_content, created_at
		 FROM chats WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "could not load conversations")
	}

	ret := []chat.Conversation{}
	for i := range rows {
		conv, err := rows[i].toConversation()
		if err != nil {
			return nil, err
		}
		ret = append(ret, *conv)
	}
	return ret, nil
}

func (s *SQLiteStore) LoadOne(ctx context.Context, userID string, conversationID string) (*chat.Conversation, error) {
	var row chatRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, user_id, chat_name, chat_content, created_at
		 FROM chats WHERE id = ? AND user_id = ?`, conversationID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not load conversation %s", conversationID)
	}
	return row.toConversation()
}

func (s *SQLiteStore) UpsertAppend(ctx context.Context, conversationID string, userID string, msgs chat.Messages, name string) error {
	content, err := msgs.EncodeContent()
	if err != nil {
		return err
	}

	// Insert-or-overwrite-content: name and created_at are only written on
	// first insert. Re-sending the same full history is a no-op in effect.
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO chats (id, user_id, chat_name, chat_content, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id, user_id) DO UPDATE SET chat_content = excluded.chat_content`,
		conversationID, userID, name, content, time.Now().UTC())
	if err != nil {
		return errors.Wrapf(err, "could not upsert conversation %s", conversationID)
	}
	return nil
}

type userRow struct {
	ID        string    `db:"id"`
	IsLogin   bool      `db:"is_login"`
	CreatedAt time.Time `db:"created_at"`
}

func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*chat.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, is_login, created_at FROM users WHERE id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not load user")
	}
	return &chat.User{ID: row.ID, IsLogin: row.IsLogin, CreatedAt: row.CreatedAt}, nil
}

func (s *SQLiteStore) SaveAndLogin(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, is_login, created_at) VALUES (?, TRUE, ?)
		 ON CONFLICT (id) DO UPDATE SET is_login = TRUE`,
		userID, time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "could not save user")
	}
	return nil
}

func (s *SQLiteStore) Logout(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET is_login = FALSE WHERE id = ?`, userID)
	if err != nil {
		return errors.Wrap(err, "could not log out user")
	}
	return nil
}
