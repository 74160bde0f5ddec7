package chat

import "time"

// Conversation is one named message history owned by a user. Identity is the
// (UserID, ID) pair; ID is an opaque string chosen by the caller (a name or a
// generated id).
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"chat_name"`
	Messages  Messages  `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
}

// User is the session-derived identity a conversation belongs to.
type User struct {
	ID        string    `json:"id"`
	IsLogin   bool      `json:"is_login"`
	CreatedAt time.Time `json:"created_at"`
}
