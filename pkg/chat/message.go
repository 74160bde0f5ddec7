package chat

import (
	"encoding/json"

	"github.com/pkg/errors"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

// Message is a single chat turn half. The JSON shape matches what is sent to
// the completion provider and what is persisted in a conversation's content
// blob, so the stored form round-trips without translation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

type Messages []Message

// Clone returns an independent copy, so a working copy of a conversation's
// history can be extended without mutating the loaded state.
func (ms Messages) Clone() Messages {
	if ms == nil {
		return nil
	}
	ret := make(Messages, len(ms))
	copy(ret, ms)
	return ret
}

func (ms Messages) Append(msgs ...Message) Messages {
	return append(ms.Clone(), msgs...)
}

// EncodeContent serializes the message list to the stored chat_content blob.
// An empty list encodes to "[]" rather than null so that stored blobs always
// decode to a list.
func (ms Messages) EncodeContent() (string, error) {
	if ms == nil {
		ms = Messages{}
	}
	b, err := json.Marshal(ms)
	if err != nil {
		return "", errors.Wrap(err, "could not encode chat content")
	}
	return string(b), nil
}

// DecodeContent parses a stored chat_content blob. Empty input is treated as
// an empty history, not an error, since a conversation row may predate its
// first completed turn.
func DecodeContent(content string) (Messages, error) {
	if content == "" {
		return Messages{}, nil
	}
	var ms Messages
	if err := json.Unmarshal([]byte(content), &ms); err != nil {
		return nil, errors.Wrap(err, "could not decode chat content")
	}
	if ms == nil {
		ms = Messages{}
	}
	return ms, nil
}
