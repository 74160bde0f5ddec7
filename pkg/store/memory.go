package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-go-golems/figaro/pkg/chat"
)

// MemoryStore is the ephemeral backend: a per-user map of conversations held
// in process memory. All history is lost on restart; selecting this backend
// is an explicit deployment choice, not a degraded mode.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]map[string]*chat.Conversation
	users         map[string]*chat.User
}

var _ Store = (*MemoryStore)(nil)
var _ UserStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: map[string]map[string]*chat.Conversation{},
		users:         map[string]*chat.User{},
	}
}

func (s *MemoryStore) LoadAll(_ context.Context, userID string) ([]chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ret := []chat.Conversation{}
	for _, conv := range s.conversations[userID] {
		c := *conv
		c.Messages = conv.Messages.Clone()
		ret = append(ret, c)
	}
	// map iteration order is random; present oldest first
	sort.Slice(ret, func(i, j int) bool {
		if ret[i].CreatedAt.Equal(ret[j].CreatedAt) {
			return ret[i].ID < ret[j].ID
		}
		return ret[i].CreatedAt.Before(ret[j].CreatedAt)
	})
	return ret, nil
}

func (s *MemoryStore) LoadOne(_ context.Context, userID string, conversationID string) (*chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[userID][conversationID]
	if !ok {
		return nil, ErrNotFound
	}
	c := *conv
	c.Messages = conv.Messages.Clone()
	return &c, nil
}

func (s *MemoryStore) UpsertAppend(_ context.Context, conversationID string, userID string, msgs chat.Messages, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID, ok := s.conversations[userID]
	if !ok {
		byID = map[string]*chat.Conversation{}
		s.conversations[userID] = byID
	}

	if existing, ok := byID[conversationID]; ok {
		existing.Messages = msgs.Clone()
		return nil
	}

	byID[conversationID] = &chat.Conversation{
		ID:        conversationID,
		UserID:    userID,
		Name:      name,
		Messages:  msgs.Clone(),
		CreatedAt: time.Now(),
	}
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, userID string) (*chat.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	ret := *u
	return &ret, nil
}

func (s *MemoryStore) SaveAndLogin(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[userID]; ok {
		u.IsLogin = true
		return nil
	}
	s.users[userID] = &chat.User{
		ID:        userID,
		IsLogin:   true,
		CreatedAt: time.Now(),
	}
	return nil
}

func (s *MemoryStore) Logout(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[userID]; ok {
		u.IsLogin = false
	}
	return nil
}
