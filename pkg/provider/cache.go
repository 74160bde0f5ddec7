package provider

import (
	"sync"

	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
)

// ClientCache memoizes one configured provider client per user for the
// process lifetime. There is no eviction: the population is bounded by the
// number of distinct users seen by this process, and a client handle holds no
// scarce resources beyond an HTTP client.
//
// Concurrent first-time creation for the same user may construct two
// functionally equivalent clients; last write wins.
type ClientCache struct {
	mu      sync.RWMutex
	clients map[string]*go_openai.Client
	baseURL string
}

// NewClientCache creates a cache. baseURL overrides the provider endpoint
// when non-empty.
func NewClientCache(baseURL string) *ClientCache {
	return &ClientCache{
		clients: map[string]*go_openai.Client{},
		baseURL: baseURL,
	}
}

// GetOrCreate returns the cached client for userID, constructing one bound to
// credential on first use. An existing entry is returned unchanged; the
// credential is not re-validated.
func (c *ClientCache) GetOrCreate(userID string, credential string) *go_openai.Client {
	c.mu.RLock()
	client, ok := c.clients[userID]
	c.mu.RUnlock()
	if ok {
		return client
	}

	config := go_openai.DefaultConfig(credential)
	if c.baseURL != "" {
		config.BaseURL = c.baseURL
	}
	client = go_openai.NewClientWithConfig(config)

	c.mu.Lock()
	c.clients[userID] = client
	c.mu.Unlock()

	log.Debug().Str("user_id", userID).Msg("created completion client")
	return client
}

// Len reports the number of cached clients.
func (c *ClientCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.clients)
}
