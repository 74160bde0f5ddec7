package provider

import (
	"context"
	"net"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"

	"github.com/go-go-golems/figaro/pkg/chat"
	"github.com/go-go-golems/figaro/pkg/settings"
)

// OpenAICompleter calls the OpenAI chat completion API with fixed generation
// parameters taken from settings. Clients are bound to each user's credential
// and reused through the ClientCache.
type OpenAICompleter struct {
	cache    *ClientCache
	settings settings.ProviderSettings
}

var _ Completer = (*OpenAICompleter)(nil)

func NewOpenAICompleter(cache *ClientCache, s settings.ProviderSettings) *OpenAICompleter {
	return &OpenAICompleter{cache: cache, settings: s}
}

func (p *OpenAICompleter) Complete(ctx context.Context, userID string, credential string, history chat.Messages) (chat.Message, error) {
	client := p.cache.GetOrCreate(userID, credential)

	msgs := make([]go_openai.ChatCompletionMessage, 0, len(history))
	for _, m := range history {
		msgs = append(msgs, go_openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	req := go_openai.ChatCompletionRequest{
		Model:       p.settings.Model,
		Messages:    msgs,
		Temperature: p.settings.Temperature,
		MaxTokens:   p.settings.MaxTokens,
	}

	log.Debug().
		Str("user_id", userID).
		Str("model", req.Model).
		Int("num_messages", len(msgs)).
		Msg("calling completion provider")

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		if isTimeout(err) {
			return chat.Message{}, errors.Wrap(ErrTimeout, err.Error())
		}
		return chat.Message{}, errors.Wrap(err, "completion request failed")
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return chat.Message{}, ErrNoChoices
	}

	choice := resp.Choices[0].Message
	return chat.NewMessage(chat.Role(choice.Role), choice.Content), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
