package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermillSinkPublishesTurnCompleted(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer func() { _ = pubSub.Close() }()

	msgs, err := pubSub.Subscribe(context.Background(), "turns")
	require.NoError(t, err)

	sink := NewWatermillSink(pubSub, "turns")
	err = sink.PublishEvent(TurnCompleted{
		UserID:         "user-1",
		ConversationID: "chat-1",
		MessageCount:   2,
		Model:          "gpt-3.5-turbo",
	})
	require.NoError(t, err)

	select {
	case msg := <-msgs:
		assert.Equal(t, string(EventTypeTurnCompleted), msg.Metadata.Get("event_type"))
		var ev TurnCompleted
		require.NoError(t, json.Unmarshal(msg.Payload, &ev))
		assert.Equal(t, "chat-1", ev.ConversationID)
		assert.Equal(t, 2, ev.MessageCount)
		msg.Ack()
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
}
