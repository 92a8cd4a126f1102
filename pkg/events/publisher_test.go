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

func TestPublishRoundTrip(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	messages, err := pubSub.Subscribe(ctx, "recommendations")
	require.NoError(t, err)

	pub := NewPublisher(pubSub, "recommendations")
	evt := RecommendationServed{
		SessionID:  "s1",
		Intent:     "general",
		Strategy:   "new_search",
		Query:      "python books",
		BookIDs:    []int{1, 2},
		OccurredAt: time.Now(),
	}
	require.NoError(t, pub.Publish(evt))

	select {
	case msg := <-messages:
		var got RecommendationServed
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, "s1", got.SessionID)
		assert.Equal(t, []int{1, 2}, got.BookIDs)
		assert.Equal(t, TypeRecommendationServed, msg.Metadata.Get("event_type"))
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("timed out waiting for published event")
	}
}

func TestNilPublisherIsNoop(t *testing.T) {
	var pub *Publisher
	assert.NoError(t, pub.Publish(RecommendationServed{SessionID: "s1"}))
}
