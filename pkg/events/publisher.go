package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"book-agent-be/internal/pkg/logger"
)

// Publisher emits events onto the in-process pubsub. Publishing is
// best-effort: the request path logs failures and moves on.
type Publisher struct {
	pubSub *gochannel.GoChannel
	topic  string
}

func NewPublisher(pubSub *gochannel.GoChannel, topic string) *Publisher {
	return &Publisher{pubSub: pubSub, topic: topic}
}

func (p *Publisher) Publish(evt RecommendationServed) error {
	if p == nil || p.pubSub == nil {
		return nil
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("event_type", evt.EventType())
	return p.pubSub.Publish(p.topic, msg)
}

// Recorder consumes recommendation events and writes them to the
// structured log for offline analytics.
type Recorder struct {
	pubSub *gochannel.GoChannel
	topic  string
	logger logger.ILogger
}

func NewRecorder(pubSub *gochannel.GoChannel, topic string, log logger.ILogger) *Recorder {
	return &Recorder{pubSub: pubSub, topic: topic, logger: log}
}

func (r *Recorder) Consume(ctx context.Context) error {
	messages, err := r.pubSub.Subscribe(ctx, r.topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			r.record(msg)
		}
	}()

	return nil
}

func (r *Recorder) record(msg *message.Message) {
	var evt RecommendationServed
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		r.logger.Warn("events", "dropping malformed event", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack() // malformed payloads would never parse on retry
		return
	}

	r.logger.Info("events", "recommendation served", map[string]interface{}{
		"session_id": evt.SessionID,
		"intent":     evt.Intent,
		"strategy":   evt.Strategy,
		"book_ids":   evt.BookIDs,
	})
	msg.Ack()
}
