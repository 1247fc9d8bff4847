package infrastructure

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Automation event types published by the engine.
const (
	EventMessageSent  = "message_sent"
	EventFlowStarted  = "flow_started"
	EventFlowFinished = "flow_finished"
	EventTransferred  = "transferred_to_human"
	EventChatClosed   = "chat_closed"
	EventAICompleted  = "ai_completed"
	EventReminderSent = "reminder_sent"
)

// TopicAutomation carries every AutomationEvent.
const TopicAutomation = "automation.events"

type AutomationEvent struct {
	Type       string    `json:"type"`
	Schema     string    `json:"schema"`
	UserID     int       `json:"user_id"`
	Contact    string    `json:"contact"`
	WorkflowID string    `json:"workflow_id,omitempty"`
	NodeID     string    `json:"node_id,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	At         time.Time `json:"at"`
}

// EventBus is an in-process pub/sub for automation events.
type EventBus struct {
	pubsub *gochannel.GoChannel
}

func NewEventBus() *EventBus {
	logger := watermill.NewStdLogger(false, false)
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, logger)
	return &EventBus{pubsub: pubsub}
}

// Publish emits an automation event. Failures are returned but callers may
// treat them as non-fatal; the bus never blocks the engine.
func (b *EventBus) Publish(evt AutomationEvent) error {
	if evt.At.IsZero() {
		evt.At = time.Now()
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return b.pubsub.Publish(TopicAutomation, message.NewMessage(watermill.NewUUID(), payload))
}

// Subscribe returns a channel of decoded automation events. Messages that
// fail to decode are acked and dropped.
func (b *EventBus) Subscribe(ctx context.Context) (<-chan AutomationEvent, error) {
	msgs, err := b.pubsub.Subscribe(ctx, TopicAutomation)
	if err != nil {
		return nil, err
	}

	out := make(chan AutomationEvent, 64)
	go func() {
		defer close(out)
		for msg := range msgs {
			var evt AutomationEvent
			if err := json.Unmarshal(msg.Payload, &evt); err == nil {
				out <- evt
			}
			msg.Ack()
		}
	}()
	return out, nil
}

func (b *EventBus) Close() error {
	return b.pubsub.Close()
}
