package service

import (
	"context"
	"time"

	"canvas-rag-be/internal/pkg/logger"
	"canvas-rag-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// EventSink receives relayed events. pkg/nats.Publisher is the
// production sink.
type EventSink interface {
	Publish(ctx context.Context, event events.Event) error
}

type IEventRelayService interface {
	Consume(ctx context.Context) error
}

type eventRelayService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	sink      EventSink
	logger    logger.ILogger
}

// NewEventRelayService forwards every event on topicName to sink. sink
// may be nil, in which case events are only logged.
func NewEventRelayService(
	pubSub *gochannel.GoChannel,
	topicName string,
	sink EventSink,
	logger logger.ILogger,
) IEventRelayService {
	return &eventRelayService{
		pubSub:    pubSub,
		topicName: topicName,
		sink:      sink,
		logger:    logger,
	}
}

func (rs *eventRelayService) Consume(ctx context.Context) error {
	messages, err := rs.pubSub.Subscribe(ctx, rs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			rs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (rs *eventRelayService) processMessage(ctx context.Context, msg *message.Message) {
	event, err := events.Decode(msg.Payload)
	if err != nil {
		rs.logger.Error("RELAY", "Failed to decode event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	details := map[string]interface{}{"type": event.EventType(), "payload": event.Payload()}
	if rs.sink == nil {
		rs.logger.Info("RELAY", "Event recorded", details)
		msg.Ack()
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rs.sink.Publish(pubCtx, event); err != nil {
		// Dropped: gochannel redelivers a Nack immediately.
		details["error"] = err.Error()
		rs.logger.Warn("RELAY", "Failed to relay event", details)
		msg.Ack()
		return
	}

	rs.logger.Debug("RELAY", "Event relayed", details)
	msg.Ack()
}
