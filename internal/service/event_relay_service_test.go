package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"canvas-rag-be/internal/pkg/logger"
	"canvas-rag-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	fail   bool
	calls  int
	events []events.Event
}

func (s *recordingSink) Publish(ctx context.Context, event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail {
		return errors.New("broker unavailable")
	}
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) snapshot() (int, []events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls, append([]events.Event(nil), s.events...)
}

const testTopic = "canvas_events"

func newBus(t *testing.T) *gochannel.GoChannel {
	t.Helper()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })
	return pubSub
}

func TestEventRelayForwardsToSink(t *testing.T) {
	pubSub := newBus(t)
	sink := &recordingSink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	relay := NewEventRelayService(pubSub, testTopic, sink, logger.NewNop())
	require.NoError(t, relay.Consume(ctx))

	publisher := NewPublisherService(testTopic, pubSub)
	require.NoError(t, publisher.Publish(ctx, events.New(events.NodePlaced, map[string]interface{}{"node_id": "abc"})))
	require.NoError(t, publisher.Publish(ctx, events.New(events.AnswerGenerated, nil)))

	assert.Eventually(t, func() bool {
		_, got := sink.snapshot()
		return len(got) == 2
	}, 2*time.Second, 10*time.Millisecond)

	_, got := sink.snapshot()
	byType := map[string]events.Event{}
	for _, e := range got {
		byType[e.EventType()] = e
	}
	require.Contains(t, byType, events.NodePlaced)
	require.Contains(t, byType, events.AnswerGenerated)
	assert.Equal(t, "abc", byType[events.NodePlaced].Payload()["node_id"])
}

func TestEventRelayDropsOnSinkFailure(t *testing.T) {
	pubSub := newBus(t)
	sink := &recordingSink{fail: true}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	relay := NewEventRelayService(pubSub, testTopic, sink, logger.NewNop())
	require.NoError(t, relay.Consume(ctx))

	publisher := NewPublisherService(testTopic, pubSub)
	require.NoError(t, publisher.Publish(ctx, events.New(events.ContextExported, nil)))

	assert.Eventually(t, func() bool {
		calls, _ := sink.snapshot()
		return calls == 1
	}, 2*time.Second, 10*time.Millisecond)

	// The failed event is not redelivered.
	time.Sleep(50 * time.Millisecond)
	calls, _ := sink.snapshot()
	assert.Equal(t, 1, calls)
}

func TestEventRelaySkipsMalformedMessages(t *testing.T) {
	pubSub := newBus(t)
	sink := &recordingSink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	relay := NewEventRelayService(pubSub, testTopic, sink, logger.NewNop())
	require.NoError(t, relay.Consume(ctx))

	require.NoError(t, pubSub.Publish(testTopic, message.NewMessage(watermill.NewUUID(), []byte("not json"))))
	publisher := NewPublisherService(testTopic, pubSub)
	require.NoError(t, publisher.Publish(ctx, events.New(events.NodePlaced, nil)))

	assert.Eventually(t, func() bool {
		_, got := sink.snapshot()
		return len(got) == 1
	}, 2*time.Second, 10*time.Millisecond)

	calls, _ := sink.snapshot()
	assert.Equal(t, 1, calls)
}

func TestEventRelayWithoutSink(t *testing.T) {
	pubSub := newBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	relay := NewEventRelayService(pubSub, testTopic, nil, logger.NewNop())
	require.NoError(t, relay.Consume(ctx))

	publisher := NewPublisherService(testTopic, pubSub)
	assert.NoError(t, publisher.Publish(ctx, events.New(events.NodePlaced, nil)))
}
