package fanout

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Worldstreet-team/xtreme-livestream/internal/domain"
	"github.com/Worldstreet-team/xtreme-livestream/internal/metrics"
	"github.com/Worldstreet-team/xtreme-livestream/pkg/log"
	"github.com/Worldstreet-team/xtreme-livestream/pkg/pubsub"
)

// PubSubChannel implements Channel over the shared event bus. One bus
// channel per stream carries chat envelopes interleaved with lifecycle
// control events.
type PubSubChannel struct {
	bus pubsub.PubSub
}

// NewPubSubChannel creates a fan-out channel over the given bus.
func NewPubSubChannel(bus pubsub.PubSub) *PubSubChannel {
	return &PubSubChannel{bus: bus}
}

// Broadcast publishes the message envelope, swallowing any transport
// failure after one logged attempt.
func (c *PubSubChannel) Broadcast(ctx context.Context, msg *domain.ChatMessage) {
	event, err := pubsub.NewEvent(pubsub.EventChatMessage, msg.StreamID, NewEnvelope(msg))
	if err != nil {
		metrics.BroadcastFailures.Inc()
		log.Ctx(ctx).Warn().Err(err).Str(log.FieldStreamID, msg.StreamID).Msg("failed to encode broadcast envelope")
		return
	}

	if err := c.bus.Publish(ctx, pubsub.StreamChatChannel(msg.StreamID), event); err != nil {
		metrics.BroadcastFailures.Inc()
		log.Ctx(ctx).Warn().Err(err).Str(log.FieldStreamID, msg.StreamID).Msg("broadcast dropped")
	}
}

// AnnounceEnded publishes the stream-ended control event on the same
// channel as chat envelopes.
func (c *PubSubChannel) AnnounceEnded(ctx context.Context, streamID string) {
	event, err := pubsub.NewEvent(pubsub.EventStreamEnded, streamID, pubsub.StreamEndedPayload{StreamID: streamID, Reason: "manual"})
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str(log.FieldStreamID, streamID).Msg("failed to encode stream-ended event")
		return
	}
	if err := c.bus.Publish(ctx, pubsub.StreamChatChannel(streamID), event); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str(log.FieldStreamID, streamID).Msg("stream-ended event dropped")
	}
}

// Subscribe opens a self-filtered subscription for one participant.
func (c *PubSubChannel) Subscribe(ctx context.Context, streamID, selfID string) (<-chan Inbound, CancelFunc, error) {
	sub, err := c.bus.Subscribe(ctx, pubsub.StreamChatChannel(streamID))
	if err != nil {
		return nil, nil, err
	}

	out := make(chan Inbound, 64)
	go decodeLoop(streamID, selfID, sub, out)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			sub.Close()
		})
	}
	return out, cancel, nil
}

// decodeLoop turns raw bus events into Inbound events, dropping
// anything that is not a well-formed chat payload for this stream.
func decodeLoop(streamID, selfID string, sub pubsub.Subscription, out chan<- Inbound) {
	defer close(out)

	for event := range sub.Events() {
		switch event.Type {
		case pubsub.EventChatMessage:
			var env Envelope
			if err := event.UnmarshalPayload(&env); err != nil {
				metrics.MalformedDropped.Inc()
				continue
			}
			if env.SenderID == selfID {
				continue
			}
			msg, err := env.ToMessage(streamID, "rt-"+uuid.New().String())
			if err != nil {
				metrics.MalformedDropped.Inc()
				continue
			}
			metrics.LiveDelivered.Inc()
			out <- Inbound{Message: msg}

		case pubsub.EventStreamEnded:
			out <- Inbound{Ended: true}

		default:
			// Non-chat payload on the shared channel; not ours to decode.
		}
	}
}
