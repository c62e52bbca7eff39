package fanout

import (
	"context"
	"time"

	"github.com/Worldstreet-team/xtreme-livestream/internal/domain"
)

// Envelope is the compact transport encoding published on a stream's
// shared channel. It carries only the display-relevant subset of a
// message: no durable id exists yet at broadcast time.
type Envelope struct {
	SenderID    string    `json:"senderId"`
	Username    string    `json:"username"`
	Avatar      string    `json:"avatar"`
	IsMod       bool      `json:"isMod,omitempty"`
	Kind        string    `json:"type"`
	Content     string    `json:"content"`
	TipAmount   string    `json:"tipAmount,omitempty"`
	TipCurrency string    `json:"tipCurrency,omitempty"`
	Emoji       string    `json:"emoji,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewEnvelope builds an Envelope from a composed message.
func NewEnvelope(msg *domain.ChatMessage) Envelope {
	env := Envelope{
		SenderID:  msg.Sender.ID,
		Username:  msg.Sender.Username,
		Avatar:    msg.Sender.Avatar,
		IsMod:     msg.Sender.IsMod,
		Kind:      string(msg.Kind()),
		Content:   msg.Content(),
		Timestamp: msg.CreatedAt,
	}
	switch p := msg.Payload.(type) {
	case domain.TextPayload:
	case domain.ReactionPayload:
		env.Emoji = p.Emoji
	case domain.TipPayload:
		env.TipAmount = p.Amount
		env.TipCurrency = p.Currency
	}
	return env
}

// ToMessage converts a received envelope into a feed message. The id
// is a receiver-local ephemeral one; messages arriving only over the
// fan-out channel never get a durable id in-session.
func (e Envelope) ToMessage(streamID, localID string) (*domain.ChatMessage, error) {
	kind, err := domain.ParseKind(e.Kind)
	if err != nil {
		return nil, err
	}

	var payload domain.Payload
	switch kind {
	case domain.KindText:
		payload = domain.TextPayload{Body: e.Content}
	case domain.KindReaction:
		emoji := e.Emoji
		if emoji == "" {
			emoji = e.Content
		}
		payload = domain.ReactionPayload{Emoji: emoji}
	case domain.KindTip:
		payload = domain.TipPayload{Amount: e.TipAmount, Currency: e.TipCurrency}
	}

	return &domain.ChatMessage{
		ID:        localID,
		StreamID:  streamID,
		Sender:    domain.Sender{ID: e.SenderID, Username: e.Username, Avatar: e.Avatar, IsMod: e.IsMod},
		Payload:   payload,
		CreatedAt: e.Timestamp,
	}, nil
}

// Inbound is one event delivered to a subscriber.
type Inbound struct {
	// Message is set for chat envelopes.
	Message *domain.ChatMessage
	// Ended is true when the stream signalled end-of-live.
	Ended bool
}

// CancelFunc tears down a subscription. Safe to call more than once.
type CancelFunc func()

// Channel delivers message payloads to all currently connected
// participants of a stream with minimal latency. Delivery is
// at-most-once, best-effort, with no ordering across senders: no
// persistence, no retry, no acknowledgement. Gaps across reconnects
// are recovered only via history backfill.
type Channel interface {
	// Broadcast publishes a message to everyone else in the stream.
	// It never surfaces transport failures to the caller; the sender's
	// optimistic echo stands regardless.
	Broadcast(ctx context.Context, msg *domain.ChatMessage)

	// AnnounceEnded publishes the stream-ended control event.
	AnnounceEnded(ctx context.Context, streamID string)

	// Subscribe registers for a stream's inbound events. Envelopes
	// whose sender is selfID are suppressed: the sender relies on its
	// own optimistic echo, not the round trip. Malformed payloads and
	// unrelated event types on the shared channel are dropped silently.
	Subscribe(ctx context.Context, streamID, selfID string) (<-chan Inbound, CancelFunc, error)
}
