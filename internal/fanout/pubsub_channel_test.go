package fanout

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Worldstreet-team/xtreme-livestream/internal/domain"
	"github.com/Worldstreet-team/xtreme-livestream/pkg/pubsub"
)

func testMessage(senderID, body string) *domain.ChatMessage {
	return &domain.ChatMessage{
		ID:       "local-1",
		StreamID: "stream-1",
		Sender:   domain.Sender{ID: senderID, Username: "sender"},
		Payload:  domain.TextPayload{Body: body},

		CreatedAt: time.Now().UTC(),
	}
}

func receiveOne(t *testing.T, inbound <-chan Inbound) Inbound {
	t.Helper()
	select {
	case ev, ok := <-inbound:
		require.True(t, ok, "inbound channel closed unexpectedly")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for inbound event")
		return Inbound{}
	}
}

func TestBroadcastReachesOtherParticipants(t *testing.T) {
	bus := pubsub.NewMemoryPubSub()
	defer bus.Close()
	channel := NewPubSubChannel(bus)

	inbound, cancel, err := channel.Subscribe(context.Background(), "stream-1", "viewer-1")
	require.NoError(t, err)
	defer cancel()

	channel.Broadcast(context.Background(), testMessage("streamer-1", "hello chat"))

	ev := receiveOne(t, inbound)
	require.NotNil(t, ev.Message)
	assert.False(t, ev.Ended)
	assert.Equal(t, "streamer-1", ev.Message.Sender.ID)
	assert.Equal(t, domain.TextPayload{Body: "hello chat"}, ev.Message.Payload)
	assert.Equal(t, "stream-1", ev.Message.StreamID)
	assert.True(t, strings.HasPrefix(ev.Message.ID, "rt-"), "received messages get ephemeral local ids")
}

func TestSubscribeFiltersOwnMessages(t *testing.T) {
	bus := pubsub.NewMemoryPubSub()
	defer bus.Close()
	channel := NewPubSubChannel(bus)

	selfInbound, cancelSelf, err := channel.Subscribe(context.Background(), "stream-1", "viewer-1")
	require.NoError(t, err)
	defer cancelSelf()

	otherInbound, cancelOther, err := channel.Subscribe(context.Background(), "stream-1", "viewer-2")
	require.NoError(t, err)
	defer cancelOther()

	channel.Broadcast(context.Background(), testMessage("viewer-1", "my own message"))

	// The other participant sees it...
	ev := receiveOne(t, otherInbound)
	require.NotNil(t, ev.Message)
	assert.Equal(t, "viewer-1", ev.Message.Sender.ID)

	// ...the sender does not: the optimistic echo already covered it.
	select {
	case ev := <-selfInbound:
		t.Fatalf("sender received its own broadcast: %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestMalformedEnvelopesDropped(t *testing.T) {
	bus := pubsub.NewMemoryPubSub()
	defer bus.Close()
	channel := NewPubSubChannel(bus)

	inbound, cancel, err := channel.Subscribe(context.Background(), "stream-1", "viewer-1")
	require.NoError(t, err)
	defer cancel()

	// An envelope with an unknown kind must be dropped silently.
	bad, err := pubsub.NewEvent(pubsub.EventChatMessage, "stream-1", map[string]string{"type": "sticker"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), pubsub.StreamChatChannel("stream-1"), bad))

	channel.Broadcast(context.Background(), testMessage("streamer-1", "still works"))

	ev := receiveOne(t, inbound)
	require.NotNil(t, ev.Message)
	assert.Equal(t, domain.TextPayload{Body: "still works"}, ev.Message.Payload)
}

func TestAnnounceEnded(t *testing.T) {
	bus := pubsub.NewMemoryPubSub()
	defer bus.Close()
	channel := NewPubSubChannel(bus)

	inbound, cancel, err := channel.Subscribe(context.Background(), "stream-1", "viewer-1")
	require.NoError(t, err)
	defer cancel()

	channel.AnnounceEnded(context.Background(), "stream-1")

	ev := receiveOne(t, inbound)
	assert.True(t, ev.Ended)
	assert.Nil(t, ev.Message)
}

func TestCancelClosesInbound(t *testing.T) {
	bus := pubsub.NewMemoryPubSub()
	defer bus.Close()
	channel := NewPubSubChannel(bus)

	inbound, cancel, err := channel.Subscribe(context.Background(), "stream-1", "viewer-1")
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-inbound:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("inbound channel not closed after cancel")
	}

	// Cancel is idempotent.
	cancel()
}
