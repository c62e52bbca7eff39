package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Worldstreet-team/xtreme-livestream/internal/chatview"
	"github.com/Worldstreet-team/xtreme-livestream/internal/config"
	"github.com/Worldstreet-team/xtreme-livestream/internal/domain"
)

func newTestClient(h *Hub, id, streamID string) *Client {
	identity := domain.Identity{UserID: "user-1", Username: "viewer"}
	view := chatview.New(nil, nil, identity, streamID, chatview.Options{Live: true})
	return NewClient(id, h, nil, identity, streamID, view, config.WebSocketConfig{})
}

func waitCount(t *testing.T, counts <-chan int, want int) {
	t.Helper()
	select {
	case got := <-counts:
		require.Equal(t, want, got)
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for viewer count %d", want)
	}
}

func TestHubTracksStreamCounts(t *testing.T) {
	h := NewHub()
	counts := make(chan int, 8)
	h.OnCountChange = func(_ string, n int) { counts <- n }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	first := newTestClient(h, "c1", "stream-1")
	second := newTestClient(h, "c2", "stream-1")

	h.Register(first)
	waitCount(t, counts, 1)
	h.Register(second)
	waitCount(t, counts, 2)
	assert.Equal(t, 2, h.StreamClientCount("stream-1"))

	h.Unregister(first)
	waitCount(t, counts, 1)
	assert.Equal(t, 1, h.StreamClientCount("stream-1"))
}

// A client can be unregistered while its state reporter or update
// forwarder still has a frame to queue; those late sends must become
// no-ops rather than hitting the closed queue.
func TestSendAfterUnregisterIsNoOp(t *testing.T) {
	h := NewHub()
	counts := make(chan int, 8)
	h.OnCountChange = func(_ string, n int) { counts <- n }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	client := newTestClient(h, "c1", "stream-1")
	h.Register(client)
	waitCount(t, counts, 1)

	h.Unregister(client)
	waitCount(t, counts, 0)

	client.SendState("ready")
	client.SendError("BAD_REQUEST", "late")
	client.SendJSON(outboundFrame{Type: "message"})

	_, open := <-client.Send
	assert.False(t, open, "send queue should be closed with nothing queued")
}
