package pubsub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPublishReachesSubscriber(t *testing.T) {
	bus := NewMemoryPubSub()
	defer bus.Close()

	sub, err := bus.Subscribe(context.Background(), StreamChatChannel("s1"))
	require.NoError(t, err)

	evt, err := NewEvent(EventChatMessage, "s1", map[string]string{"content": "hi"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), StreamChatChannel("s1"), evt))

	select {
	case got := <-sub.Events():
		assert.Equal(t, EventChatMessage, got.Type)
		assert.Equal(t, "s1", got.StreamID)
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestMemorySubscriptionCloseStopsDelivery(t *testing.T) {
	bus := NewMemoryPubSub()
	defer bus.Close()

	sub, err := bus.Subscribe(context.Background(), StreamChatChannel("s1"))
	require.NoError(t, err)
	require.NoError(t, sub.Close())

	evt, err := NewEvent(EventChatMessage, "s1", map[string]string{"content": "late"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), StreamChatChannel("s1"), evt))

	_, open := <-sub.Events()
	assert.False(t, open, "events channel should be closed")
}

// One subscriber leaving while a publisher is mid-broadcast must never
// send on the closed events channel.
func TestMemoryPublishConcurrentWithClose(t *testing.T) {
	bus := NewMemoryPubSub()
	defer bus.Close()

	channel := StreamChatChannel("s1")
	evt, err := NewEvent(EventChatMessage, "s1", map[string]string{"content": "x"})
	require.NoError(t, err)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				_ = bus.Publish(context.Background(), channel, evt)
			}
		}
	}()

	for i := 0; i < 200; i++ {
		sub, err := bus.Subscribe(context.Background(), channel)
		require.NoError(t, err)
		require.NoError(t, sub.Close())
	}

	close(done)
	wg.Wait()
}
