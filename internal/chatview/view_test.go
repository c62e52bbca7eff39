package chatview

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Worldstreet-team/xtreme-livestream/internal/domain"
	"github.com/Worldstreet-team/xtreme-livestream/internal/fanout"
	"github.com/Worldstreet-team/xtreme-livestream/pkg/pubsub"
)

// fakeStore is an in-memory history store with controllable failures
// and a gate to hold fetches in flight.
type fakeStore struct {
	mu        sync.Mutex
	messages  []domain.ChatMessage
	appended  []domain.MessageDraft
	fetchErr  error
	appendErr error
	fetchGate chan struct{}
	seq       int
}

func (s *fakeStore) Append(ctx context.Context, draft domain.MessageDraft) (*domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return nil, s.appendErr
	}
	s.seq++
	msg := domain.ChatMessage{
		ID:        fmt.Sprintf("durable-%d", s.seq),
		StreamID:  draft.StreamID,
		Sender:    draft.Sender,
		Payload:   draft.Payload,
		CreatedAt: time.Now().UTC(),
	}
	s.appended = append(s.appended, draft)
	s.messages = append(s.messages, msg)
	return &msg, nil
}

func (s *fakeStore) FetchPage(ctx context.Context, streamID string, limit int, beforeID string) ([]domain.ChatMessage, error) {
	if s.fetchGate != nil {
		<-s.fetchGate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	out := make([]domain.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out, nil
}

func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) appendCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.appended)
}

func historyMessage(id, senderID, body string, at time.Time) domain.ChatMessage {
	return domain.ChatMessage{
		ID:        id,
		StreamID:  "stream-1",
		Sender:    domain.Sender{ID: senderID, Username: senderID},
		Payload:   domain.TextPayload{Body: body},
		CreatedAt: at,
	}
}

func newTestView(store *fakeStore, opts Options) (*View, fanout.Channel, func()) {
	bus := pubsub.NewMemoryPubSub()
	channel := fanout.NewPubSubChannel(bus)
	view := New(store, channel, domain.Identity{UserID: "viewer-1", Username: "viewer"}, "stream-1", opts)
	return view, channel, func() {
		view.Close()
		bus.Close()
	}
}

func TestStartBackfillsHistoryBeforeLive(t *testing.T) {
	base := time.Now().UTC().Add(-time.Minute)
	store := &fakeStore{messages: []domain.ChatMessage{
		historyMessage("h1", "streamer-1", "welcome", base),
		historyMessage("h2", "other-1", "hi all", base.Add(time.Second)),
	}}

	view, channel, teardown := newTestView(store, Options{Live: true})
	defer teardown()

	view.Start(context.Background())
	require.Equal(t, StateReady, view.State())

	feed := view.Feed()
	require.Len(t, feed, 2)
	assert.Equal(t, "h1", feed[0].ID)
	assert.Equal(t, "h2", feed[1].ID)

	// A live event lands after the backfill, never interleaved with it.
	channel.Broadcast(context.Background(), &domain.ChatMessage{
		ID:        "local-x",
		StreamID:  "stream-1",
		Sender:    domain.Sender{ID: "other-1", Username: "other"},
		Payload:   domain.TextPayload{Body: "live line"},
		CreatedAt: time.Now().UTC(),
	})

	require.Eventually(t, func() bool {
		return len(view.Feed()) == 3
	}, 2*time.Second, 10*time.Millisecond)

	feed = view.Feed()
	assert.Equal(t, "h1", feed[0].ID)
	assert.Equal(t, "h2", feed[1].ID)
	assert.Equal(t, domain.TextPayload{Body: "live line"}, feed[2].Payload)
}

func TestSendEchoesImmediately(t *testing.T) {
	store := &fakeStore{}
	view, _, teardown := newTestView(store, Options{Live: true})
	defer teardown()
	view.Start(context.Background())

	msg, err := view.Send(context.Background(), domain.TextPayload{Body: "gm"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(msg.ID, "local-"))
	assert.Equal(t, "viewer-1", msg.Sender.ID)

	// The echo is in the feed synchronously, before any network call.
	feed := view.Feed()
	require.Len(t, feed, 1)
	assert.Equal(t, msg.ID, feed[0].ID)

	// The durable append happens in the background.
	require.Eventually(t, func() bool {
		return store.appendCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Self-filtering: the sender's own broadcast never comes back as a
	// second feed entry.
	time.Sleep(200 * time.Millisecond)
	assert.Len(t, view.Feed(), 1)
}

func TestSendAllowedWhileLoading(t *testing.T) {
	base := time.Now().UTC().Add(-time.Minute)
	gate := make(chan struct{})
	store := &fakeStore{
		messages:  []domain.ChatMessage{historyMessage("h1", "streamer-1", "welcome", base)},
		fetchGate: gate,
	}
	view, _, teardown := newTestView(store, Options{Live: true})
	defer teardown()

	done := make(chan struct{})
	go func() {
		view.Start(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool {
		return view.State() == StateLoading
	}, time.Second, 5*time.Millisecond)

	msg, err := view.Send(context.Background(), domain.TextPayload{Body: "early bird"})
	require.NoError(t, err)
	require.Len(t, view.Feed(), 1)

	close(gate)
	<-done

	// History merges in chronological position, before the echo.
	feed := view.Feed()
	require.Len(t, feed, 2)
	assert.Equal(t, "h1", feed[0].ID)
	assert.Equal(t, msg.ID, feed[1].ID)
}

func TestBackfillDedupAgainstEcho(t *testing.T) {
	gate := make(chan struct{})
	store := &fakeStore{fetchGate: gate}
	view, _, teardown := newTestView(store, Options{Live: true})
	defer teardown()

	done := make(chan struct{})
	go func() {
		view.Start(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool {
		return view.State() == StateLoading
	}, time.Second, 5*time.Millisecond)

	msg, err := view.Send(context.Background(), domain.TextPayload{Body: "dup me"})
	require.NoError(t, err)

	// The same send shows up in the backfill under its durable id with
	// a slightly different timestamp.
	store.mu.Lock()
	store.messages = append(store.messages, domain.ChatMessage{
		ID:        "durable-echo",
		StreamID:  "stream-1",
		Sender:    msg.Sender,
		Payload:   msg.Payload,
		CreatedAt: msg.CreatedAt.Add(500 * time.Millisecond),
	})
	store.mu.Unlock()

	close(gate)
	<-done

	feed := view.Feed()
	require.Len(t, feed, 1, "echo and its persisted copy must collapse to one entry")
	assert.Equal(t, msg.ID, feed[0].ID)
}

func TestBackfillReplayIsIdempotent(t *testing.T) {
	base := time.Now().UTC().Add(-time.Minute)
	page := []domain.ChatMessage{
		historyMessage("h1", "streamer-1", "one", base),
		historyMessage("h2", "other-1", "two", base.Add(time.Second)),
		historyMessage("h3", "other-2", "three", base.Add(2*time.Second)),
	}
	store := &fakeStore{messages: page}
	view, _, teardown := newTestView(store, Options{Live: true})
	defer teardown()

	view.Start(context.Background())
	require.Len(t, view.Feed(), 3)

	// The same page applied a second time changes nothing.
	view.mu.Lock()
	view.applyBackfillLocked(page)
	view.mu.Unlock()

	feed := view.Feed()
	require.Len(t, feed, 3)
	assert.Equal(t, "h1", feed[0].ID)
	assert.Equal(t, "h2", feed[1].ID)
	assert.Equal(t, "h3", feed[2].ID)
}

func TestBackfillKeepsDistinctMessagesOutsideTolerance(t *testing.T) {
	gate := make(chan struct{})
	store := &fakeStore{fetchGate: gate}
	view, _, teardown := newTestView(store, Options{Live: true})
	defer teardown()

	done := make(chan struct{})
	go func() {
		view.Start(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool {
		return view.State() == StateLoading
	}, time.Second, 5*time.Millisecond)

	msg, err := view.Send(context.Background(), domain.TextPayload{Body: "again"})
	require.NoError(t, err)

	// Same sender and content, but far enough apart in time to be a
	// genuine repeat, not the echo's persisted copy.
	store.mu.Lock()
	store.messages = append(store.messages, domain.ChatMessage{
		ID:        "durable-old",
		StreamID:  "stream-1",
		Sender:    msg.Sender,
		Payload:   msg.Payload,
		CreatedAt: msg.CreatedAt.Add(-5 * time.Second),
	})
	store.mu.Unlock()

	close(gate)
	<-done

	assert.Len(t, view.Feed(), 2)
}

func TestSlowModeCooldown(t *testing.T) {
	store := &fakeStore{}
	view, _, teardown := newTestView(store, Options{
		Live:             true,
		SlowMode:         true,
		SlowModeCooldown: 150 * time.Millisecond,
	})
	defer teardown()
	view.Start(context.Background())

	_, err := view.Send(context.Background(), domain.TextPayload{Body: "first"})
	require.NoError(t, err)

	_, err = view.Send(context.Background(), domain.TextPayload{Body: "too soon"})
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	// The rejected send had no side effects.
	assert.Len(t, view.Feed(), 1)

	time.Sleep(200 * time.Millisecond)
	_, err = view.Send(context.Background(), domain.TextPayload{Body: "after cooldown"})
	assert.NoError(t, err)
}

func TestDisabledViewLoadsHistoryButRejectsSends(t *testing.T) {
	base := time.Now().UTC().Add(-time.Hour)
	store := &fakeStore{messages: []domain.ChatMessage{
		historyMessage("h1", "streamer-1", "that was fun", base),
	}}
	view, _, teardown := newTestView(store, Options{Live: false})
	defer teardown()

	view.Start(context.Background())
	assert.Equal(t, StateDisabled, view.State())

	// History renders read-only.
	require.Len(t, view.Feed(), 1)

	_, err := view.Send(context.Background(), domain.TextPayload{Body: "anyone here?"})
	assert.ErrorIs(t, err, domain.ErrChatDisabled)
	assert.Len(t, view.Feed(), 1)
	assert.Equal(t, 0, store.appendCount())
}

func TestStreamEndedDisablesView(t *testing.T) {
	store := &fakeStore{}
	view, channel, teardown := newTestView(store, Options{Live: true})
	defer teardown()
	view.Start(context.Background())
	require.Equal(t, StateReady, view.State())

	channel.AnnounceEnded(context.Background(), "stream-1")

	require.Eventually(t, func() bool {
		return view.State() == StateDisabled
	}, 2*time.Second, 10*time.Millisecond)

	_, err := view.Send(context.Background(), domain.TextPayload{Body: "late"})
	assert.ErrorIs(t, err, domain.ErrChatDisabled)
}

func TestHistoryFailureYieldsEmptyReadyFeed(t *testing.T) {
	store := &fakeStore{fetchErr: domain.ErrStoreUnavailable}
	view, _, teardown := newTestView(store, Options{Live: true})
	defer teardown()

	view.Start(context.Background())
	assert.Equal(t, StateReady, view.State())
	assert.Empty(t, view.Feed())

	// Composition still works without history.
	_, err := view.Send(context.Background(), domain.TextPayload{Body: "blind send"})
	assert.NoError(t, err)
}

func TestValidationRejectedBeforeSideEffects(t *testing.T) {
	store := &fakeStore{}
	view, _, teardown := newTestView(store, Options{Live: true})
	defer teardown()
	view.Start(context.Background())

	_, err := view.Send(context.Background(), domain.TextPayload{Body: "  "})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))

	_, err = view.Send(context.Background(), domain.ReactionPayload{Emoji: "🍕"})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))

	assert.Empty(t, view.Feed())
	assert.Equal(t, 0, store.appendCount())
}

func TestCloseDiscardsLateFetch(t *testing.T) {
	gate := make(chan struct{})
	store := &fakeStore{
		messages:  []domain.ChatMessage{historyMessage("h1", "streamer-1", "stale", time.Now().UTC())},
		fetchGate: gate,
	}
	view, _, teardown := newTestView(store, Options{Live: true})
	defer teardown()

	done := make(chan struct{})
	go func() {
		view.Start(context.Background())
		close(done)
	}()

	view.Close()
	close(gate)
	<-done

	// The page that arrived after teardown never mutates the feed.
	assert.Empty(t, view.Feed())

	// Updates is closed and drained.
	_, ok := <-view.Updates()
	assert.False(t, ok)
}

func TestUpdatesStreamFeedAdditions(t *testing.T) {
	store := &fakeStore{}
	view, _, teardown := newTestView(store, Options{Live: true})
	defer teardown()
	view.Start(context.Background())

	msg, err := view.Send(context.Background(), domain.TextPayload{Body: "observe me"})
	require.NoError(t, err)

	select {
	case got := <-view.Updates():
		assert.Equal(t, msg.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("no update emitted for optimistic echo")
	}
}
