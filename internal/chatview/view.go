package chatview

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/Worldstreet-team/xtreme-livestream/internal/domain"
	"github.com/Worldstreet-team/xtreme-livestream/internal/fanout"
	"github.com/Worldstreet-team/xtreme-livestream/internal/history"
	"github.com/Worldstreet-team/xtreme-livestream/internal/metrics"
	"github.com/Worldstreet-team/xtreme-livestream/pkg/log"
)

// State is the lifecycle state of one chat view.
type State string

const (
	// StateLoading: the initial history fetch is in flight.
	StateLoading State = "loading"
	// StateReady: normal operation; sends and live events accepted.
	StateReady State = "ready"
	// StateDisabled: stream is not live; sends rejected, live events
	// ignored. History already in the feed stays readable.
	StateDisabled State = "disabled"
)

// DefaultSlowModeCooldown is the fixed slow-mode window.
const DefaultSlowModeCooldown = 30 * time.Second

const persistTimeout = 5 * time.Second

// Options configure a View.
type Options struct {
	// HistoryLimit is the backfill page size. Zero means the store default.
	HistoryLimit int
	// Live indicates the stream was live when the view opened. A
	// non-live stream produces a view that starts Disabled: history
	// loads read-only, composition is rejected.
	Live bool
	// SlowMode arms the per-sender cooldown.
	SlowMode bool
	// SlowModeCooldown overrides the default 30s window. Used by tests.
	SlowModeCooldown time.Duration
}

// View reconciles one viewer's chat feed from three sources: the
// initial history backfill, locally originated sends (optimistic
// echo), and inbound fan-out events. All feed mutations serialize
// through the view's mutex, so no two handlers observe partial state.
type View struct {
	store    history.Store
	channel  fanout.Channel
	identity domain.Identity
	streamID string
	opts     Options
	limiter  *rate.Limiter

	mu     sync.Mutex
	state  State
	feed   []domain.ChatMessage
	closed bool

	updates   chan domain.ChatMessage
	cancelSub fanout.CancelFunc
	done      chan struct{}
}

// New constructs a view for one viewer of one stream. The identity is
// passed explicitly; the view never consults any process-wide session
// state.
func New(store history.Store, channel fanout.Channel, identity domain.Identity, streamID string, opts Options) *View {
	state := StateLoading
	if !opts.Live {
		state = StateDisabled
	}

	var limiter *rate.Limiter
	if opts.SlowMode {
		cooldown := opts.SlowModeCooldown
		if cooldown <= 0 {
			cooldown = DefaultSlowModeCooldown
		}
		limiter = rate.NewLimiter(rate.Every(cooldown), 1)
	}

	return &View{
		store:    store,
		channel:  channel,
		identity: identity,
		streamID: streamID,
		opts:     opts,
		limiter:  limiter,
		state:    state,
		updates:  make(chan domain.ChatMessage, 128),
		done:     make(chan struct{}),
	}
}

// Start drains one history page into the feed, then subscribes to the
// fan-out channel, guaranteeing all backfill lands before any live
// event is observed. A failed fetch still reaches Ready with an empty
// feed. Start returns once the view is Ready (or Disabled).
func (v *View) Start(ctx context.Context) {
	page, err := v.store.FetchPage(ctx, v.streamID, v.opts.HistoryLimit, "")
	if err != nil {
		metrics.HistoryFetches.WithLabelValues("error").Inc()
		log.Ctx(ctx).Warn().Err(err).Str(log.FieldStreamID, v.streamID).Msg("history unavailable, starting with empty feed")
	} else {
		metrics.HistoryFetches.WithLabelValues("ok").Inc()
	}

	v.mu.Lock()
	if v.closed {
		// Torn down while the fetch was in flight; discard the page.
		v.mu.Unlock()
		return
	}
	if err == nil {
		v.applyBackfillLocked(page)
	}
	if v.state == StateLoading {
		v.state = StateReady
	}
	disabled := v.state == StateDisabled
	v.mu.Unlock()

	if disabled {
		// The media component tears the channel down alongside the
		// stream; nothing live to subscribe to.
		close(v.done)
		return
	}

	inbound, cancel, err := v.channel.Subscribe(ctx, v.streamID, v.identity.UserID)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str(log.FieldStreamID, v.streamID).Msg("live channel unavailable, feed limited to history")
		close(v.done)
		return
	}

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		cancel()
		close(v.done)
		return
	}
	v.cancelSub = cancel
	v.mu.Unlock()

	go v.receiveLoop(inbound)
}

// receiveLoop appends inbound live events in arrival order.
func (v *View) receiveLoop(inbound <-chan fanout.Inbound) {
	defer close(v.done)

	for ev := range inbound {
		if ev.Ended {
			v.SetDisabled()
			continue
		}
		if ev.Message == nil {
			continue
		}

		v.mu.Lock()
		if v.closed || v.state == StateDisabled {
			v.mu.Unlock()
			continue
		}
		v.appendLocked(*ev.Message)
		v.mu.Unlock()
	}
}

// Send validates, rate-limits, echoes locally, then broadcasts and
// persists concurrently. Neither the broadcast nor the append can fail
// the send once the echo is in the feed.
func (v *View) Send(ctx context.Context, payload domain.Payload) (*domain.ChatMessage, error) {
	if err := domain.ValidatePayload(payload); err != nil {
		return nil, err
	}

	v.mu.Lock()
	if v.state == StateDisabled {
		v.mu.Unlock()
		return nil, domain.ErrChatDisabled
	}
	if v.limiter != nil && !v.limiter.Allow() {
		v.mu.Unlock()
		return nil, domain.ErrRateLimited
	}

	msg := domain.ChatMessage{
		ID:        "local-" + uuid.New().String(),
		StreamID:  v.streamID,
		Sender: domain.Sender{
			ID:       v.identity.UserID,
			Username: v.identity.Username,
			Avatar:   v.identity.Avatar,
		},
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}

	// Optimistic echo: the sender sees the message before any network call.
	v.appendLocked(msg)
	v.mu.Unlock()

	metrics.MessagesSent.WithLabelValues(string(msg.Kind())).Inc()

	// Broadcast and persist run independently; either may fail without
	// retracting the echo or affecting the other.
	bg := log.WithLogger(context.Background(), log.Ctx(ctx))
	go v.channel.Broadcast(bg, &msg)
	go v.persist(bg, msg)

	return &msg, nil
}

// persist is the fire-and-forget durable write. A failed append drops
// the message from history only; the live copy already went out.
func (v *View) persist(ctx context.Context, msg domain.ChatMessage) {
	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	if _, err := v.store.Append(ctx, draftOf(msg)); err != nil {
		metrics.PersistFailures.Inc()
		log.Ctx(ctx).Warn().Err(err).
			Str(log.FieldStreamID, v.streamID).
			Str(log.FieldKind, string(msg.Kind())).
			Msg("history append failed, message not persisted")
	}
}

func draftOf(msg domain.ChatMessage) domain.MessageDraft {
	return domain.MessageDraft{
		StreamID: msg.StreamID,
		Sender:   msg.Sender,
		Payload:  msg.Payload,
	}
}

// SetDisabled moves the view to Disabled: the owning stream is no
// longer live. Sends are rejected and inbound live events ignored from
// here on; the feed stays readable.
func (v *View) SetDisabled() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = StateDisabled
}

// State returns the current lifecycle state.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Feed returns a snapshot copy of the ordered message feed.
func (v *View) Feed() []domain.ChatMessage {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]domain.ChatMessage, len(v.feed))
	copy(out, v.feed)
	return out
}

// Updates streams every message appended to the feed, in feed order:
// optimistic echoes, backfill records and live events alike.
func (v *View) Updates() <-chan domain.ChatMessage {
	return v.updates
}

// Close tears the view down. Late results from in-flight calls are
// discarded; the feed is never mutated after Close.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	cancel := v.cancelSub
	close(v.updates)
	v.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// appendLocked adds a message to the feed tail and emits an update.
// Callers hold v.mu.
func (v *View) appendLocked(msg domain.ChatMessage) {
	v.feed = append(v.feed, msg)
	v.emitLocked(msg)
}

// emitLocked pushes one update without blocking. A consumer that is
// not draining loses updates, never feed entries. Callers hold v.mu.
func (v *View) emitLocked(msg domain.ChatMessage) {
	if v.closed {
		return
	}
	select {
	case v.updates <- msg:
	default:
	}
}
