package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Worldstreet-team/xtreme-livestream/internal/audit"
	"github.com/Worldstreet-team/xtreme-livestream/internal/cache"
	"github.com/Worldstreet-team/xtreme-livestream/internal/domain"
	"github.com/Worldstreet-team/xtreme-livestream/internal/fanout"
	"github.com/Worldstreet-team/xtreme-livestream/internal/history"
	"github.com/Worldstreet-team/xtreme-livestream/internal/metrics"
	"github.com/Worldstreet-team/xtreme-livestream/internal/repository"
	"github.com/Worldstreet-team/xtreme-livestream/pkg/log"
)

type chatServiceImpl struct {
	store    history.Store
	channel  fanout.Channel
	streams  repository.StreamRepository
	users    repository.UserRepository
	cache    cache.PageCache
	cacheTTL time.Duration
	slowMode *slowModeGate
	sf       singleflight.Group
}

// NewChatService wires history reads through the page cache and sends
// through the stream-live gate, slow mode and the fan-out channel.
func NewChatService(
	store history.Store,
	channel fanout.Channel,
	streams repository.StreamRepository,
	users repository.UserRepository,
	pageCache cache.PageCache,
	cacheTTL time.Duration,
	slowModeCooldown time.Duration,
) ChatService {
	return &chatServiceImpl{
		store:    store,
		channel:  channel,
		streams:  streams,
		users:    users,
		cache:    pageCache,
		cacheTTL: cacheTTL,
		slowMode: newSlowModeGate(slowModeCooldown),
	}
}

// GetHistory returns one chronological page ending just before
// beforeID, or the latest page when beforeID is empty. The latest page
// always reads through to the store; it changes on every send and
// caching it would serve stale feeds to joining viewers.
func (s *chatServiceImpl) GetHistory(ctx context.Context, streamID, beforeID string, limit int) (*domain.HistoryPage, error) {
	limit = history.ClampLimit(limit)

	if beforeID == "" {
		return s.fetchPage(ctx, streamID, beforeID, limit)
	}

	cacheKey := s.cache.BuildKey(streamID, beforeID, limit)

	// singleflight collapses concurrent requests for the same page.
	result, err, _ := s.sf.Do(cacheKey, func() (interface{}, error) {
		return s.fetchWithCache(ctx, streamID, beforeID, limit, cacheKey)
	})
	if err != nil {
		return nil, err
	}

	page, ok := result.(*domain.HistoryPage)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from singleflight")
	}
	return page, nil
}

func (s *chatServiceImpl) fetchWithCache(ctx context.Context, streamID, beforeID string, limit int, cacheKey string) (*domain.HistoryPage, error) {
	cached, err := s.cache.Get(ctx, cacheKey)
	if err == nil {
		return &domain.HistoryPage{
			Messages:   cached.Messages,
			NextCursor: cached.NextCursor,
			HasMore:    cached.HasMore,
		}, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		log.Ctx(ctx).Warn().Err(err).Msg("cache get error")
	}

	page, err := s.fetchPage(ctx, streamID, beforeID, limit)
	if err != nil {
		return nil, err
	}

	// Cache write happens off the request path.
	go func() {
		cacheCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		result := &cache.PageResult{
			Messages:   page.Messages,
			NextCursor: page.NextCursor,
			HasMore:    page.HasMore,
		}
		if err := s.cache.Set(cacheCtx, cacheKey, result, s.cacheTTL); err != nil {
			log.L().Warn().Err(err).Msg("cache set error")
		}
	}()

	return page, nil
}

// fetchPage reads limit+1 rows to learn whether older history remains,
// then trims back to limit.
func (s *chatServiceImpl) fetchPage(ctx context.Context, streamID, beforeID string, limit int) (*domain.HistoryPage, error) {
	messages, err := s.store.FetchPage(ctx, streamID, limit+1, beforeID)
	if err != nil {
		metrics.HistoryFetches.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.HistoryFetches.WithLabelValues("ok").Inc()

	hasMore := len(messages) > limit
	if hasMore {
		// Messages are chronological; the extra row is the oldest.
		messages = messages[len(messages)-limit:]
	}

	page := &domain.HistoryPage{
		Messages: messages,
		HasMore:  hasMore,
	}
	if hasMore && len(messages) > 0 {
		page.NextCursor = messages[0].ID
	}
	return page, nil
}

// SendMessage validates, gates on the stream being live and on slow
// mode, persists, then broadcasts on the live channel. The broadcast
// is best effort; a failure never retracts the persisted message.
func (s *chatServiceImpl) SendMessage(ctx context.Context, sender domain.Identity, streamID string, payload domain.Payload) (*domain.ChatMessage, error) {
	if err := domain.ValidatePayload(payload); err != nil {
		return nil, err
	}

	stream, err := s.streams.GetByID(ctx, streamID)
	if err != nil {
		return nil, err
	}
	if !stream.IsLive() {
		return nil, domain.ErrChatDisabled
	}

	isMod := sender.UserID == stream.OwnerID
	if !isMod && s.ownerSlowModeOn(ctx, stream.OwnerID) {
		if !s.slowMode.allow(streamID, sender.UserID) {
			return nil, domain.ErrRateLimited
		}
	}

	msg, err := s.store.Append(ctx, domain.MessageDraft{
		StreamID: streamID,
		Sender: domain.Sender{
			ID:       sender.UserID,
			Username: sender.Username,
			Avatar:   sender.Avatar,
			IsMod:    isMod,
		},
		Payload: payload,
	})
	if err != nil {
		metrics.PersistFailures.Inc()
		return nil, err
	}

	metrics.MessagesSent.WithLabelValues(string(msg.Kind())).Inc()
	audit.LogWithDetail(ctx, audit.ActionSendMessage, sender.UserID, string(msg.Kind()), "chat message sent")

	go s.channel.Broadcast(log.WithLogger(context.Background(), log.Ctx(ctx)), msg)

	return msg, nil
}

// ownerSlowModeOn reads the owner's chat settings. Lookup failures
// default to slow mode off rather than blocking chat.
func (s *chatServiceImpl) ownerSlowModeOn(ctx context.Context, ownerID string) bool {
	owner, err := s.users.GetByAuthUserID(ctx, ownerID)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			log.Ctx(ctx).Warn().Err(err).Str(log.FieldUserID, ownerID).Msg("failed to load owner settings")
		}
		return false
	}
	return owner.Settings.SlowMode
}
