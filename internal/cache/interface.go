package cache

import (
	"context"
	"time"

	"github.com/Worldstreet-team/xtreme-livestream/internal/domain"
)

// PageResult is one cached history page, in chronological order.
type PageResult struct {
	Messages   []domain.ChatMessage `json:"messages"`
	NextCursor string               `json:"next_cursor"`
	HasMore    bool                 `json:"has_more"`
}

// PageCache caches history pages so hot streams do not hit the store
// on every join.
type PageCache interface {
	Get(ctx context.Context, key string) (*PageResult, error)
	Set(ctx context.Context, key string, result *PageResult, ttl time.Duration) error
	BuildKey(streamID, beforeID string, limit int) string
	Close() error
}
