package cache

import (
	"context"
	"fmt"
	"time"
)

// NoopPageCache satisfies PageCache without caching anything. Used when
// no redis is configured and in tests.
type NoopPageCache struct{}

func NewNoopPageCache() *NoopPageCache { return &NoopPageCache{} }

func (*NoopPageCache) Get(ctx context.Context, key string) (*PageResult, error) {
	return nil, ErrCacheMiss
}

func (*NoopPageCache) Set(ctx context.Context, key string, result *PageResult, ttl time.Duration) error {
	return nil
}

func (*NoopPageCache) BuildKey(streamID, beforeID string, limit int) string {
	if beforeID == "" {
		beforeID = "latest"
	}
	return fmt.Sprintf("%s:%s:%d", streamID, beforeID, limit)
}

func (*NoopPageCache) Close() error { return nil }
