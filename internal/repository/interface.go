package repository

import (
	"context"

	"github.com/Worldstreet-team/xtreme-livestream/internal/domain"
)

// StreamRepository defines the interface for stream data persistence.
type StreamRepository interface {
	Create(ctx context.Context, stream *domain.Stream) error
	GetByID(ctx context.Context, id string) (*domain.Stream, error)
	List(ctx context.Context, page, pageSize int, status string) ([]domain.Stream, int, error)
	GetUserStreams(ctx context.Context, ownerID string) ([]domain.Stream, error)
	CountLiveStreamsByOwner(ctx context.Context, ownerID string) (int, error)
	UpdateViewers(ctx context.Context, id string, viewers int) error
	End(ctx context.Context, id string) error
}

// UserRepository defines the interface for user data persistence.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByAuthUserID(ctx context.Context, authUserID string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateSettings(ctx context.Context, id string, settings domain.ChatSettings) error
}
