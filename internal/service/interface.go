package service

import (
	"context"

	"github.com/Worldstreet-team/xtreme-livestream/internal/domain"
)

// ChatService is the server-side chat surface: paginated history reads
// and authenticated sends.
type ChatService interface {
	GetHistory(ctx context.Context, streamID, beforeID string, limit int) (*domain.HistoryPage, error)
	SendMessage(ctx context.Context, sender domain.Identity, streamID string, payload domain.Payload) (*domain.ChatMessage, error)
}

// StreamService manages stream lifecycle.
type StreamService interface {
	Create(ctx context.Context, owner domain.Identity, req *domain.CreateStreamRequest) (*domain.Stream, error)
	Get(ctx context.Context, id string) (*domain.Stream, error)
	List(ctx context.Context, req *domain.ListStreamsRequest) (*domain.ListStreamsResponse, error)
	GetUserStreams(ctx context.Context, ownerID string) ([]domain.Stream, error)
	End(ctx context.Context, caller domain.Identity, id string) error
}

// UserService manages viewer profiles and chat settings.
type UserService interface {
	GetOrCreate(ctx context.Context, identity domain.Identity) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateSettings(ctx context.Context, identity domain.Identity, req *domain.UpdateSettingsRequest) (*domain.User, error)
	// GetChatSettings returns the chat settings for a stream owner's
	// auth id, defaulting when no profile exists yet.
	GetChatSettings(ctx context.Context, authUserID string) (domain.ChatSettings, error)
}
