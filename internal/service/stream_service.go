package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Worldstreet-team/xtreme-livestream/internal/audit"
	"github.com/Worldstreet-team/xtreme-livestream/internal/domain"
	"github.com/Worldstreet-team/xtreme-livestream/internal/fanout"
	"github.com/Worldstreet-team/xtreme-livestream/internal/repository"
)

// maxLiveStreamsPerOwner limits concurrent live streams per account.
const maxLiveStreamsPerOwner = 1

type streamServiceImpl struct {
	repo    repository.StreamRepository
	channel fanout.Channel
}

// NewStreamService creates a stream lifecycle service. Ending a stream
// announces the end on the live channel so open chat views disable
// themselves.
func NewStreamService(repo repository.StreamRepository, channel fanout.Channel) StreamService {
	return &streamServiceImpl{
		repo:    repo,
		channel: channel,
	}
}

// Create starts a new live stream for the owner.
func (s *streamServiceImpl) Create(ctx context.Context, owner domain.Identity, req *domain.CreateStreamRequest) (*domain.Stream, error) {
	count, err := s.repo.CountLiveStreamsByOwner(ctx, owner.UserID)
	if err != nil {
		return nil, err
	}
	if count >= maxLiveStreamsPerOwner {
		return nil, fmt.Errorf("user already has a live stream")
	}

	stream := &domain.Stream{
		OwnerID:       owner.UserID,
		OwnerUsername: owner.Username,
		Title:         req.Title,
		Category:      req.Category,
		Tags:          req.Tags,
		MediaRoomName: "stream-" + uuid.New().String(),
	}
	if err := s.repo.Create(ctx, stream); err != nil {
		return nil, err
	}

	audit.LogWithDetail(ctx, audit.ActionStartStream, owner.UserID, stream.ID, "stream started")
	return stream, nil
}

// Get retrieves a stream by id.
func (s *streamServiceImpl) Get(ctx context.Context, id string) (*domain.Stream, error) {
	return s.repo.GetByID(ctx, id)
}

// List retrieves streams with pagination.
func (s *streamServiceImpl) List(ctx context.Context, req *domain.ListStreamsRequest) (*domain.ListStreamsResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	streams, total, err := s.repo.List(ctx, page, pageSize, req.Status)
	if err != nil {
		return nil, err
	}

	totalPages := (total + pageSize - 1) / pageSize
	return &domain.ListStreamsResponse{
		Streams:    streams,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// GetUserStreams retrieves streams owned by a user.
func (s *streamServiceImpl) GetUserStreams(ctx context.Context, ownerID string) ([]domain.Stream, error) {
	return s.repo.GetUserStreams(ctx, ownerID)
}

// End transitions an owned live stream to ended and tells open chat
// views. The announcement is best effort: views also learn the state
// on their next send attempt.
func (s *streamServiceImpl) End(ctx context.Context, caller domain.Identity, id string) error {
	stream, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if stream.OwnerID != caller.UserID {
		return domain.ErrNotStreamOwner
	}
	if !stream.IsLive() {
		return domain.ErrStreamEnded
	}

	if err := s.repo.End(ctx, id); err != nil {
		return err
	}

	s.channel.AnnounceEnded(ctx, id)

	audit.LogWithDetail(ctx, audit.ActionEndStream, caller.UserID, id, "stream ended")
	return nil
}
