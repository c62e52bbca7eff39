package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Worldstreet-team/xtreme-livestream/internal/domain"
	"github.com/Worldstreet-team/xtreme-livestream/pkg/log"
)

// GormStreamRepository implements StreamRepository using GORM.
type GormStreamRepository struct {
	db *gorm.DB
}

// NewGormStreamRepository creates a new GORM-based stream repository.
func NewGormStreamRepository(db *gorm.DB) *GormStreamRepository {
	return &GormStreamRepository{db: db}
}

// Create creates a new stream in the live state.
func (r *GormStreamRepository) Create(ctx context.Context, stream *domain.Stream) error {
	l := log.Ctx(ctx)

	stream.ID = uuid.New().String()
	stream.Status = domain.StreamStatusLive

	model := domain.StreamToModel(stream)
	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		l.Error().Err(result.Error).Msg("failed to create stream in db")
		return result.Error
	}

	stream.StartedAt = model.StartedAt
	l.Debug().Str(log.FieldStreamID, stream.ID).Msg("stream created in db")
	return nil
}

// GetByID retrieves a stream by ID.
func (r *GormStreamRepository) GetByID(ctx context.Context, id string) (*domain.Stream, error) {
	l := log.Ctx(ctx)

	var model domain.StreamModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrStreamNotFound
		}
		l.Error().Err(result.Error).Str(log.FieldStreamID, id).Msg("failed to get stream by id")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// List retrieves streams with pagination, optionally filtered by status.
func (r *GormStreamRepository) List(ctx context.Context, page, pageSize int, status string) ([]domain.Stream, int, error) {
	l := log.Ctx(ctx)

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	offset := (page - 1) * pageSize

	query := r.db.WithContext(ctx).Model(&domain.StreamModel{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		l.Error().Err(err).Msg("failed to count streams")
		return nil, 0, err
	}

	var models []domain.StreamModel
	if err := query.Order("started_at DESC").Offset(offset).Limit(pageSize).Find(&models).Error; err != nil {
		l.Error().Err(err).Msg("failed to list streams from db")
		return nil, 0, err
	}

	streams := make([]domain.Stream, len(models))
	for i, model := range models {
		streams[i] = *model.ToDomain()
	}

	return streams, int(total), nil
}

// GetUserStreams retrieves streams owned by a user, newest first.
func (r *GormStreamRepository) GetUserStreams(ctx context.Context, ownerID string) ([]domain.Stream, error) {
	l := log.Ctx(ctx)

	var models []domain.StreamModel
	result := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("started_at DESC").
		Find(&models)
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldUserID, ownerID).Msg("failed to get user streams from db")
		return nil, result.Error
	}

	streams := make([]domain.Stream, len(models))
	for i, model := range models {
		streams[i] = *model.ToDomain()
	}

	return streams, nil
}

// CountLiveStreamsByOwner counts live streams owned by a user.
func (r *GormStreamRepository) CountLiveStreamsByOwner(ctx context.Context, ownerID string) (int, error) {
	l := log.Ctx(ctx)

	var count int64
	result := r.db.WithContext(ctx).Model(&domain.StreamModel{}).
		Where("owner_id = ? AND status = ?", ownerID, string(domain.StreamStatusLive)).
		Count(&count)
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldUserID, ownerID).Msg("failed to count live streams")
	}
	return int(count), result.Error
}

// UpdateViewers records the current viewer count, tracking the peak.
func (r *GormStreamRepository) UpdateViewers(ctx context.Context, id string, viewers int) error {
	l := log.Ctx(ctx)

	result := r.db.WithContext(ctx).Model(&domain.StreamModel{}).
		Where("id = ?", id).
		Update("viewers", viewers)
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldStreamID, id).Msg("failed to update viewer count")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrStreamNotFound
	}

	// Peak only moves up; a separate guarded update keeps this portable
	// across drivers.
	if err := r.db.WithContext(ctx).Model(&domain.StreamModel{}).
		Where("id = ? AND peak_viewers < ?", id, viewers).
		Update("peak_viewers", viewers).Error; err != nil {
		l.Error().Err(err).Str(log.FieldStreamID, id).Msg("failed to update peak viewers")
		return err
	}
	return nil
}

// End transitions a live stream to ended.
func (r *GormStreamRepository) End(ctx context.Context, id string) error {
	l := log.Ctx(ctx)

	now := time.Now()
	result := r.db.WithContext(ctx).Model(&domain.StreamModel{}).
		Where("id = ? AND status = ?", id, string(domain.StreamStatusLive)).
		Updates(map[string]interface{}{
			"status":   string(domain.StreamStatusEnded),
			"ended_at": now,
			"viewers":  0,
		})
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldStreamID, id).Msg("failed to end stream in db")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrStreamNotFound
	}
	l.Debug().Str(log.FieldStreamID, id).Msg("stream ended in db")
	return nil
}
