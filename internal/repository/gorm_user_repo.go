package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Worldstreet-team/xtreme-livestream/internal/domain"
	"github.com/Worldstreet-team/xtreme-livestream/pkg/log"
)

// GormUserRepository implements UserRepository using GORM.
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GORM-based user repository.
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user profile.
func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	l := log.Ctx(ctx)

	user.ID = uuid.New().String()

	model := domain.UserToModel(user)
	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		l.Error().Err(result.Error).Msg("failed to create user in db")
		return result.Error
	}

	user.CreatedAt = model.CreatedAt
	l.Debug().Str(log.FieldUserID, user.ID).Msg("user created in db")
	return nil
}

// GetByID retrieves a user by ID.
func (r *GormUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getBy(ctx, "id = ?", id)
}

// GetByAuthUserID retrieves a user by the id carried in auth tokens.
func (r *GormUserRepository) GetByAuthUserID(ctx context.Context, authUserID string) (*domain.User, error) {
	return r.getBy(ctx, "auth_user_id = ?", authUserID)
}

// GetByUsername retrieves a user by username.
func (r *GormUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getBy(ctx, "username = ?", username)
}

func (r *GormUserRepository) getBy(ctx context.Context, query string, arg string) (*domain.User, error) {
	var model domain.UserModel
	result := r.db.WithContext(ctx).First(&model, query, arg)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		log.Ctx(ctx).Error().Err(result.Error).Msg("failed to get user from db")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// UpdateSettings replaces a user's chat settings.
func (r *GormUserRepository) UpdateSettings(ctx context.Context, id string, settings domain.ChatSettings) error {
	l := log.Ctx(ctx)

	result := r.db.WithContext(ctx).Model(&domain.UserModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"slow_mode":        settings.SlowMode,
			"subscriber_only":  settings.SubscriberOnly,
			"profanity_filter": settings.ProfanityFilter,
			"auto_record":      settings.AutoRecord,
		})
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldUserID, id).Msg("failed to update chat settings in db")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	l.Debug().Str(log.FieldUserID, id).Msg("chat settings updated in db")
	return nil
}
