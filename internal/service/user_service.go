package service

import (
	"context"
	"errors"

	"github.com/Worldstreet-team/xtreme-livestream/internal/audit"
	"github.com/Worldstreet-team/xtreme-livestream/internal/domain"
	"github.com/Worldstreet-team/xtreme-livestream/internal/repository"
)

type userServiceImpl struct {
	repo repository.UserRepository
}

// NewUserService creates a user profile service.
func NewUserService(repo repository.UserRepository) UserService {
	return &userServiceImpl{repo: repo}
}

// GetOrCreate returns the profile for a verified identity, creating it
// on first contact. Profanity filtering defaults on for new profiles.
func (s *userServiceImpl) GetOrCreate(ctx context.Context, identity domain.Identity) (*domain.User, error) {
	user, err := s.repo.GetByAuthUserID(ctx, identity.UserID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	user = &domain.User{
		AuthUserID:  identity.UserID,
		Username:    identity.Username,
		DisplayName: identity.Username,
		Avatar:      identity.Avatar,
		Settings: domain.ChatSettings{
			ProfanityFilter: true,
		},
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetByUsername retrieves a public profile.
func (s *userServiceImpl) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

// GetChatSettings returns chat settings by auth id. A missing profile
// yields the defaults rather than an error.
func (s *userServiceImpl) GetChatSettings(ctx context.Context, authUserID string) (domain.ChatSettings, error) {
	user, err := s.repo.GetByAuthUserID(ctx, authUserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ChatSettings{ProfanityFilter: true}, nil
		}
		return domain.ChatSettings{}, err
	}
	return user.Settings, nil
}

// UpdateSettings patches the caller's chat settings; absent request
// fields keep their current values.
func (s *userServiceImpl) UpdateSettings(ctx context.Context, identity domain.Identity, req *domain.UpdateSettingsRequest) (*domain.User, error) {
	user, err := s.GetOrCreate(ctx, identity)
	if err != nil {
		return nil, err
	}

	settings := user.Settings
	if req.SlowMode != nil {
		settings.SlowMode = *req.SlowMode
	}
	if req.SubscriberOnly != nil {
		settings.SubscriberOnly = *req.SubscriberOnly
	}
	if req.ProfanityFilter != nil {
		settings.ProfanityFilter = *req.ProfanityFilter
	}
	if req.AutoRecord != nil {
		settings.AutoRecord = *req.AutoRecord
	}

	if err := s.repo.UpdateSettings(ctx, user.ID, settings); err != nil {
		return nil, err
	}
	user.Settings = settings

	audit.Log(ctx, audit.ActionUpdateSettings, user.ID, "chat settings updated")
	return user, nil
}
