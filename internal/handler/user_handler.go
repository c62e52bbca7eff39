package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Worldstreet-team/xtreme-livestream/internal/domain"
	"github.com/Worldstreet-team/xtreme-livestream/internal/service"
	"github.com/Worldstreet-team/xtreme-livestream/pkg/log"
	"github.com/Worldstreet-team/xtreme-livestream/pkg/response"
)

// UserHandler handles profile and chat settings requests.
type UserHandler struct {
	users service.UserService
	auth  *AuthMiddleware
}

func NewUserHandler(users service.UserService, auth *AuthMiddleware) *UserHandler {
	return &UserHandler{users: users, auth: auth}
}

// RegisterRoutes registers user routes.
func (h *UserHandler) RegisterRoutes(api *gin.RouterGroup) {
	users := api.Group("/users")
	{
		users.GET("/me", h.auth.RequireAuth(), h.GetMe)
		users.PATCH("/me/settings", h.auth.RequireAuth(), h.UpdateSettings)
		users.GET("/:username", h.GetByUsername)
	}
}

// GetMe returns the caller's profile, creating it on first contact.
func (h *UserHandler) GetMe(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	identity, ok := GetIdentity(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	user, err := h.users.GetOrCreate(ctx, identity)
	if err != nil {
		l.Error().Err(err).Msg("failed to load profile")
		response.InternalError(c, "failed to load profile")
		return
	}

	response.Success(c, user)
}

// GetByUsername returns a public profile.
func (h *UserHandler) GetByUsername(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	username := c.Param("username")
	user, err := h.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			response.NotFound(c, "user not found")
			return
		}
		l.Error().Err(err).Msg("failed to get user")
		response.InternalError(c, "failed to get user")
		return
	}

	response.Success(c, user)
}

// UpdateSettings patches the caller's chat settings.
func (h *UserHandler) UpdateSettings(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	identity, ok := GetIdentity(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req domain.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.users.UpdateSettings(ctx, identity, &req)
	if err != nil {
		l.Error().Err(err).Msg("failed to update settings")
		response.InternalError(c, "failed to update settings")
		return
	}

	response.Success(c, user)
}
