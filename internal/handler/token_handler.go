package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Worldstreet-team/xtreme-livestream/internal/audit"
	"github.com/Worldstreet-team/xtreme-livestream/internal/domain"
	"github.com/Worldstreet-team/xtreme-livestream/internal/service"
	"github.com/Worldstreet-team/xtreme-livestream/internal/token"
	"github.com/Worldstreet-team/xtreme-livestream/pkg/log"
	"github.com/Worldstreet-team/xtreme-livestream/pkg/response"
)

// TokenHandler mints media room access tokens.
type TokenHandler struct {
	streams service.StreamService
	minter  *token.MediaMinter
	auth    *AuthMiddleware
}

func NewTokenHandler(streams service.StreamService, minter *token.MediaMinter, auth *AuthMiddleware) *TokenHandler {
	return &TokenHandler{streams: streams, minter: minter, auth: auth}
}

// RegisterRoutes registers token routes.
func (h *TokenHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/streams/:id/token", h.auth.RequireAuth(), h.MintToken)
}

// MintToken issues a media room token for the caller. Stream owners
// get publish rights, everyone else joins as a viewer.
func (h *TokenHandler) MintToken(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	identity, ok := GetIdentity(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	streamID := c.Param("id")
	stream, err := h.streams.Get(ctx, streamID)
	if err != nil {
		if errors.Is(err, domain.ErrStreamNotFound) {
			response.NotFound(c, "stream not found")
			return
		}
		l.Error().Err(err).Str(log.FieldStreamID, streamID).Msg("failed to get stream for token")
		response.InternalError(c, "failed to mint token")
		return
	}
	if !stream.IsLive() {
		response.Error(c, 409, response.CodeStreamNotLive, "stream is not live")
		return
	}

	canPublish := identity.UserID == stream.OwnerID
	minted, err := h.minter.Mint(stream.MediaRoomName, identity.UserID, identity.Username, canPublish)
	if err != nil {
		l.Error().Err(err).Str(log.FieldStreamID, streamID).Msg("failed to mint media token")
		response.InternalError(c, "failed to mint token")
		return
	}

	audit.LogWithDetail(ctx, audit.ActionMintToken, identity.UserID, streamID, "media token minted")
	response.Success(c, gin.H{
		"token":      minted,
		"room":       stream.MediaRoomName,
		"canPublish": canPublish,
	})
}
