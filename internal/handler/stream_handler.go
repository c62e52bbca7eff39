package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Worldstreet-team/xtreme-livestream/internal/domain"
	"github.com/Worldstreet-team/xtreme-livestream/internal/service"
	"github.com/Worldstreet-team/xtreme-livestream/pkg/log"
	"github.com/Worldstreet-team/xtreme-livestream/pkg/response"
)

// StreamHandler handles stream lifecycle requests.
type StreamHandler struct {
	streams service.StreamService
	auth    *AuthMiddleware
}

func NewStreamHandler(streams service.StreamService, auth *AuthMiddleware) *StreamHandler {
	return &StreamHandler{streams: streams, auth: auth}
}

// RegisterRoutes registers stream routes.
func (h *StreamHandler) RegisterRoutes(api *gin.RouterGroup) {
	streams := api.Group("/streams")
	{
		streams.GET("", h.ListStreams)
		streams.GET("/:id", h.GetStream)

		streams.POST("", h.auth.RequireAuth(), h.CreateStream)
		streams.POST("/:id/end", h.auth.RequireAuth(), h.EndStream)
	}
}

// CreateStream starts a new live stream for the caller.
func (h *StreamHandler) CreateStream(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	identity, ok := GetIdentity(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req domain.CreateStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind create stream request")
		response.BadRequest(c, err.Error())
		return
	}

	stream, err := h.streams.Create(ctx, identity, &req)
	if err != nil {
		l.Error().Err(err).Msg("failed to create stream")
		response.InternalError(c, "failed to create stream")
		return
	}

	response.Created(c, stream)
}

// GetStream retrieves a stream by id.
func (h *StreamHandler) GetStream(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	id := c.Param("id")
	stream, err := h.streams.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrStreamNotFound) {
			response.NotFound(c, "stream not found")
			return
		}
		l.Error().Err(err).Str(log.FieldStreamID, id).Msg("failed to get stream")
		response.InternalError(c, "failed to get stream")
		return
	}

	response.Success(c, stream)
}

// ListStreams lists streams with pagination.
func (h *StreamHandler) ListStreams(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.ListStreamsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	result, err := h.streams.List(ctx, &req)
	if err != nil {
		l.Error().Err(err).Msg("failed to list streams")
		response.InternalError(c, "failed to list streams")
		return
	}

	response.Success(c, result)
}

// EndStream ends a live stream the caller owns.
func (h *StreamHandler) EndStream(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	identity, ok := GetIdentity(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	id := c.Param("id")
	err := h.streams.End(ctx, identity, id)
	switch {
	case err == nil:
		response.Success(c, gin.H{"id": id, "status": string(domain.StreamStatusEnded)})
	case errors.Is(err, domain.ErrStreamNotFound):
		response.NotFound(c, "stream not found")
	case errors.Is(err, domain.ErrNotStreamOwner):
		response.Forbidden(c, "only the owner can end a stream")
	case errors.Is(err, domain.ErrStreamEnded):
		response.Error(c, 409, response.CodeStreamNotLive, "stream has already ended")
	default:
		l.Error().Err(err).Str(log.FieldStreamID, id).Msg("failed to end stream")
		response.InternalError(c, "failed to end stream")
	}
}
