package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Worldstreet-team/xtreme-livestream/internal/domain"
	"github.com/Worldstreet-team/xtreme-livestream/internal/service"
	"github.com/Worldstreet-team/xtreme-livestream/pkg/log"
	"github.com/Worldstreet-team/xtreme-livestream/pkg/response"
)

// ChatHandler handles chat history reads and REST sends.
type ChatHandler struct {
	chat service.ChatService
	auth *AuthMiddleware
}

func NewChatHandler(chat service.ChatService, auth *AuthMiddleware) *ChatHandler {
	return &ChatHandler{chat: chat, auth: auth}
}

// RegisterRoutes registers chat routes.
func (h *ChatHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/streams/:id/chat", h.GetHistory)
	api.POST("/streams/:id/chat", h.auth.RequireAuth(), h.SendMessage)
}

// GetHistory returns one chronological page of chat history. The
// before parameter pages backward: pass the previous page's nextCursor
// to fetch older messages.
func (h *ChatHandler) GetHistory(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	streamID := c.Param("id")
	beforeID := c.Query("before")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(c, "limit must be an integer")
			return
		}
		limit = parsed
	}

	page, err := h.chat.GetHistory(ctx, streamID, beforeID, limit)
	if err != nil {
		l.Error().Err(err).Str(log.FieldStreamID, streamID).Msg("failed to get chat history")
		response.Error(c, 503, response.CodeStoreUnavailable, "chat history unavailable")
		return
	}

	response.Success(c, page)
}

// sendMessageRequest is the REST composition body. Type discriminates
// the message kind; exactly the fields for that kind are consulted.
type sendMessageRequest struct {
	Type        string `json:"type" binding:"required"`
	Content     string `json:"content"`
	Emoji       string `json:"emoji"`
	TipAmount   string `json:"tipAmount"`
	TipCurrency string `json:"tipCurrency"`
}

func (r *sendMessageRequest) payload() (domain.Payload, error) {
	kind, err := domain.ParseKind(r.Type)
	if err != nil {
		return nil, err
	}
	switch kind {
	case domain.KindText:
		return domain.TextPayload{Body: r.Content}, nil
	case domain.KindReaction:
		emoji := r.Emoji
		if emoji == "" {
			emoji = r.Content
		}
		return domain.ReactionPayload{Emoji: emoji}, nil
	default:
		return domain.TipPayload{Amount: r.TipAmount, Currency: r.TipCurrency}, nil
	}
}

// SendMessage validates and posts a message to a live stream.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	identity, ok := GetIdentity(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	streamID := c.Param("id")

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	payload, err := req.payload()
	if err != nil {
		response.Error(c, 400, response.CodeValidation, err.Error())
		return
	}

	msg, err := h.chat.SendMessage(ctx, identity, streamID, payload)
	switch {
	case err == nil:
		response.Created(c, msg)
	case domain.IsValidation(err):
		response.Error(c, 400, response.CodeValidation, err.Error())
	case errors.Is(err, domain.ErrStreamNotFound):
		response.NotFound(c, "stream not found")
	case errors.Is(err, domain.ErrChatDisabled):
		response.Error(c, 403, response.CodeChatDisabled, "chat is disabled: stream is not live")
	case errors.Is(err, domain.ErrRateLimited):
		response.TooManyRequests(c, "slow mode is on: wait before sending again")
	case errors.Is(err, domain.ErrStoreUnavailable):
		response.Error(c, 503, response.CodeStoreUnavailable, "chat is temporarily unavailable")
	default:
		l.Error().Err(err).Str(log.FieldStreamID, streamID).Msg("failed to send chat message")
		response.InternalError(c, "failed to send message")
	}
}
