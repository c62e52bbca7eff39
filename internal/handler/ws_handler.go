package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Worldstreet-team/xtreme-livestream/internal/audit"
	"github.com/Worldstreet-team/xtreme-livestream/internal/chatview"
	"github.com/Worldstreet-team/xtreme-livestream/internal/config"
	"github.com/Worldstreet-team/xtreme-livestream/internal/domain"
	"github.com/Worldstreet-team/xtreme-livestream/internal/fanout"
	"github.com/Worldstreet-team/xtreme-livestream/internal/history"
	"github.com/Worldstreet-team/xtreme-livestream/internal/hub"
	"github.com/Worldstreet-team/xtreme-livestream/internal/service"
	"github.com/Worldstreet-team/xtreme-livestream/pkg/log"
	"github.com/Worldstreet-team/xtreme-livestream/pkg/response"
)

// WsHandler upgrades chat connections. Each accepted connection gets
// its own reconciling view: history backfill first, then live events.
type WsHandler struct {
	store    history.Store
	channel  fanout.Channel
	streams  service.StreamService
	users    service.UserService
	hub      *hub.Hub
	auth     *AuthMiddleware
	wsCfg    config.WebSocketConfig
	chatCfg  config.ChatConfig
	upgrader websocket.Upgrader
}

func NewWsHandler(
	store history.Store,
	channel fanout.Channel,
	streams service.StreamService,
	users service.UserService,
	h *hub.Hub,
	auth *AuthMiddleware,
	wsCfg config.WebSocketConfig,
	chatCfg config.ChatConfig,
) *WsHandler {
	return &WsHandler{
		store:   store,
		channel: channel,
		streams: streams,
		users:   users,
		hub:     h,
		auth:    auth,
		wsCfg:   wsCfg,
		chatCfg: chatCfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// RegisterRoutes registers the chat websocket route.
func (h *WsHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws/streams/:id/chat", h.auth.RequireAuth(), h.Connect)
}

// Connect joins the caller to a stream's chat.
func (h *WsHandler) Connect(c *gin.Context) {
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
		l.Error().Err(err).Str(log.FieldStreamID, streamID).Msg("failed to get stream for chat join")
		response.InternalError(c, "failed to join chat")
		return
	}

	settings, err := h.users.GetChatSettings(ctx, stream.OwnerID)
	if err != nil {
		l.Warn().Err(err).Str(log.FieldStreamID, streamID).Msg("failed to load chat settings, using defaults")
		settings = domain.ChatSettings{}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	view := chatview.New(h.store, h.channel, identity, streamID, chatview.Options{
		HistoryLimit:     h.chatCfg.HistoryLimit,
		Live:             stream.IsLive(),
		SlowMode:         settings.SlowMode,
		SlowModeCooldown: h.chatCfg.SlowModeCooldown,
	})

	client := hub.NewClient(uuid.New().String(), h.hub, conn, identity, streamID, view, h.wsCfg)
	h.hub.Register(client)
	audit.LogWithDetail(ctx, audit.ActionJoinChat, identity.UserID, streamID, "viewer joined chat")

	go client.WritePump()
	go client.ForwardUpdates()
	go func() {
		viewCtx := log.WithStream(log.WithLogger(context.Background(), l), streamID)
		view.Start(viewCtx)
		client.SendState(string(view.State()))
	}()

	client.ReadPump(h.handleFrame)
}

// inboundFrame is a client command. Only message composition exists
// today; unknown types are rejected.
type inboundFrame struct {
	Type        string `json:"type"`
	Kind        string `json:"kind"`
	Content     string `json:"content"`
	Emoji       string `json:"emoji"`
	TipAmount   string `json:"tipAmount"`
	TipCurrency string `json:"tipCurrency"`
}

func (h *WsHandler) handleFrame(client *hub.Client, raw []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		client.SendError(response.CodeBadRequest, "malformed frame")
		return
	}
	if frame.Type != "message" {
		client.SendError(response.CodeBadRequest, "unknown frame type")
		return
	}

	req := sendMessageRequest{
		Type:        frame.Kind,
		Content:     frame.Content,
		Emoji:       frame.Emoji,
		TipAmount:   frame.TipAmount,
		TipCurrency: frame.TipCurrency,
	}
	payload, err := req.payload()
	if err != nil {
		client.SendError(response.CodeValidation, err.Error())
		return
	}

	sendCtx := log.WithStream(log.WithLogger(context.Background(), log.L()), client.StreamID)
	if _, err := client.View.Send(sendCtx, payload); err != nil {
		switch {
		case domain.IsValidation(err):
			client.SendError(response.CodeValidation, err.Error())
		case errors.Is(err, domain.ErrRateLimited):
			client.SendError(response.CodeRateLimited, "slow mode is on: wait before sending again")
		case errors.Is(err, domain.ErrChatDisabled):
			client.SendError(response.CodeChatDisabled, "chat is disabled: stream is not live")
		default:
			client.SendError(response.CodeInternalError, "failed to send message")
		}
	}
}
