package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Worldstreet-team/xtreme-livestream/internal/chatview"
	"github.com/Worldstreet-team/xtreme-livestream/internal/config"
	"github.com/Worldstreet-team/xtreme-livestream/internal/domain"
	"github.com/Worldstreet-team/xtreme-livestream/pkg/log"
)

// Client is one websocket chat connection, owning its reconciling view.
type Client struct {
	ID       string
	StreamID string
	Identity domain.Identity
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	View     *chatview.View
	config   config.WebSocketConfig

	// sendMu serializes queueing against closeSend. Frames are queued
	// from several goroutines (forwarder, state reporter, read pump),
	// so the channel may only close under this lock.
	sendMu     sync.Mutex
	sendClosed bool
}

func NewClient(id string, h *Hub, conn *websocket.Conn, identity domain.Identity, streamID string, view *chatview.View, cfg config.WebSocketConfig) *Client {
	return &Client{
		ID:       id,
		StreamID: streamID,
		Identity: identity,
		Hub:      h,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		View:     view,
		config:   cfg,
	}
}

// ReadPump reads client frames until the connection drops, passing
// each to handler.
func (c *Client) ReadPump(handler func(*Client, []byte)) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.L().Debug().Err(err).Str(log.FieldClientID, c.ID).Msg("websocket read error")
			}
			break
		}
		handler(c, message)
	}
}

// WritePump drains the send queue to the socket and keeps the
// connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ForwardUpdates pushes every view feed addition to the socket until
// the view closes.
func (c *Client) ForwardUpdates() {
	for msg := range c.View.Updates() {
		c.SendJSON(outboundFrame{Type: "message", Message: &msg})
	}
}

// SendJSON queues one frame, dropping it if the client is not keeping up.
func (c *Client) SendJSON(frame interface{}) {
	data, err := json.Marshal(frame)
	if err != nil {
		log.L().Warn().Err(err).Str(log.FieldClientID, c.ID).Msg("failed to marshal outbound frame")
		return
	}
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

// closeSend shuts the send queue exactly once. Late SendJSON calls
// become no-ops instead of sends on a closed channel.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return
	}
	c.sendClosed = true
	close(c.Send)
}

// SendState reports a view state transition to the client.
func (c *Client) SendState(state string) {
	c.SendJSON(outboundFrame{Type: "state", State: state})
}

// SendError reports a rejected command to the client.
func (c *Client) SendError(code, message string) {
	c.SendJSON(outboundFrame{Type: "error", Error: &frameError{Code: code, Message: message}})
}

type outboundFrame struct {
	Type    string              `json:"type"`
	Message *domain.ChatMessage `json:"message,omitempty"`
	State   string              `json:"state,omitempty"`
	Error   *frameError         `json:"error,omitempty"`
}

type frameError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
