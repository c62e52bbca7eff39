package pubsub

import "fmt"

// Channel naming conventions for the chat system.
const (
	// ChannelStreamChat carries chat envelopes and stream lifecycle
	// control events for one stream.
	ChannelStreamChat = "chat:stream:%s"
)

// Event types carried on a stream's chat channel.
const (
	EventChatMessage = "chat_message"
	EventStreamEnded = "stream_ended"
)

// StreamChatChannel returns the channel name for a stream's chat events.
func StreamChatChannel(streamID string) string {
	return fmt.Sprintf(ChannelStreamChat, streamID)
}

// StreamEndedPayload is sent when a stream has ended and chat closes.
type StreamEndedPayload struct {
	StreamID string `json:"stream_id"`
	Reason   string `json:"reason,omitempty"` // "manual", "disconnect"
}
