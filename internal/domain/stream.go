package domain

import "time"

// StreamStatus represents a stream's lifecycle state.
type StreamStatus string

const (
	StreamStatusLive  StreamStatus = "live"
	StreamStatusEnded StreamStatus = "ended"
)

// Stream is the collaborator entity owning a chat channel. Its status
// gates composition: chat is disabled once a stream ends, though
// history reads remain valid.
type Stream struct {
	ID            string       `json:"id"`
	OwnerID       string       `json:"ownerId"`
	OwnerUsername string       `json:"ownerUsername"`
	Title         string       `json:"title"`
	Category      string       `json:"category,omitempty"`
	Tags          []string     `json:"tags,omitempty"`
	Thumbnail     string       `json:"thumbnail,omitempty"`
	Status        StreamStatus `json:"status"`
	MediaRoomName string       `json:"mediaRoomName"`
	Viewers       int          `json:"viewers"`
	PeakViewers   int          `json:"peakViewers"`
	StartedAt     time.Time    `json:"startedAt"`
	EndedAt       *time.Time   `json:"endedAt,omitempty"`
}

// IsLive reports whether chat composition is allowed.
func (s *Stream) IsLive() bool {
	return s.Status == StreamStatusLive
}

// CreateStreamRequest represents a create stream request.
type CreateStreamRequest struct {
	Title    string   `json:"title" binding:"required,min=1,max=100"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

// ListStreamsRequest represents a list streams request.
type ListStreamsRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Status   string `form:"status"`
}

// ListStreamsResponse represents a paginated list response.
type ListStreamsResponse struct {
	Streams    []Stream `json:"streams"`
	Total      int      `json:"total"`
	Page       int      `json:"page"`
	PageSize   int      `json:"pageSize"`
	TotalPages int      `json:"totalPages"`
}
