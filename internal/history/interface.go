package history

import (
	"context"

	"github.com/Worldstreet-team/xtreme-livestream/internal/domain"
)

const (
	// DefaultLimit is the page size used when the caller does not ask
	// for one.
	DefaultLimit = 50
	// MaxLimit bounds a single page fetch.
	MaxLimit = 200
)

// Store is the durable append-only log of chat messages per stream.
//
// Append assigns the durable id and server timestamp. It is safe to
// call after the message has already been displayed to its sender:
// a failed append never retracts an optimistic echo.
//
// FetchPage returns up to limit messages in chronological ascending
// order. When beforeID is set, only messages older than that id are
// returned; internally the store queries newest-first and reverses.
type Store interface {
	Append(ctx context.Context, draft domain.MessageDraft) (*domain.ChatMessage, error)
	FetchPage(ctx context.Context, streamID string, limit int, beforeID string) ([]domain.ChatMessage, error)
	Close() error
}

// ClampLimit normalises a requested page size into [1, MaxLimit].
func ClampLimit(limit int) int {
	if limit < 1 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Reverse flips a newest-first page into chronological ascending order
// in place and returns it.
func Reverse(messages []domain.ChatMessage) []domain.ChatMessage {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages
}
