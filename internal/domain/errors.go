package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrChatDisabled is returned when composing on a stream that is
	// not live. Inbound live events are ignored in the same state.
	ErrChatDisabled = errors.New("chat is disabled: stream is not live")

	// ErrRateLimited is returned when a send violates the slow-mode
	// cooldown. No side effects have happened.
	ErrRateLimited = errors.New("slow mode: sending too fast")

	// ErrStoreUnavailable wraps history store read/write failures.
	// Reads degrade to an empty page; writes are logged and dropped.
	ErrStoreUnavailable = errors.New("history store unavailable")

	// ErrStreamNotFound is returned for unknown stream ids.
	ErrStreamNotFound = errors.New("stream not found")

	// ErrStreamEnded is returned when an operation requires a live
	// stream but the stream has already ended.
	ErrStreamEnded = errors.New("stream has already ended")

	// ErrNotStreamOwner is returned when a non-owner attempts an
	// owner-only operation.
	ErrNotStreamOwner = errors.New("not the stream owner")

	// ErrUserNotFound is returned for unknown user ids or usernames.
	ErrUserNotFound = errors.New("user not found")
)

// ValidationError reports malformed composition input. It is rejected
// before any network call and is the only adapter-independent error a
// send can surface besides ErrRateLimited and ErrChatDisabled.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
