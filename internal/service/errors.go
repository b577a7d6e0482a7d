package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned before any event is appended when no
	// completion credentials are set.
	ErrNotConfigured = errors.New("completion API is not configured")

	// ErrTurnInFlight is returned when a turn is already running for the
	// conversation.
	ErrTurnInFlight = errors.New("a turn is already in progress for this conversation")
)

// ValidationError reports a rejected input: an empty utterance, a bad cursor
// or malformed settings.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
