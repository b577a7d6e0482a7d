package middleware

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidateConversationID validates a conversation ID.
func ValidateConversationID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid conversation ID format")
	}
	return nil
}

// ValidateModelName validates a model identifier.
func ValidateModelName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("model cannot be empty")
	}
	if len(name) > 128 {
		return errors.New("model exceeds maximum length")
	}
	if !utf8.ValidString(name) {
		return errors.New("model must be valid UTF-8")
	}
	return nil
}

// ParseCursor parses an optional cursor query value. An empty value means live.
func ParseCursor(raw string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	c, err := strconv.Atoi(raw)
	if err != nil {
		return nil, errors.New("cursor must be an integer")
	}
	if c < -1 {
		return nil, errors.New("cursor must be -1 or greater")
	}
	return &c, nil
}
