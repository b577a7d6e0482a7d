// Package store persists conversation event logs and the current settings.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/capitalize-ai/a2ui-playground/internal/model"
)

var (
	// ErrPersistence wraps every failure of the underlying storage.
	ErrPersistence = errors.New("persistence error")

	// ErrNotFound is returned when a conversation or record does not exist.
	ErrNotFound = errors.New("not found")
)

// EventStore is an ordered, append-only log of events per conversation.
//
// Append is atomic per conversation: after it returns, Load yields the
// previous log with the new event at the end. Load never fails for an
// unknown conversation; it returns an empty log.
type EventStore interface {
	// Create registers an empty conversation. Creating an existing one is a no-op.
	Create(ctx context.Context, conversationID string) error

	// Append assigns the event's Seq, clamps its Timestamp so it never goes
	// backwards, and durably writes it before returning.
	Append(ctx context.Context, conversationID string, event *model.Event) error

	// Load returns the conversation's events ordered by Seq.
	Load(ctx context.Context, conversationID string) ([]model.Event, error)

	// List returns all conversations, most recent activity first.
	List(ctx context.Context) ([]model.ConversationSummary, error)

	// Exists reports whether a conversation has been created.
	Exists(ctx context.Context, conversationID string) (bool, error)

	// Clear removes every event of a conversation but keeps the conversation.
	Clear(ctx context.Context, conversationID string) error

	// Delete removes the conversation and its events.
	Delete(ctx context.Context, conversationID string) error

	Ping(ctx context.Context) error
	Close() error
}

// ConfigStore holds the single current settings record.
type ConfigStore interface {
	// GetSettings returns ErrNotFound when nothing has been stored yet.
	GetSettings(ctx context.Context) (*model.Settings, error)
	PutSettings(ctx context.Context, settings *model.Settings) error
}

// Store is a backend serving both namespaces.
type Store interface {
	EventStore
	ConfigStore
	Backend() string
}

func persistenceErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

// clampTimestamp keeps timestamps non-decreasing within a conversation.
func clampTimestamp(ts, last time.Time) time.Time {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	if ts.Before(last) {
		return last
	}
	return ts
}

// SeedSettings stores defaults when the config namespace is still empty.
// It reports whether defaults were written.
func SeedSettings(ctx context.Context, cs ConfigStore, defaults model.Settings) (bool, error) {
	_, err := cs.GetSettings(ctx)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	if err := cs.PutSettings(ctx, &defaults); err != nil {
		return false, err
	}
	return true, nil
}
