// Package service provides business logic for the A2UI playground.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/a2ui-playground/internal/model"
	"github.com/capitalize-ai/a2ui-playground/internal/store"
	"github.com/capitalize-ai/a2ui-playground/internal/timeline"
	"github.com/capitalize-ai/a2ui-playground/pkg/logger"
	"github.com/capitalize-ai/a2ui-playground/pkg/metrics"
)

// ConversationService handles conversation operations.
type ConversationService struct {
	store  store.EventStore
	logger *logger.Logger
}

// NewConversationService creates a new conversation service.
func NewConversationService(events store.EventStore, log *logger.Logger) *ConversationService {
	return &ConversationService{
		store:  events,
		logger: log.Named("conversations"),
	}
}

// Create creates a new, empty conversation.
func (s *ConversationService) Create(ctx context.Context) (*model.ConversationSummary, error) {
	id := uuid.Must(uuid.NewV7()).String()
	if err := s.store.Create(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	metrics.ConversationsTotal.Inc()
	s.logger.Info("conversation created", zap.String("conversation_id", id))

	summaries, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	for i := range summaries {
		if summaries[i].ID == id {
			return &summaries[i], nil
		}
	}
	return &model.ConversationSummary{ID: id}, nil
}

// List returns every conversation, most recently active first.
func (s *ConversationService) List(ctx context.Context) (*model.ListConversationsResponse, error) {
	convs, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	if convs == nil {
		convs = []model.ConversationSummary{}
	}
	return &model.ListConversationsResponse{Conversations: convs, Total: len(convs)}, nil
}

// Get returns the summary of one conversation.
func (s *ConversationService) Get(ctx context.Context, conversationID string) (*model.ConversationSummary, error) {
	ok, err := s.store.Exists(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up conversation: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, store.ErrNotFound)
	}

	convs, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	for i := range convs {
		if convs[i].ID == conversationID {
			return &convs[i], nil
		}
	}
	return nil, fmt.Errorf("conversation %s: %w", conversationID, store.ErrNotFound)
}

// Events returns the raw event log. An unknown conversation has an empty log.
func (s *ConversationService) Events(ctx context.Context, conversationID string) ([]model.Event, error) {
	events, err := s.store.Load(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	if events == nil {
		events = []model.Event{}
	}
	return events, nil
}

// View returns the conversation as it looked at cursor, or live when cursor
// is nil.
func (s *ConversationService) View(ctx context.Context, conversationID string, cursor *int) (*model.ViewResponse, error) {
	events, err := s.Events(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	session := timeline.NewSession(conversationID, events)
	if cursor != nil {
		if err := session.SetCursor(*cursor); err != nil {
			var rerr *timeline.RangeError
			if errors.As(err, &rerr) {
				return nil, &ValidationError{Field: "cursor", Message: rerr.Error()}
			}
			return nil, err
		}
	}

	return &model.ViewResponse{
		ConversationID: conversationID,
		Cursor:         session.Cursor(),
		Length:         session.Len(),
		Live:           session.Live(),
		Messages:       session.View(),
	}, nil
}

// Clear empties a conversation's log and keeps the conversation.
func (s *ConversationService) Clear(ctx context.Context, conversationID string) error {
	if err := s.store.Clear(ctx, conversationID); err != nil {
		return fmt.Errorf("failed to clear conversation: %w", err)
	}
	s.logger.Info("conversation cleared", zap.String("conversation_id", conversationID))
	return nil
}

// Delete removes a conversation and its events.
func (s *ConversationService) Delete(ctx context.Context, conversationID string) error {
	if err := s.store.Delete(ctx, conversationID); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	s.logger.Info("conversation deleted", zap.String("conversation_id", conversationID))
	return nil
}
