package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/capitalize-ai/a2ui-playground/internal/model"
	natsclient "github.com/capitalize-ai/a2ui-playground/internal/nats"
	"github.com/capitalize-ai/a2ui-playground/pkg/logger"
	"github.com/capitalize-ai/a2ui-playground/pkg/metrics"
)

const (
	conversationsBucket = "a2ui_conversations"
	configBucket        = "a2ui_config"
	settingsKey         = "current"
)

// JetStreamStore implements Store on NATS JetStream. Events live on one
// subject per conversation; the conversation index and the settings live in
// key-value buckets.
type JetStreamStore struct {
	streams       *natsclient.StreamManager
	conversations jetstream.KeyValue
	config        jetstream.KeyValue
	logger        *logger.Logger

	mu sync.Mutex
}

// NewJetStreamStore ensures the stream and buckets exist.
func NewJetStreamStore(ctx context.Context, streams *natsclient.StreamManager, log *logger.Logger) (*JetStreamStore, error) {
	if log == nil {
		log = logger.NewNop()
	}

	if err := streams.EnsureStream(ctx); err != nil {
		return nil, persistenceErr("ensure stream", err)
	}

	convs, err := streams.EnsureBucket(ctx, conversationsBucket, "A2UI conversation index")
	if err != nil {
		return nil, persistenceErr("ensure conversation bucket", err)
	}

	cfg, err := streams.EnsureBucket(ctx, configBucket, "A2UI settings")
	if err != nil {
		return nil, persistenceErr("ensure config bucket", err)
	}

	return &JetStreamStore{
		streams:       streams,
		conversations: convs,
		config:        cfg,
		logger:        log.Named("jetstream"),
	}, nil
}

// Backend returns "jetstream".
func (s *JetStreamStore) Backend() string { return "jetstream" }

func checkID(conversationID string) error {
	if !natsclient.ValidToken(conversationID) {
		return fmt.Errorf("invalid conversation id %q", conversationID)
	}
	return nil
}

func (s *JetStreamStore) summary(ctx context.Context, conversationID string) (*model.ConversationSummary, error) {
	entry, err := s.conversations.Get(ctx, conversationID)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}
	if err != nil {
		return nil, persistenceErr("get conversation", err)
	}

	var sum model.ConversationSummary
	if err := json.Unmarshal(entry.Value(), &sum); err != nil {
		return nil, persistenceErr("decode conversation", err)
	}
	return &sum, nil
}

func (s *JetStreamStore) putSummary(ctx context.Context, sum *model.ConversationSummary) error {
	data, err := json.Marshal(sum)
	if err != nil {
		return persistenceErr("encode conversation", err)
	}
	if _, err := s.conversations.Put(ctx, sum.ID, data); err != nil {
		return persistenceErr("put conversation", err)
	}
	return nil
}

func (s *JetStreamStore) ensureSummary(ctx context.Context, conversationID string) (*model.ConversationSummary, error) {
	sum, err := s.summary(ctx, conversationID)
	if err == nil {
		return sum, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	sum = &model.ConversationSummary{ID: conversationID, CreatedAt: time.Now().UTC()}
	if err := s.putSummary(ctx, sum); err != nil {
		return nil, err
	}
	return sum, nil
}

// Create registers an empty conversation.
func (s *JetStreamStore) Create(ctx context.Context, conversationID string) error {
	if err := checkID(conversationID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.ensureSummary(ctx, conversationID)
	return err
}

// Append publishes the event and waits for the stream acknowledgement.
// Seq and the timestamp floor come from the last message on the subject.
func (s *JetStreamStore) Append(ctx context.Context, conversationID string, event *model.Event) error {
	if err := checkID(conversationID); err != nil {
		return err
	}
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	sum, err := s.ensureSummary(ctx, conversationID)
	if err != nil {
		return err
	}

	subject := natsclient.EventSubject(conversationID)

	seq := 0
	var floor time.Time
	last, err := s.streams.LastMessage(ctx, subject)
	if err != nil {
		return persistenceErr("read log tip", err)
	}
	if last != nil {
		var prev model.Event
		if err := json.Unmarshal(last.Data, &prev); err != nil {
			return persistenceErr("decode log tip", err)
		}
		seq = prev.Seq + 1
		floor = prev.Timestamp
	}

	stored := *event
	stored.ConversationID = conversationID
	stored.Seq = seq
	stored.Timestamp = clampTimestamp(event.Timestamp, floor)

	data, err := json.Marshal(&stored)
	if err != nil {
		return persistenceErr("encode event", err)
	}
	if _, err := s.streams.Publish(ctx, subject, data); err != nil {
		return persistenceErr("append event", err)
	}

	*event = stored

	// The event is durable once published. The index entry is rebuilt from
	// the log tip on the next append, so a failed update is only logged.
	sum.EventCount = seq + 1
	sum.LastEventAt = stored.Timestamp
	if err := s.putSummary(ctx, sum); err != nil {
		s.logger.WithConversation(conversationID).Warn("failed to update conversation index",
			zap.Int("seq", seq),
			zap.Error(err),
		)
	}

	metrics.RecordEventAppended(s.Backend(), string(event.Type), string(event.Source), time.Since(start).Seconds())
	return nil
}

// Load returns the conversation's events in stream order.
func (s *JetStreamStore) Load(ctx context.Context, conversationID string) ([]model.Event, error) {
	if err := checkID(conversationID); err != nil {
		return nil, err
	}

	payloads, err := s.streams.Fetch(ctx, natsclient.EventSubject(conversationID))
	if err != nil {
		return nil, persistenceErr("load events", err)
	}

	events := make([]model.Event, 0, len(payloads))
	for _, data := range payloads {
		var e model.Event
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, persistenceErr("decode event", err)
		}
		events = append(events, e)
	}
	return events, nil
}

// List returns every indexed conversation, most recent activity first.
func (s *JetStreamStore) List(ctx context.Context) ([]model.ConversationSummary, error) {
	keys, err := s.conversations.Keys(ctx)
	if errors.Is(err, jetstream.ErrNoKeysFound) {
		return []model.ConversationSummary{}, nil
	}
	if err != nil {
		return nil, persistenceErr("list conversations", err)
	}

	out := make([]model.ConversationSummary, 0, len(keys))
	for _, key := range keys {
		sum, err := s.summary(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *sum)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].LastEventAt.Equal(out[j].LastEventAt) {
			return out[i].LastEventAt.After(out[j].LastEventAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Exists reports whether the conversation is indexed.
func (s *JetStreamStore) Exists(ctx context.Context, conversationID string) (bool, error) {
	if err := checkID(conversationID); err != nil {
		return false, err
	}
	_, err := s.summary(ctx, conversationID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Clear purges the conversation's subject and resets its index entry.
func (s *JetStreamStore) Clear(ctx context.Context, conversationID string) error {
	if err := checkID(conversationID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sum, err := s.summary(ctx, conversationID)
	if err != nil {
		return err
	}
	if err := s.streams.Purge(ctx, natsclient.EventSubject(conversationID)); err != nil {
		return persistenceErr("clear conversation", err)
	}

	sum.EventCount = 0
	return s.putSummary(ctx, sum)
}

// Delete purges the conversation's subject and removes it from the index.
func (s *JetStreamStore) Delete(ctx context.Context, conversationID string) error {
	if err := checkID(conversationID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.summary(ctx, conversationID); err != nil {
		return err
	}
	if err := s.streams.Purge(ctx, natsclient.EventSubject(conversationID)); err != nil {
		return persistenceErr("delete conversation", err)
	}
	if err := s.conversations.Delete(ctx, conversationID); err != nil {
		return persistenceErr("delete conversation", err)
	}
	return nil
}

// GetSettings returns the stored settings.
func (s *JetStreamStore) GetSettings(ctx context.Context) (*model.Settings, error) {
	entry, err := s.config.Get(ctx, settingsKey)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, fmt.Errorf("settings: %w", ErrNotFound)
	}
	if err != nil {
		return nil, persistenceErr("get settings", err)
	}

	var settings model.Settings
	if err := json.Unmarshal(entry.Value(), &settings); err != nil {
		return nil, persistenceErr("decode settings", err)
	}
	return &settings, nil
}

// PutSettings replaces the stored settings.
func (s *JetStreamStore) PutSettings(ctx context.Context, settings *model.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return persistenceErr("encode settings", err)
	}
	if _, err := s.config.Put(ctx, settingsKey, data); err != nil {
		return persistenceErr("put settings", err)
	}
	return nil
}

// Ping reports whether the NATS connection is up.
func (s *JetStreamStore) Ping(ctx context.Context) error {
	if !s.streams.Client().IsConnected() {
		return persistenceErr("ping", errors.New("NATS not connected"))
	}
	return nil
}

// Close closes the NATS connection.
func (s *JetStreamStore) Close() error {
	s.streams.Client().Close()
	return nil
}
