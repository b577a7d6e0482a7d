package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/capitalize-ai/a2ui-playground/internal/model"
	"github.com/capitalize-ai/a2ui-playground/pkg/metrics"
)

// conversationRecord is one row per conversation. EventCount doubles as the
// next Seq to hand out.
type conversationRecord struct {
	ID          string    `gorm:"primaryKey;size:64"`
	EventCount  int       `gorm:"not null;default:0"`
	LastEventAt time.Time `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (conversationRecord) TableName() string { return "conversations" }

type eventRecord struct {
	ID             uint      `gorm:"primaryKey"`
	EventID        string    `gorm:"uniqueIndex;size:64;not null"`
	ConversationID string    `gorm:"uniqueIndex:idx_event_conv_seq;size:64;not null"`
	Seq            int       `gorm:"uniqueIndex:idx_event_conv_seq;not null"`
	Timestamp      time.Time `gorm:"not null"`
	Type           string    `gorm:"size:16;not null"`
	Source         string    `gorm:"size:16;not null"`
	Data           string    `gorm:"type:text"`
	Description    string    `gorm:"type:text;not null"`
}

func (eventRecord) TableName() string { return "events" }

func (r *eventRecord) toModel() model.Event {
	return model.Event{
		ID:             r.EventID,
		ConversationID: r.ConversationID,
		Seq:            r.Seq,
		Timestamp:      r.Timestamp.UTC(),
		Type:           model.EventType(r.Type),
		Source:         model.EventSource(r.Source),
		Data:           []byte(r.Data),
		Description:    r.Description,
	}
}

const settingsRowID = 1

type settingsRecord struct {
	ID          uint `gorm:"primaryKey"`
	Provider    string
	APIEndpoint string
	APIKey      string
	Model       string
	APIVersion  string
	Deployment  string
	UpdatedAt   time.Time
}

func (settingsRecord) TableName() string { return "settings" }

// SQLStore implements Store on top of GORM (SQLite or PostgreSQL).
type SQLStore struct {
	db      *gorm.DB
	dialect string

	// Appends are serialized so Seq allocation never races, even on SQLite
	// where row locks are not available.
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) a SQLite database file.
func NewSQLiteStore(path string) (*SQLStore, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000"
	}
	return openSQL("sqlite", sqlite.Open(dsn))
}

// NewPostgresStore connects to PostgreSQL with a DSN or URL.
func NewPostgresStore(dsn string) (*SQLStore, error) {
	return openSQL("postgres", postgres.Open(dsn))
}

func openSQL(dialect string, dialector gorm.Dialector) (*SQLStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, persistenceErr("open "+dialect, err)
	}

	if err := db.AutoMigrate(&conversationRecord{}, &eventRecord{}, &settingsRecord{}); err != nil {
		return nil, persistenceErr("migrate schema", err)
	}

	return &SQLStore{db: db, dialect: dialect}, nil
}

// Backend returns the SQL dialect in use.
func (s *SQLStore) Backend() string { return s.dialect }

// Create registers an empty conversation.
func (s *SQLStore) Create(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := ensureConversation(tx, conversationID)
		return err
	})
	if err != nil {
		return persistenceErr("create conversation", err)
	}
	return nil
}

func ensureConversation(tx *gorm.DB, conversationID string) (*conversationRecord, error) {
	var conv conversationRecord
	err := tx.Where("id = ?", conversationID).Take(&conv).Error
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	conv = conversationRecord{ID: conversationID}
	if err := tx.Create(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// Append writes one event at the end of the conversation's log.
func (s *SQLStore) Append(ctx context.Context, conversationID string, event *model.Event) error {
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var rec eventRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		conv, err := ensureConversation(tx, conversationID)
		if err != nil {
			return err
		}

		rec = eventRecord{
			EventID:        event.ID,
			ConversationID: conversationID,
			Seq:            conv.EventCount,
			Timestamp:      clampTimestamp(event.Timestamp, conv.LastEventAt),
			Type:           string(event.Type),
			Source:         string(event.Source),
			Data:           string(event.Data),
			Description:    event.Description,
		}
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}

		return tx.Model(&conversationRecord{}).
			Where("id = ?", conversationID).
			Updates(map[string]any{
				"event_count":   rec.Seq + 1,
				"last_event_at": rec.Timestamp,
				"updated_at":    time.Now().UTC(),
			}).Error
	})
	if err != nil {
		return persistenceErr("append event", err)
	}

	event.ConversationID = conversationID
	event.Seq = rec.Seq
	event.Timestamp = rec.Timestamp

	metrics.RecordEventAppended(s.dialect, string(event.Type), string(event.Source), time.Since(start).Seconds())
	return nil
}

// Load returns the conversation's events in Seq order.
func (s *SQLStore) Load(ctx context.Context, conversationID string) ([]model.Event, error) {
	var recs []eventRecord
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("seq ASC").
		Find(&recs).Error
	if err != nil {
		return nil, persistenceErr("load events", err)
	}

	events := make([]model.Event, len(recs))
	for i := range recs {
		events[i] = recs[i].toModel()
	}
	return events, nil
}

// List returns every conversation, most recent activity first.
func (s *SQLStore) List(ctx context.Context) ([]model.ConversationSummary, error) {
	var convs []conversationRecord
	err := s.db.WithContext(ctx).
		Order("last_event_at DESC").
		Order("created_at DESC").
		Find(&convs).Error
	if err != nil {
		return nil, persistenceErr("list conversations", err)
	}

	out := make([]model.ConversationSummary, len(convs))
	for i, c := range convs {
		out[i] = model.ConversationSummary{
			ID:          c.ID,
			EventCount:  c.EventCount,
			CreatedAt:   c.CreatedAt.UTC(),
			LastEventAt: c.LastEventAt.UTC(),
		}
	}
	return out, nil
}

// Exists reports whether the conversation has been created.
func (s *SQLStore) Exists(ctx context.Context, conversationID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&conversationRecord{}).Where("id = ?", conversationID).Count(&count).Error
	if err != nil {
		return false, persistenceErr("check conversation", err)
	}
	return count > 0, nil
}

// Clear drops every event and restarts Seq at zero.
func (s *SQLStore) Clear(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&conversationRecord{}).
			Where("id = ?", conversationID).
			Updates(map[string]any{"event_count": 0, "updated_at": time.Now().UTC()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("conversation_id = ?", conversationID).Delete(&eventRecord{}).Error
	})
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}
	if err != nil {
		return persistenceErr("clear conversation", err)
	}
	return nil
}

// Delete removes the conversation and its events.
func (s *SQLStore) Delete(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", conversationID).Delete(&eventRecord{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", conversationID).Delete(&conversationRecord{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}
	if err != nil {
		return persistenceErr("delete conversation", err)
	}
	return nil
}

// GetSettings returns the stored settings.
func (s *SQLStore) GetSettings(ctx context.Context) (*model.Settings, error) {
	var rec settingsRecord
	err := s.db.WithContext(ctx).Where("id = ?", settingsRowID).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("settings: %w", ErrNotFound)
	}
	if err != nil {
		return nil, persistenceErr("get settings", err)
	}

	return &model.Settings{
		Provider:    model.Provider(rec.Provider),
		APIEndpoint: rec.APIEndpoint,
		APIKey:      rec.APIKey,
		Model:       rec.Model,
		APIVersion:  rec.APIVersion,
		Deployment:  rec.Deployment,
		UpdatedAt:   rec.UpdatedAt.UTC(),
	}, nil
}

// PutSettings replaces the stored settings.
func (s *SQLStore) PutSettings(ctx context.Context, settings *model.Settings) error {
	rec := settingsRecord{
		ID:          settingsRowID,
		Provider:    string(settings.Provider),
		APIEndpoint: settings.APIEndpoint,
		APIKey:      settings.APIKey,
		Model:       settings.Model,
		APIVersion:  settings.APIVersion,
		Deployment:  settings.Deployment,
		UpdatedAt:   settings.UpdatedAt,
	}
	if err := s.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return persistenceErr("put settings", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return persistenceErr("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return persistenceErr("ping", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
