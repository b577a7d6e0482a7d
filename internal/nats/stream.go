package nats

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

const (
	// StreamName is the name of the debug event stream.
	StreamName = "A2UI_EVENTS"

	// SubjectPrefix is the prefix for all conversation subjects.
	SubjectPrefix = "a2ui.conv"

	fetchBatch = 256
)

// StreamManager handles JetStream stream and key-value operations.
type StreamManager struct {
	client *Client
	stream jetstream.Stream
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// Client returns the underlying connection wrapper.
func (m *StreamManager) Client() *Client {
	return m.client
}

// EnsureStream ensures the event stream exists with proper configuration.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	stream, err := js.Stream(ctx, StreamName)
	if err == nil {
		m.stream = stream
		return nil
	}
	if !errors.Is(err, jetstream.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream: %w", err)
	}

	// Purge stays allowed: clearing a conversation purges its subject.
	stream, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      365 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		DenyDelete:  true,
		Description: "A2UI conversation debug events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	m.stream = stream
	return nil
}

// EnsureBucket creates or updates a key-value bucket.
func (m *StreamManager) EnsureBucket(ctx context.Context, bucket, description string) (jetstream.KeyValue, error) {
	kv, err := m.client.JetStream().CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: description,
		History:     1,
		Storage:     jetstream.FileStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure bucket %s: %w", bucket, err)
	}
	return kv, nil
}

// ValidToken reports whether s can be used as a single subject token.
func ValidToken(s string) bool {
	return s != "" && !strings.ContainsAny(s, ".*> \t\r\n")
}

// EventSubject returns the subject holding a conversation's events.
func EventSubject(conversationID string) string {
	return fmt.Sprintf("%s.%s.events", SubjectPrefix, conversationID)
}

// Publish publishes data and waits for the stream to acknowledge it.
func (m *StreamManager) Publish(ctx context.Context, subject string, data []byte) (uint64, error) {
	ack, err := m.client.JetStream().Publish(ctx, subject, data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return ack.Sequence, nil
}

// LastMessage returns the last message on subject, or nil when there is none.
func (m *StreamManager) LastMessage(ctx context.Context, subject string) (*jetstream.RawStreamMsg, error) {
	msg, err := m.stream.GetLastMsgForSubject(ctx, subject)
	if errors.Is(err, jetstream.ErrMsgNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last message on %s: %w", subject, err)
	}
	return msg, nil
}

// Count returns the number of messages stored on subject.
func (m *StreamManager) Count(ctx context.Context, subject string) (uint64, error) {
	info, err := m.stream.Info(ctx, jetstream.WithSubjectFilter(subject))
	if err != nil {
		return 0, fmt.Errorf("failed to get stream info: %w", err)
	}
	return info.State.Subjects[subject], nil
}

// Fetch returns the payloads of every message on subject in stream order.
func (m *StreamManager) Fetch(ctx context.Context, subject string) ([][]byte, error) {
	total, err := m.Count(ctx, subject)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, nil
	}

	consumer, err := m.client.JetStream().OrderedConsumer(ctx, StreamName, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{subject},
		DeliverPolicy:  jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	return collect(total, func(want int) ([][]byte, bool, error) {
		batch, err := consumer.Fetch(want, jetstream.FetchMaxWait(2*time.Second))
		if err != nil {
			return nil, false, fmt.Errorf("failed to fetch messages: %w", err)
		}

		var data [][]byte
		drained := false
		for msg := range batch.Messages() {
			data = append(data, msg.Data())
			if meta, err := msg.Metadata(); err == nil && meta.NumPending == 0 {
				drained = true
			}
		}
		if err := batch.Error(); err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, jetstream.ErrNoMessages) {
			return nil, false, fmt.Errorf("batch error: %w", err)
		}
		return data, drained, nil
	})
}

// collect pulls batches until total messages are read or the consumer
// reports nothing pending. Coming up short of total is an error.
func collect(total uint64, next func(want int) (data [][]byte, drained bool, err error)) ([][]byte, error) {
	out := make([][]byte, 0, total)
	for uint64(len(out)) < total {
		data, drained, err := next(min(int(total)-len(out), fetchBatch))
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
		if drained {
			// Messages purged since Count ran.
			total = uint64(len(out))
		}
		if len(data) == 0 {
			break
		}
	}

	if uint64(len(out)) < total {
		return nil, fmt.Errorf("fetched %d of %d messages", len(out), total)
	}
	return out, nil
}

// Purge removes every message on subject.
func (m *StreamManager) Purge(ctx context.Context, subject string) error {
	if err := m.stream.Purge(ctx, jetstream.WithPurgeSubject(subject)); err != nil {
		return fmt.Errorf("failed to purge %s: %w", subject, err)
	}
	return nil
}
