// Package debugbus fans newly appended debug events out to live observers.
package debugbus

import (
	"sync"

	"github.com/capitalize-ai/a2ui-playground/internal/model"
	"github.com/capitalize-ai/a2ui-playground/pkg/metrics"
)

const defaultBuffer = 64

// Subscription receives batches of events for one conversation, or for all
// conversations when ConversationID is empty.
type Subscription struct {
	ConversationID string
	C              <-chan []model.Event

	ch chan []model.Event
}

// Hub is an in-process publish/subscribe hub. Publish never blocks: a batch
// that does not fit a subscriber's buffer is dropped for that subscriber.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	buffer int
	closed bool
}

// NewHub creates a hub whose subscriptions buffer up to buffer batches.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers an observer. An empty conversationID observes every
// conversation. Subscribing to a closed hub returns an already closed channel.
func (h *Hub) Subscribe(conversationID string) *Subscription {
	ch := make(chan []model.Event, h.buffer)
	sub := &Subscription{ConversationID: conversationID, C: ch, ch: ch}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return sub
	}
	h.subs[sub] = struct{}{}
	return sub
}

// Unsubscribe removes an observer and closes its channel. It is safe to call
// more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.ch)
}

// Publish delivers events appended to one conversation.
func (h *Hub) Publish(conversationID string, events ...model.Event) {
	if len(events) == 0 {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		if sub.ConversationID != "" && sub.ConversationID != conversationID {
			continue
		}
		batch := make([]model.Event, len(events))
		copy(batch, events)
		select {
		case sub.ch <- batch:
		default:
			metrics.DebugEventsDropped.Add(float64(len(events)))
		}
	}
}

// Subscribers returns the number of registered observers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close closes every subscription. Later Publish calls are no-ops.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		close(sub.ch)
		delete(h.subs, sub)
	}
}
