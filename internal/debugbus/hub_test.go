package debugbus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/capitalize-ai/a2ui-playground/internal/model"
)

func ev(convID string, seq int) model.Event {
	return model.Event{ID: convID + "-" + string(rune('a'+seq)), ConversationID: convID, Seq: seq}
}

func receive(t *testing.T, sub *Subscription) []model.Event {
	t.Helper()
	select {
	case batch, ok := <-sub.C:
		require.True(t, ok, "subscription closed")
		return batch
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for batch")
		return nil
	}
}

func TestHub_FiltersByConversation(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := NewHub(4)
	defer h.Close()

	a := h.Subscribe("a")
	all := h.Subscribe("")

	h.Publish("b", ev("b", 0))
	h.Publish("a", ev("a", 0), ev("a", 1))

	got := receive(t, a)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[1].Seq)

	assert.Equal(t, "b", receive(t, all)[0].ConversationID)
	assert.Equal(t, "a", receive(t, all)[0].ConversationID)

	select {
	case batch := <-a.C:
		t.Fatalf("unexpected batch %v", batch)
	default:
	}
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := NewHub(1)
	defer h.Close()

	slow := h.Subscribe("a")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			h.Publish("a", ev("a", i))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}

	assert.Equal(t, 0, receive(t, slow)[0].Seq, "the first batch fits the buffer")
}

func TestHub_BatchesAreCopied(t *testing.T) {
	h := NewHub(2)
	defer h.Close()
	sub := h.Subscribe("a")

	events := []model.Event{ev("a", 0)}
	h.Publish("a", events...)
	events[0].Seq = 99

	assert.Equal(t, 0, receive(t, sub)[0].Seq)
}

func TestHub_UnsubscribeIsIdempotent(t *testing.T) {
	h := NewHub(0)
	sub := h.Subscribe("a")
	assert.Equal(t, 1, h.Subscribers())

	h.Unsubscribe(sub)
	h.Unsubscribe(sub)
	assert.Equal(t, 0, h.Subscribers())

	_, ok := <-sub.C
	assert.False(t, ok)

	h.Publish("a", ev("a", 0))
}

func TestHub_CloseEndsSubscribers(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := NewHub(0)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		sub := h.Subscribe("")
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range sub.C {
			}
		}()
	}

	h.Close()
	wg.Wait()
	h.Close()

	late := h.Subscribe("a")
	_, ok := <-late.C
	assert.False(t, ok, "subscribing after close yields a closed channel")
	h.Publish("a", ev("a", 0))
	h.Unsubscribe(late)
	assert.Equal(t, 0, h.Subscribers())
}
