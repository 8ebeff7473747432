package events

import (
	"sync"
	"time"

	"github.com/kode4food/caravan"
	"github.com/kode4food/caravan/message"
	"github.com/kode4food/caravan/topic"

	"github.com/kode4food/atelier/pkg/api"
)

type (
	// Publisher accepts execution events
	Publisher interface {
		Publish(*api.ExecutionEvent)
	}

	// Hub is an in-process topic of execution events. Every consumer sees
	// each event published after it was created
	Hub struct {
		topic  topic.Topic[*api.ExecutionEvent]
		prod   topic.Producer[*api.ExecutionEvent]
		now    func() time.Time
		mu     sync.RWMutex
		closed bool
	}
)

var _ Publisher = (*Hub)(nil)

// NewHub creates an event hub
func NewHub() *Hub {
	t := caravan.NewTopic[*api.ExecutionEvent]()
	return &Hub{
		topic: t,
		prod:  t.NewProducer(),
		now:   time.Now,
	}
}

// Publish stamps the event if needed and sends it to every consumer. Events
// published after Close are dropped
func (h *Hub) Publish(ev *api.ExecutionEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = h.now()
	}
	message.Send(h.prod, ev)
}

// NewConsumer creates a consumer of subsequently published events. The
// caller must Close it
func (h *Hub) NewConsumer() topic.Consumer[*api.ExecutionEvent] {
	return h.topic.NewConsumer()
}

// Close stops the hub from accepting events
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	h.prod.Close()
}
