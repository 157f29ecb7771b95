package engine

import (
	"sync"

	"github.com/lumenlabs/chainflow/pkg/api"
)

// Hub fans flow updates out to subscribers. Publishing never blocks; a
// subscriber that falls behind its buffer misses updates rather than
// stalling the supervisor
type Hub struct {
	subscribers map[int]chan *api.Flow
	nextID      int
	mu          sync.Mutex
}

const subscriberBufferSize = 64

func NewHub() *Hub {
	return &Hub{
		subscribers: map[int]chan *api.Flow{},
	}
}

// Subscribe registers a new subscriber. The returned cancel func must be
// called to release the channel
func (h *Hub) Subscribe() (<-chan *api.Flow, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan *api.Flow, subscriberBufferSize)
	h.subscribers[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if ch, ok := h.subscribers[id]; ok {
			delete(h.subscribers, id)
			close(ch)
		}
	}
	return ch, cancel
}

// Publish delivers a flow snapshot to all subscribers. Each receives its
// own clone so readers never alias engine state
func (h *Hub) Publish(flow *api.Flow) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subscribers {
		select {
		case ch <- flow.Clone():
		default:
		}
	}
}

func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}
