package notifications

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

const defaultSubscriberBuffer = 16

// Event is a live operator-facing notification.
type Event struct {
	Type       string    `json:"type"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Link       string    `json:"link,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// LiveEmitter forwards live events toward connected operators.
type LiveEmitter interface {
	Emit(ctx context.Context, event Event) error
}

// Hub fans live events out to in-process subscribers. Publish never blocks;
// a subscriber whose buffer is full misses the event.
type Hub struct {
	mu      sync.RWMutex
	subs    map[uint64]chan Event
	nextID  uint64
	dropped atomic.Int64
	metrics *metrics.DomainMetrics
}

var _ LiveEmitter = (*Hub)(nil)

func NewHub(m *metrics.DomainMetrics) *Hub {
	return &Hub{subs: make(map[uint64]chan Event), metrics: m}
}

// Subscribe registers a receiver. The returned func unsubscribes and closes
// the channel; calling it more than once is safe.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	ch := make(chan Event, buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Publish(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- event:
		default:
			h.dropped.Add(1)
			h.metrics.IncLiveDrop()
		}
	}
}

// Emit publishes in-process.
func (h *Hub) Emit(_ context.Context, event Event) error {
	h.Publish(event)
	return nil
}

// Dropped reports how many deliveries were skipped for slow subscribers.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Subscribers reports the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
