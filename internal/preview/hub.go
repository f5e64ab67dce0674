// Package preview fans JPEG preview frames out from the capture pipeline to
// any number of HTTP stream subscribers.
package preview

import (
	"log/slog"
	"sync"
)

// Hub distributes frames to subscribers. Publishing never blocks: a slow
// subscriber drops frames rather than stalling the pipeline.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]chan []byte
	nextID int
	last   []byte
	logger *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:   make(map[int]chan []byte),
		logger: logger,
	}
}

// Publish delivers a frame to all subscribers. Subscribers with a full
// buffer miss this frame.
func (h *Hub) Publish(frame []byte) {
	h.mu.Lock()
	h.last = frame
	for _, ch := range h.subs {
		select {
		case ch <- frame:
		default:
		}
	}
	h.mu.Unlock()
}

// Subscribe registers a new subscriber and returns its frame channel plus a
// cancel function. The channel is closed on cancel.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 4)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	n := len(h.subs)
	h.mu.Unlock()

	h.logger.Debug("Preview subscriber added", "subscribers", n)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			n := len(h.subs)
			h.mu.Unlock()
			close(ch)
			h.logger.Debug("Preview subscriber removed", "subscribers", n)
		})
	}
	return ch, cancel
}

// LastFrame returns the most recently published frame, or nil if none yet.
func (h *Hub) LastFrame() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
