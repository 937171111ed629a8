// Package live pushes each processed reading to all connected websocket
// subscribers.
package live

import (
	"log/slog"
	"sync"

	"github.com/enviromon/enviromon/pkg/model"
)

// Hub tracks the set of live subscribers and fans readings out to them.
// Registration, removal, and broadcast run concurrently from different
// goroutines; broadcast works on a snapshot so a subscriber disappearing
// mid-iteration is harmless.
type Hub struct {
	logger *slog.Logger

	mu          sync.RWMutex
	subscribers map[*Subscriber]bool
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:      logger,
		subscribers: make(map[*Subscriber]bool),
	}
}

// Add registers a subscriber.
func (h *Hub) Add(s *Subscriber) {
	h.mu.Lock()
	h.subscribers[s] = true
	total := len(h.subscribers)
	h.mu.Unlock()

	h.logger.Info("live subscriber connected", "id", s.id, "total", total)
}

// Remove deregisters a subscriber and stops its write pump. Safe to call
// more than once and safe to call concurrently with Broadcast.
func (h *Hub) Remove(s *Subscriber) {
	h.mu.Lock()
	_, ok := h.subscribers[s]
	if ok {
		delete(h.subscribers, s)
	}
	total := len(h.subscribers)
	h.mu.Unlock()

	if ok {
		s.shutdown()
		h.logger.Info("live subscriber disconnected", "id", s.id, "total", total)
	}
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Broadcast pushes a reading to every subscriber. A subscriber that
// cannot keep up (send buffer full, connection gone) is pruned; the rest
// still receive the reading.
func (h *Hub) Broadcast(reading model.Reading) {
	h.mu.RLock()
	snapshot := make([]*Subscriber, 0, len(h.subscribers))
	for s := range h.subscribers {
		snapshot = append(snapshot, s)
	}
	h.mu.RUnlock()

	for _, s := range snapshot {
		if !s.push(reading) {
			h.logger.Warn("live subscriber not keeping up, dropping it", "id", s.id)
			h.Remove(s)
		}
	}
}

// Close disconnects all subscribers.
func (h *Hub) Close() {
	h.mu.Lock()
	snapshot := make([]*Subscriber, 0, len(h.subscribers))
	for s := range h.subscribers {
		snapshot = append(snapshot, s)
	}
	h.subscribers = make(map[*Subscriber]bool)
	h.mu.Unlock()

	for _, s := range snapshot {
		s.shutdown()
	}
}
