package api

import "sync"

// EventKind tags a status event.
type EventKind string

const (
	EventFocusChanged  EventKind = "focus_changed"
	EventSessionOpened EventKind = "session_opened"
	EventSessionClosed EventKind = "session_closed"
)

// Event is a metadata-only notification pushed to API subscribers. Frames
// never travel through here.
type Event struct {
	Kind   EventKind `json:"kind"`
	Window uint32    `json:"window"`
}

// Hub fans events out to websocket subscribers. Publishing never blocks:
// a subscriber that stops reading loses events rather than stalling the
// publisher.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Publish delivers ev to every subscriber, dropping it for any whose
// buffer is full.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers a new event channel.
func (h *Hub) Subscribe() chan Event {
	ch := make(chan Event, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes ch.
func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}
