package realtime

import (
	"sync"

	"gympass/internal/checkin"
)

const subscriberBuffer = 16

// Hub fans incoming check-in events out to the open dashboard streams of
// this instance. Delivery is best effort: a subscriber that cannot keep up
// has events dropped rather than stalling the others, and the dashboard's
// periodic refetch fills any gap.
type Hub struct {
	mu   sync.RWMutex
	subs map[int]map[chan checkin.Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]map[chan checkin.Event]struct{})}
}

// Subscribe registers a stream for one location. The returned cancel
// function must be called when the stream closes.
func (h *Hub) Subscribe(locationID int) (<-chan checkin.Event, func()) {
	ch := make(chan checkin.Event, subscriberBuffer)

	h.mu.Lock()
	if h.subs[locationID] == nil {
		h.subs[locationID] = make(map[chan checkin.Event]struct{})
	}
	h.subs[locationID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[locationID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, locationID)
			}
		}
		h.mu.Unlock()
	}

	return ch, cancel
}

func (h *Hub) Broadcast(event checkin.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[event.LocationID] {
		select {
		case ch <- event:
		default:
		}
	}
}

func (h *Hub) SubscriberCount(locationID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[locationID])
}
