package session

import (
	"sync"

	"github.com/cory-johannsen/questweaver/internal/game/state"
)

const defaultSubscriberBuffer = 8

// subscriber routes published snapshots to a bounded channel.
type subscriber struct {
	events chan state.GameState
	mu     sync.Mutex
	closed bool
}

func newSubscriber(bufferSize int) *subscriber {
	if bufferSize <= 0 {
		bufferSize = defaultSubscriberBuffer
	}
	return &subscriber{events: make(chan state.GameState, bufferSize)}
}

// push enqueues gs without blocking.
//
// Postcondition: Returns false when the subscriber is closed or its buffer is
// full; the snapshot is dropped in both cases.
func (s *subscriber) push(gs state.GameState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	select {
	case s.events <- gs:
		return true
	default:
		return false
	}
}

// close is idempotent.
func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.events)
	}
}

// hub fans snapshots out to every subscriber of one session.
type hub struct {
	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
	closed bool
}

func newHub() *hub {
	return &hub{subs: make(map[int]*subscriber)}
}

// subscribe registers a new subscriber primed with initial.
//
// Postcondition: The returned cancel func is idempotent and closes the channel.
// Subscribing to a closed hub yields an already-closed channel.
func (h *hub) subscribe(initial state.GameState) (<-chan state.GameState, func()) {
	sub := newSubscriber(defaultSubscriberBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		sub.close()
		return sub.events, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = sub
	sub.push(initial)
	h.mu.Unlock()

	return sub.events, func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
		sub.close()
	}
}

// publish delivers gs to every subscriber and returns how many dropped it.
func (h *hub) publish(gs state.GameState) (dropped int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subs {
		if !sub.push(gs.Clone()) {
			dropped++
		}
	}
	return dropped
}

func (h *hub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// close closes every subscriber; later subscriptions get closed channels.
func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, sub := range h.subs {
		sub.close()
		delete(h.subs, id)
	}
}
