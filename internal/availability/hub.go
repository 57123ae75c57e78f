package availability

import (
	"sync"

	"github.com/iliyamo/tilawah-registration/internal/model"
)

// Observer is one connected availability watcher. Snapshots arrive on
// C; each delivery is a full replacement of everything seen before.
// A slow observer does not block the hub: an undelivered snapshot is
// overwritten by the next one, which is safe precisely because
// snapshots are whole, not diffs.
type Observer struct {
	ch chan *model.AvailabilitySnapshot
}

// C returns the observer's delivery channel. The channel is closed
// when the observer is cancelled or the hub shuts down.
func (o *Observer) C() <-chan *model.AvailabilitySnapshot { return o.ch }

// Hub fans snapshots out to connected observers. On registration the
// newest snapshot is delivered immediately, so a reconnecting client
// always starts from a full current view instead of replaying missed
// updates.
type Hub struct {
	mu        sync.Mutex
	observers map[*Observer]struct{}
	latest    *model.AvailabilitySnapshot
	closed    bool
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{observers: make(map[*Observer]struct{})}
}

// Register adds an observer and returns it with a cancel function.
// If a snapshot has been broadcast before, it is queued immediately.
func (h *Hub) Register() (*Observer, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	obs := &Observer{ch: make(chan *model.AvailabilitySnapshot, 1)}
	if h.closed {
		close(obs.ch)
		return obs, func() {}
	}
	h.observers[obs] = struct{}{}
	if h.latest != nil {
		obs.ch <- h.latest
	}
	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.observers[obs]; ok {
			delete(h.observers, obs)
			close(obs.ch)
		}
	}
	return obs, cancel
}

// Broadcast delivers snap to every observer, replacing any snapshot
// still pending in an observer's buffer. Broadcasts are issued by the
// synchronizer's single loop in commit order, so per-slot occupancy
// reaches each observer monotonically.
func (h *Hub) Broadcast(snap *model.AvailabilitySnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.latest = snap
	for obs := range h.observers {
		select {
		case obs.ch <- snap:
		default:
			// Buffer holds an older snapshot; drop it and queue the
			// newer one.
			select {
			case <-obs.ch:
			default:
			}
			obs.ch <- snap
		}
	}
}

// Latest returns the most recently broadcast snapshot, or nil before
// the first broadcast.
func (h *Hub) Latest() *model.AvailabilitySnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest
}

// Close disconnects every observer.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for obs := range h.observers {
		delete(h.observers, obs)
		close(obs.ch)
	}
}
