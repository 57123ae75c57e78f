// Package feed is the in-process change feed. Every store mutation —
// admissions, administrative slot changes, setting updates — is
// published here after it commits, and the availability synchronizer
// and configuration propagator subscribe to react. The AMQP bridge in
// internal/queue mirrors events between instances by re-publishing
// remote events onto the local bus.
package feed

import (
	"log"
	"sync"
	"time"
)

// Kind identifies what changed in the store.
type Kind string

const (
	RegistrantAdmitted Kind = "registrant.admitted"
	RegistrantDeleted  Kind = "registrant.deleted"
	SlotCreated        Kind = "slot.created"
	SlotUpdated        Kind = "slot.updated"
	SlotDeleted        Kind = "slot.deleted"
	SettingUpdated     Kind = "setting.updated"
)

// Event describes a single committed store change. Events carry just
// enough to route reactions; consumers recompute state from the store
// rather than applying deltas, so a lost or duplicated event can only
// delay a refresh, never corrupt the view.
type Event struct {
	Kind         Kind      `json:"kind"`
	SlotID       uint64    `json:"slot_id,omitempty"`
	RegistrantID string    `json:"registrant_id,omitempty"`
	SettingKey   string    `json:"setting_key,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
	// Remote marks an event that arrived from another instance via
	// the broker bridge. Never serialized; the bridge publisher skips
	// remote events so they are not echoed back onto the exchange.
	Remote bool `json:"-"`
}

// Bus fans events out to subscribers. Publish never blocks: a
// subscriber whose buffer is full misses the event, which is why
// subscribers that must not drift (the synchronizer, the propagator)
// pair their subscription with a periodic full refresh.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Publish delivers ev to every current subscriber. Events without a
// timestamp are stamped on the way in.
func (b *Bus) Publish(ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			log.Printf("feed: subscriber %d full, dropping %s", id, ev.Kind)
		}
	}
}

// Subscribe registers a new subscriber with the given buffer size and
// returns its channel along with a cancel function. The channel is
// closed on cancel or when the bus shuts down.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[id] = ch
	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Close shuts the bus down and closes every subscriber channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
