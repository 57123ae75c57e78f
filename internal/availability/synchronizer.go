package availability

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/tilawah-registration/internal/feed"
	"github.com/iliyamo/tilawah-registration/internal/model"
)

// Synchronizer keeps every observer's availability view in sync with
// the store. It subscribes to the change feed and, for each relevant
// event, recomputes a full snapshot through the ledger and broadcasts
// it via the hub. Recompute and broadcast happen on one goroutine, so
// snapshots carry strictly increasing versions and per-slot occupancy
// reaches observers in store commit order. Delivery is at-least-once;
// because each snapshot fully replaces the previous one, duplicates
// and coalesced deliveries are harmless.
//
// A periodic refresh backs up the event path: if an event is ever
// dropped (full subscriber buffer, broker hiccup), observers converge
// again within one refresh interval instead of drifting until the
// next change.
type Synchronizer struct {
	ledger       *Ledger
	hub          *Hub
	bus          *feed.Bus
	refreshEvery time.Duration
	version      int64
	nudge        chan struct{}
}

// NewSynchronizer builds a Synchronizer. refreshEvery bounds how long
// observers can stay stale after a missed event; zero disables the
// periodic refresh.
func NewSynchronizer(ledger *Ledger, hub *Hub, bus *feed.Bus, refreshEvery time.Duration) *Synchronizer {
	return &Synchronizer{
		ledger:       ledger,
		hub:          hub,
		bus:          bus,
		refreshEvery: refreshEvery,
		nudge:        make(chan struct{}, 1),
	}
}

// Refresh asks the run loop for an out-of-band recompute. Used by the
// configuration propagator after a capacity change. Multiple pending
// requests coalesce into one recompute.
func (s *Synchronizer) Refresh() {
	select {
	case s.nudge <- struct{}{}:
	default:
	}
}

// Latest returns the most recent snapshot, or nil before the first
// recompute.
func (s *Synchronizer) Latest() *model.AvailabilitySnapshot {
	return s.hub.Latest()
}

// Full implements the admission fast-path hint from the latest
// snapshot. ok is false until the first recompute completes.
func (s *Synchronizer) Full(slotID uint64) (bool, bool) {
	snap := s.hub.Latest()
	if snap == nil {
		return false, false
	}
	for _, sa := range snap.Slots {
		if sa.SlotID == slotID {
			return sa.IsFull, true
		}
	}
	return false, false
}

// Run computes the initial snapshot and then reacts to change events
// until ctx is cancelled. It blocks while waiting for the next event
// rather than polling; the ticker only fires the safety-net refresh.
func (s *Synchronizer) Run(ctx context.Context) error {
	events, cancel := s.bus.Subscribe(64)
	defer cancel()

	s.recompute(ctx)

	var tick <-chan time.Time
	if s.refreshEvery > 0 {
		t := time.NewTicker(s.refreshEvery)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if relevant(ev.Kind) {
				s.recompute(ctx)
			}
		case <-s.nudge:
			s.recompute(ctx)
		case <-tick:
			s.recompute(ctx)
		}
	}
}

// relevant reports whether an event kind affects availability. Every
// current kind does — registrant and slot mutations change occupancy
// or the slot list, and setting updates can change the capacity limit.
func relevant(k feed.Kind) bool {
	switch k {
	case feed.RegistrantAdmitted, feed.RegistrantDeleted,
		feed.SlotCreated, feed.SlotUpdated, feed.SlotDeleted,
		feed.SettingUpdated:
		return true
	}
	return false
}

func (s *Synchronizer) recompute(ctx context.Context) {
	snap, err := s.ledger.Snapshot(ctx, s.version+1)
	if err != nil {
		// Keep serving the previous snapshot; the next event or tick
		// retries.
		log.Printf("availability: snapshot recompute failed: %v", err)
		return
	}
	s.version++
	s.hub.Broadcast(snap)
}
