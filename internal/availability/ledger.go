// Package availability maintains every observer's view of remaining
// slot capacity: the ledger computes occupancy from the store, the
// synchronizer turns store change events into fresh snapshots, and
// the hub pushes each snapshot to every connected observer.
package availability

import (
	"context"

	"github.com/iliyamo/tilawah-registration/internal/model"
	"github.com/iliyamo/tilawah-registration/internal/repository"
)

// CapacitySource supplies the max_per_slot limit currently in effect.
// The configuration propagator implements it; readers must expect the
// value to change between calls and never cache it.
type CapacitySource interface {
	Capacity() int
}

// Ledger is the authoritative read-only occupancy view. Every call
// computes from the store's current state — nothing is cached here —
// so its staleness window is just the read itself. It has no side
// effects and is never the admission gate.
type Ledger struct {
	registrants repository.RegistrantStore
	slots       repository.SlotStore
	capacity    CapacitySource
}

// NewLedger builds a Ledger over the given stores.
func NewLedger(registrants repository.RegistrantStore, slots repository.SlotStore, capacity CapacitySource) *Ledger {
	return &Ledger{registrants: registrants, slots: slots, capacity: capacity}
}

// CountFor returns the current occupancy of one slot. Unknown slots
// report zero occupancy; slot existence is checked where it matters,
// in the store's conditional insert.
func (l *Ledger) CountFor(ctx context.Context, slotID uint64) (int, error) {
	counts, err := l.registrants.CountBySlot(ctx)
	if err != nil {
		return 0, err
	}
	return counts[slotID], nil
}

// IsFull reports whether a slot has reached the current capacity
// limit.
func (l *Ledger) IsFull(ctx context.Context, slotID uint64) (bool, error) {
	n, err := l.CountFor(ctx, slotID)
	if err != nil {
		return false, err
	}
	return n >= l.capacity.Capacity(), nil
}

// Snapshot builds a full availability snapshot over every slot with
// the given version. Occupied can exceed Capacity after the limit was
// lowered below existing occupancy; the slot then reports full while
// the earlier registrants stay admitted.
func (l *Ledger) Snapshot(ctx context.Context, version int64) (*model.AvailabilitySnapshot, error) {
	slots, err := l.slots.List(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := l.registrants.CountBySlot(ctx)
	if err != nil {
		return nil, err
	}
	capacity := l.capacity.Capacity()
	snap := &model.AvailabilitySnapshot{
		Version: version,
		Slots:   make([]model.SlotAvailability, 0, len(slots)),
	}
	for _, s := range slots {
		occupied := counts[s.ID]
		snap.Slots = append(snap.Slots, model.SlotAvailability{
			SlotID:      s.ID,
			DisplayName: s.DisplayName,
			SlotOrder:   s.SlotOrder,
			Capacity:    capacity,
			Occupied:    occupied,
			IsFull:      occupied >= capacity,
		})
	}
	return snap, nil
}
