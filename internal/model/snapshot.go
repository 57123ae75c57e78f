package model

// SlotAvailability is the availability of a single slot inside a
// snapshot.  Occupied can exceed Capacity after an administrator
// lowers max_per_slot below current occupancy; existing registrants
// are never evicted, the slot simply reports full until occupancy
// falls below the new limit.
type SlotAvailability struct {
	SlotID      uint64 `json:"slot_id"`
	DisplayName string `json:"display_name"`
	SlotOrder   uint32 `json:"slot_order"`
	Capacity    int    `json:"capacity"`
	Occupied    int    `json:"occupied"`
	IsFull      bool   `json:"is_full"`
}

// AvailabilitySnapshot is a full point-in-time view of every slot's
// remaining capacity.  Snapshots are derived, never stored, and are
// always delivered whole: a later snapshot completely replaces an
// earlier one, so applying the same snapshot twice is a no-op.
// Version increases monotonically with each recompute; observers use
// it to drop snapshots that arrive out of order.
type AvailabilitySnapshot struct {
	Version int64              `json:"version"`
	Slots   []SlotAvailability `json:"slots"`
}

// Stale reports whether other supersedes s.  A snapshot with a higher
// version always wins regardless of arrival order.
func (s *AvailabilitySnapshot) Stale(other *AvailabilitySnapshot) bool {
	return other != nil && s != nil && s.Version < other.Version
}
