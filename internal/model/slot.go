package model

import "time"

// Slot represents one of the fixed time slots students can register
// into.  The number of slots is managed by administrators; slots are
// displayed in slot_order and are never deleted while registrants
// reference them.  The capacity limit is not stored per slot — it is
// the global max_per_slot setting shared by every slot.
//
// Fields:
//  ID          – primary key identifier.
//  DisplayName – human readable label shown on the registration form.
//  SlotOrder   – ordering rank used when listing slots.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Slot struct {
	ID          uint64    `json:"id"`           // slots.id
	DisplayName string    `json:"display_name"` // slots.display_name
	SlotOrder   uint32    `json:"slot_order"`   // slots.slot_order
	CreatedAt   time.Time `json:"created_at"`   // slots.created_at
	UpdatedAt   time.Time `json:"updated_at"`   // slots.updated_at
}
