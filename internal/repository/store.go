package repository

import (
	"context"

	"github.com/iliyamo/tilawah-registration/internal/model"
)

// The store interfaces keep the admission controller and the
// availability synchronizer independent of the persistence engine.
// Two implementations exist: the MySQL repositories used in
// production and an in-memory twin with identical semantics used by
// tests and local development.

// RegistrantStore persists registrations. Admit is the single
// serialization point for the whole system: implementations must
// enforce both the identity-uniqueness constraint and the per-slot
// capacity ceiling atomically with the insert, so that of two
// concurrent submissions racing for the last seat exactly one wins
// and the loser observes ErrSlotFull (or ErrDuplicateIdentity when
// the identities collide). Any check performed outside Admit is a
// hint, never the gate.
type RegistrantStore interface {
	// Admit inserts reg if and only if the identity key is unused and
	// the slot's occupancy is below the max_per_slot limit in effect
	// at commit time. Implementations read the limit inside the same
	// transaction or critical section as the insert, so a capacity
	// change is in effect for every decision that commits after it.
	// Returns ErrDuplicateIdentity, ErrSlotFull, ErrSlotNotFound or
	// ErrUnavailable.
	Admit(ctx context.Context, reg *model.Registrant) error
	// FindByIdentity returns the registrant holding the given
	// normalized identity key, or ErrRegistrantNotFound.
	FindByIdentity(ctx context.Context, identityKey string) (*model.Registrant, error)
	// CountBySlot returns the occupancy of every slot that has at
	// least one registrant. Slots absent from the map have zero.
	CountBySlot(ctx context.Context) (map[uint64]int, error)
	// List returns all registrants ordered by admission time.
	List(ctx context.Context) ([]model.Registrant, error)
	// Delete removes a registrant by ID, freeing the seat.
	Delete(ctx context.Context, id string) error
}

// SlotStore manages the administrative slot table.
type SlotStore interface {
	Create(ctx context.Context, slot *model.Slot) error
	Update(ctx context.Context, slot *model.Slot) error
	// Delete removes a slot; returns ErrConflict while registrants
	// still reference it.
	Delete(ctx context.Context, id uint64) error
	GetByID(ctx context.Context, id uint64) (*model.Slot, error)
	List(ctx context.Context) ([]model.Slot, error)
}

// SettingStore is a string key/value table holding globally shared,
// hot-reloadable configuration such as max_per_slot and form_title.
type SettingStore interface {
	Get(ctx context.Context, key string) (string, error)
	// Set upserts a value. Administrative writes go through here and
	// emit a setting.updated change event so every reader converges
	// within one propagation cycle.
	Set(ctx context.Context, key, value string) error
}

// Setting keys used by the application.
const (
	SettingMaxPerSlot = "max_per_slot"
	SettingFormTitle  = "form_title"
)
