package repository

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/tilawah-registration/internal/model"
)

// Memory is an in-memory store backing all three store interfaces
// with the same semantics as the MySQL repositories. One mutex guards
// every table, which makes each Admit call a single critical section —
// the in-memory equivalent of the slot row lock plus unique index.
// Used by the test suites and for local development without MySQL.
// The typed views are obtained via Registrants, Slots and Settings.
type Memory struct {
	mu          sync.Mutex
	slots       map[uint64]model.Slot
	registrants map[string]model.Registrant // keyed by registrant ID
	identities  map[string]string           // identity key -> registrant ID
	settings    map[string]string
	nextSlotID  uint64
	// defaultCapacity applies when max_per_slot has never been set.
	defaultCapacity int
}

// NewMemory returns an empty in-memory store. defaultCapacity is used
// until max_per_slot is written through the SettingStore view.
func NewMemory(defaultCapacity int) *Memory {
	return &Memory{
		slots:           make(map[uint64]model.Slot),
		registrants:     make(map[string]model.Registrant),
		identities:      make(map[string]string),
		settings:        make(map[string]string),
		defaultCapacity: defaultCapacity,
	}
}

// Registrants returns the RegistrantStore view.
func (m *Memory) Registrants() RegistrantStore { return memRegistrants{m} }

// Slots returns the SlotStore view.
func (m *Memory) Slots() SlotStore { return memSlots{m} }

// Settings returns the SettingStore view.
func (m *Memory) Settings() SettingStore { return memSettings{m} }

type memRegistrants struct{ m *Memory }
type memSlots struct{ m *Memory }
type memSettings struct{ m *Memory }

// Admit implements the atomic conditional insert. The whole decision
// runs under the store mutex: slot lookup, identity check, capacity
// read, occupancy count and insert are indivisible, so concurrent
// callers serialize here exactly as they do on the database row lock.
func (v memRegistrants) Admit(ctx context.Context, reg *model.Registrant) error {
	if err := ctx.Err(); err != nil {
		return ErrUnavailable
	}
	m := v.m
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.slots[reg.SlotID]; !ok {
		return ErrSlotNotFound
	}
	if _, ok := m.identities[reg.IdentityKey]; ok {
		return ErrDuplicateIdentity
	}
	occupied := 0
	for _, r := range m.registrants {
		if r.SlotID == reg.SlotID {
			occupied++
		}
	}
	if occupied >= m.capacityLocked() {
		return ErrSlotFull
	}

	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	reg.CreatedAt = time.Now().UTC()
	m.registrants[reg.ID] = *reg
	m.identities[reg.IdentityKey] = reg.ID
	return nil
}

func (m *Memory) capacityLocked() int {
	raw, ok := m.settings[SettingMaxPerSlot]
	if !ok {
		return m.defaultCapacity
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return m.defaultCapacity
	}
	return n
}

func (v memRegistrants) FindByIdentity(ctx context.Context, identityKey string) (*model.Registrant, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	id, ok := v.m.identities[identityKey]
	if !ok {
		return nil, ErrRegistrantNotFound
	}
	reg := v.m.registrants[id]
	return &reg, nil
}

func (v memRegistrants) CountBySlot(ctx context.Context) (map[uint64]int, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	counts := make(map[uint64]int)
	for _, r := range v.m.registrants {
		counts[r.SlotID]++
	}
	return counts, nil
}

func (v memRegistrants) List(ctx context.Context) ([]model.Registrant, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	out := make([]model.Registrant, 0, len(v.m.registrants))
	for _, r := range v.m.registrants {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (v memRegistrants) Delete(ctx context.Context, id string) error {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	reg, ok := v.m.registrants[id]
	if !ok {
		return ErrRegistrantNotFound
	}
	delete(v.m.registrants, id)
	delete(v.m.identities, reg.IdentityKey)
	return nil
}

func (v memSlots) Create(ctx context.Context, slot *model.Slot) error {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	v.m.nextSlotID++
	slot.ID = v.m.nextSlotID
	now := time.Now().UTC()
	slot.CreatedAt = now
	slot.UpdatedAt = now
	v.m.slots[slot.ID] = *slot
	return nil
}

func (v memSlots) Update(ctx context.Context, slot *model.Slot) error {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	cur, ok := v.m.slots[slot.ID]
	if !ok {
		return ErrSlotNotFound
	}
	cur.DisplayName = slot.DisplayName
	cur.SlotOrder = slot.SlotOrder
	cur.UpdatedAt = time.Now().UTC()
	v.m.slots[slot.ID] = cur
	*slot = cur
	return nil
}

func (v memSlots) Delete(ctx context.Context, id uint64) error {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	if _, ok := v.m.slots[id]; !ok {
		return ErrSlotNotFound
	}
	for _, r := range v.m.registrants {
		if r.SlotID == id {
			return ErrConflict
		}
	}
	delete(v.m.slots, id)
	return nil
}

func (v memSlots) GetByID(ctx context.Context, id uint64) (*model.Slot, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	slot, ok := v.m.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return &slot, nil
}

func (v memSlots) List(ctx context.Context) ([]model.Slot, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	out := make([]model.Slot, 0, len(v.m.slots))
	for _, s := range v.m.slots {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotOrder < out[j].SlotOrder })
	return out, nil
}

func (v memSettings) Get(ctx context.Context, key string) (string, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	val, ok := v.m.settings[key]
	if !ok {
		return "", ErrSettingNotFound
	}
	return val, nil
}

func (v memSettings) Set(ctx context.Context, key, value string) error {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	v.m.settings[key] = value
	return nil
}
