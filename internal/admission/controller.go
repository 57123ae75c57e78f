// Package admission decides whether a submission becomes a
// registrant. The controller is stateless and safe for concurrent
// use: it holds no locks of its own, because the store's conditional
// insert is the only serialization point in the system.
package admission

import (
	"context"

	"github.com/iliyamo/tilawah-registration/internal/feed"
	"github.com/iliyamo/tilawah-registration/internal/model"
	"github.com/iliyamo/tilawah-registration/internal/repository"
)

// FullHint answers "is this slot already full?" from cached state
// without touching the store. The availability synchronizer provides
// one from its latest snapshot. A hint may be stale by up to one
// refresh cycle and is therefore only ever used to short-circuit a
// submission that would be rejected anyway — an admission is never
// granted on the strength of a hint.
type FullHint interface {
	// Full returns (isFull, ok). ok is false when no cached state
	// exists yet, in which case the store decides.
	Full(slotID uint64) (bool, bool)
}

// Controller validates submissions and drives the conditional insert.
// A submission moves through: received -> validating -> attempting
// write -> admitted or rejected. Validation failures, duplicates and
// full slots are terminal; only a transient store failure leaves the
// caller free to retry, and a retry re-runs the whole path.
type Controller struct {
	store repository.RegistrantStore
	bus   *feed.Bus
	hint  FullHint
}

// NewController builds a Controller. bus receives an event for every
// successful admission; hint may be nil to disable the fast path.
func NewController(store repository.RegistrantStore, bus *feed.Bus, hint FullHint) *Controller {
	return &Controller{store: store, bus: bus, hint: hint}
}

// Submit validates and atomically admits one registration.
//
// Returned errors: *ValidationError for malformed input,
// repository.ErrDuplicateIdentity when the identity key is already
// registered in any slot, repository.ErrSlotFull when the requested
// slot is at capacity, repository.ErrSlotNotFound for an unknown
// slot, repository.ErrUnavailable for transient store failure.
//
// Duplicate and full rejections are reported exactly as the store
// decided them and are never retried here: neither condition is
// transient. ErrUnavailable is retryable by the caller with backoff;
// because the identity key is part of the insert's unique constraint,
// a retry whose earlier attempt actually reached the store is
// answered with ErrDuplicateIdentity rather than admitted twice — a
// cancelled or timed-out wait is never taken as proof the write did
// not happen.
func (c *Controller) Submit(ctx context.Context, req *Request) (*model.Registrant, error) {
	if verr := req.Validate(); verr != nil {
		return nil, verr
	}

	reg := &model.Registrant{
		IdentityKey:  NormalizeIdentity(req.WhatsAppMobile),
		SlotID:       req.SlotID,
		Name:         req.Name,
		FathersName:  req.FathersName,
		Email:        req.Email,
		DateOfBirth:  req.DateOfBirth,
		TajweedLevel: req.TajweedLevel,
	}

	// Fast path: skip the store round trip when the cached snapshot
	// already shows the slot full. The store remains the gate — this
	// branch can only reject, and at worst it rejects a submission the
	// store would have rejected one refresh cycle later.
	if c.hint != nil {
		if full, ok := c.hint.Full(req.SlotID); ok && full {
			return nil, repository.ErrSlotFull
		}
	}

	if err := c.store.Admit(ctx, reg); err != nil {
		return nil, err
	}

	if c.bus != nil {
		c.bus.Publish(feed.Event{
			Kind:         feed.RegistrantAdmitted,
			SlotID:       reg.SlotID,
			RegistrantID: reg.ID,
		})
	}
	return reg, nil
}
