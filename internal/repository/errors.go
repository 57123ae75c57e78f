// Package repository defines the persistence contracts for slots,
// registrations and settings, together with the sentinel errors shared
// by every implementation. Handlers and the admission controller use
// these sentinels with errors.Is to map failures onto HTTP responses.
// The distinction between ErrDuplicateIdentity and ErrSlotFull is
// user-visible and must never be collapsed: the two call for different
// user actions (recognize the existing registration vs. pick another
// slot).
package repository

import "errors"

// ErrDuplicateIdentity is returned when an admission would create a
// second registrant with the same normalized identity key, in any
// slot. Permanent for that identity; never retried.
var ErrDuplicateIdentity = errors.New("identity already registered")

// ErrSlotFull is returned when an admission would push a slot's
// occupancy past the current capacity limit. Permanent for that slot
// at the current capacity.
var ErrSlotFull = errors.New("slot full")

// ErrSlotNotFound is returned when a slot ID does not exist.
var ErrSlotNotFound = errors.New("slot not found")

// ErrRegistrantNotFound is returned when a registrant ID does not exist.
var ErrRegistrantNotFound = errors.New("registrant not found")

// ErrSettingNotFound is returned when a settings key has no value.
var ErrSettingNotFound = errors.New("setting not found")

// ErrConflict is returned when a delete cannot proceed because of
// dependent records, such as deleting a slot that still has
// registrants. Handlers translate this into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrUnavailable is returned for transient store failures such as
// connection loss or timeouts. It is the only error class safe to
// retry, and a retry must re-run the full admission path rather than
// assume the earlier attempt never reached the store.
var ErrUnavailable = errors.New("store unavailable")
