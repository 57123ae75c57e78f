// Package settings propagates runtime configuration changes. The
// capacity limit lives in the settings table so administrators can
// change it without a redeploy; the propagator watches it and makes
// sure every in-process reader and every connected observer sees the
// new value within one propagation cycle.
package settings

import (
	"context"
	"errors"
	"log"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/iliyamo/tilawah-registration/internal/feed"
	"github.com/iliyamo/tilawah-registration/internal/repository"
)

// Refresher is nudged after a capacity change so a fresh availability
// snapshot reaches observers. The availability synchronizer
// implements it.
type Refresher interface {
	Refresh()
}

// Propagator watches the max_per_slot setting. It reacts to
// setting.updated change events and re-reads on a timer as a safety
// net against missed events. The current value is served from an
// atomic, so the many concurrent capacity readers never block the
// administrative writer.
//
// Lowering the limit below a slot's occupancy never evicts anyone:
// the slot reports full and blocks new admissions until occupancy
// falls below the new limit on its own.
type Propagator struct {
	store     repository.SettingStore
	bus       *feed.Bus
	refresher Refresher
	pollEvery time.Duration
	capacity  atomic.Int64
	def       int
}

// NewPropagator builds a Propagator with def as the capacity used
// until the setting is first read. pollEvery of zero disables the
// periodic re-read.
func NewPropagator(store repository.SettingStore, bus *feed.Bus, refresher Refresher, def int, pollEvery time.Duration) *Propagator {
	p := &Propagator{
		store:     store,
		bus:       bus,
		refresher: refresher,
		pollEvery: pollEvery,
		def:       def,
	}
	p.capacity.Store(int64(def))
	return p
}

// SetRefresher installs the refresher after construction. The
// synchronizer reads capacity through the propagator, so the two are
// built propagator first and linked here. Call before Run.
func (p *Propagator) SetRefresher(r Refresher) {
	p.refresher = r
}

// Capacity returns the limit currently in effect. Callers must not
// cache the result; it changes whenever an administrator writes the
// setting.
func (p *Propagator) Capacity() int {
	return int(p.capacity.Load())
}

// Load performs the initial read. Called once before the service
// starts admitting.
func (p *Propagator) Load(ctx context.Context) error {
	_, err := p.reload(ctx)
	return err
}

// Run reacts to setting changes until ctx is cancelled.
func (p *Propagator) Run(ctx context.Context) error {
	events, cancel := p.bus.Subscribe(16)
	defer cancel()

	var tick <-chan time.Time
	if p.pollEvery > 0 {
		t := time.NewTicker(p.pollEvery)
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
			if ev.Kind != feed.SettingUpdated || ev.SettingKey != repository.SettingMaxPerSlot {
				continue
			}
			p.apply(ctx)
		case <-tick:
			p.apply(ctx)
		}
	}
}

// apply re-reads the setting and, when the value changed, pushes a
// fresh snapshot to every observer.
func (p *Propagator) apply(ctx context.Context) {
	changed, err := p.reload(ctx)
	if err != nil {
		log.Printf("settings: capacity reload failed: %v", err)
		return
	}
	if changed && p.refresher != nil {
		p.refresher.Refresh()
	}
}

// reload fetches max_per_slot and stores it, reporting whether the
// value changed. A missing row falls back to the default; a malformed
// or negative value is ignored and logged rather than applied.
func (p *Propagator) reload(ctx context.Context) (bool, error) {
	raw, err := p.store.Get(ctx, repository.SettingMaxPerSlot)
	value := p.def
	switch {
	case errors.Is(err, repository.ErrSettingNotFound):
		// keep default
	case err != nil:
		return false, err
	default:
		n, perr := strconv.Atoi(raw)
		if perr != nil || n < 0 {
			log.Printf("settings: ignoring invalid max_per_slot %q", raw)
			return false, nil
		}
		value = n
	}
	old := p.capacity.Swap(int64(value))
	if int(old) != value {
		log.Printf("settings: max_per_slot %d -> %d", old, value)
		return true, nil
	}
	return false, nil
}
