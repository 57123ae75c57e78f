package settings

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/iliyamo/tilawah-registration/internal/feed"
	"github.com/iliyamo/tilawah-registration/internal/repository"
)

// countingRefresher records how many times a capacity change nudged
// the availability pipeline.
type countingRefresher struct{ n atomic.Int64 }

func (c *countingRefresher) Refresh() { c.n.Add(1) }

type PropagatorSuite struct {
	suite.Suite
	mem       *repository.Memory
	bus       *feed.Bus
	refresher *countingRefresher
	ctx       context.Context
}

func (s *PropagatorSuite) SetupTest() {
	s.mem = repository.NewMemory(2)
	s.bus = feed.NewBus()
	s.refresher = &countingRefresher{}
	s.ctx = context.Background()
}

func (s *PropagatorSuite) TearDownTest() {
	s.bus.Close()
}

func TestPropagatorSuite(t *testing.T) {
	suite.Run(t, new(PropagatorSuite))
}

func (s *PropagatorSuite) newPropagator() *Propagator {
	return NewPropagator(s.mem.Settings(), s.bus, s.refresher, 2, 0)
}

func (s *PropagatorSuite) TestLoad() {
	s.Run("missing setting keeps the default", func() {
		p := s.newPropagator()
		s.Require().NoError(p.Load(s.ctx))
		s.Equal(2, p.Capacity())
	})

	s.Run("stored setting wins over the default", func() {
		s.Require().NoError(s.mem.Settings().Set(s.ctx, repository.SettingMaxPerSlot, "5"))
		p := s.newPropagator()
		s.Require().NoError(p.Load(s.ctx))
		s.Equal(5, p.Capacity())
	})

	s.Run("malformed value is ignored", func() {
		s.Require().NoError(s.mem.Settings().Set(s.ctx, repository.SettingMaxPerSlot, "lots"))
		p := s.newPropagator()
		s.Require().NoError(p.Load(s.ctx))
		s.Equal(2, p.Capacity())
	})

	s.Run("negative value is ignored", func() {
		s.Require().NoError(s.mem.Settings().Set(s.ctx, repository.SettingMaxPerSlot, "-1"))
		p := s.newPropagator()
		s.Require().NoError(p.Load(s.ctx))
		s.Equal(2, p.Capacity())
	})

	s.Run("zero closes every slot", func() {
		s.Require().NoError(s.mem.Settings().Set(s.ctx, repository.SettingMaxPerSlot, "0"))
		p := s.newPropagator()
		s.Require().NoError(p.Load(s.ctx))
		s.Equal(0, p.Capacity())
	})
}

func (s *PropagatorSuite) TestRunReactsToSettingEvents() {
	p := s.newPropagator()
	s.Require().NoError(p.Load(s.ctx))

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.Run(ctx)
	}()

	// A capacity write followed by its change event updates the served
	// value and nudges the refresher exactly once.
	s.Require().NoError(s.mem.Settings().Set(s.ctx, repository.SettingMaxPerSlot, "4"))
	s.bus.Publish(feed.Event{Kind: feed.SettingUpdated, SettingKey: repository.SettingMaxPerSlot})

	s.Require().Eventually(func() bool {
		return p.Capacity() == 4
	}, time.Second, 5*time.Millisecond)
	s.Require().Eventually(func() bool {
		return s.refresher.n.Load() == 1
	}, time.Second, 5*time.Millisecond)

	// Events for other settings are ignored.
	s.Require().NoError(s.mem.Settings().Set(s.ctx, repository.SettingFormTitle, "Ramadan Intake"))
	s.bus.Publish(feed.Event{Kind: feed.SettingUpdated, SettingKey: repository.SettingFormTitle})

	// An unchanged re-publish reloads but does not nudge again.
	s.bus.Publish(feed.Event{Kind: feed.SettingUpdated, SettingKey: repository.SettingMaxPerSlot})
	time.Sleep(50 * time.Millisecond)
	s.Equal(int64(1), s.refresher.n.Load())
	s.Equal(4, p.Capacity())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		s.Fail("propagator did not stop")
	}
}
