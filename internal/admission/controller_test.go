package admission

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/iliyamo/tilawah-registration/internal/feed"
	"github.com/iliyamo/tilawah-registration/internal/model"
	"github.com/iliyamo/tilawah-registration/internal/repository"
)

// flakyStore wraps a RegistrantStore and fails the first failures
// Admit calls with ErrUnavailable. When writeThrough is set the write
// reaches the wrapped store before the failure is reported, modelling
// a commit whose acknowledgement was lost.
type flakyStore struct {
	repository.RegistrantStore
	failures     int
	writeThrough bool
}

func (f *flakyStore) Admit(ctx context.Context, reg *model.Registrant) error {
	if f.failures > 0 {
		f.failures--
		if f.writeThrough {
			if err := f.RegistrantStore.Admit(ctx, reg); err != nil {
				return err
			}
		}
		return repository.ErrUnavailable
	}
	return f.RegistrantStore.Admit(ctx, reg)
}

// staticHint reports every slot as full.
type staticHint struct{}

func (staticHint) Full(slotID uint64) (bool, bool) { return true, true }

type ControllerSuite struct {
	suite.Suite
	mem  *repository.Memory
	bus  *feed.Bus
	ctx  context.Context
	slot *model.Slot
}

func (s *ControllerSuite) SetupTest() {
	s.mem = repository.NewMemory(2)
	s.bus = feed.NewBus()
	s.ctx = context.Background()
	s.slot = &model.Slot{DisplayName: "After Fajr", SlotOrder: 1}
	s.Require().NoError(s.mem.Slots().Create(s.ctx, s.slot))
}

func (s *ControllerSuite) TearDownTest() {
	s.bus.Close()
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) request(phone string) *Request {
	return &Request{
		Name:           "Ahmad",
		FathersName:    "Yusuf",
		Email:          "ahmad@example.org",
		WhatsAppMobile: phone,
		DateOfBirth:    "2001-04-12",
		TajweedLevel:   "Intermediate",
		SlotID:         s.slot.ID,
	}
}

func (s *ControllerSuite) TestSubmit() {
	s.Run("admits and publishes an event", func() {
		events, cancel := s.bus.Subscribe(4)
		defer cancel()

		c := NewController(s.mem.Registrants(), s.bus, nil)
		reg, err := c.Submit(s.ctx, s.request("+491512340001"))
		s.Require().NoError(err)
		s.NotEmpty(reg.ID)
		s.Equal("+491512340001", reg.IdentityKey)

		ev := <-events
		s.Equal(feed.RegistrantAdmitted, ev.Kind)
		s.Equal(s.slot.ID, ev.SlotID)
		s.Equal(reg.ID, ev.RegistrantID)
	})

	s.Run("rejects invalid input before touching the store", func() {
		c := NewController(s.mem.Registrants(), s.bus, nil)
		req := s.request("+491512340002")
		req.Email = "nope"

		_, err := c.Submit(s.ctx, req)
		var verr *ValidationError
		s.Require().ErrorAs(err, &verr)
		s.Equal("email", verr.Field)
	})

	s.Run("maps store rejections through unchanged", func() {
		slot := &model.Slot{DisplayName: "After Maghrib", SlotOrder: 2}
		s.Require().NoError(s.mem.Slots().Create(s.ctx, slot))
		c := NewController(s.mem.Registrants(), s.bus, nil)

		req := s.request("+491512340003")
		req.SlotID = slot.ID
		_, err := c.Submit(s.ctx, req)
		s.Require().NoError(err)

		dup := s.request("+49 1512 34-0003") // same number, new formatting
		dup.SlotID = slot.ID
		_, err = c.Submit(s.ctx, dup)
		s.Require().ErrorIs(err, repository.ErrDuplicateIdentity)

		second := s.request("+491512340004")
		second.SlotID = slot.ID
		_, err = c.Submit(s.ctx, second)
		s.Require().NoError(err)

		third := s.request("+491512340005")
		third.SlotID = slot.ID
		_, err = c.Submit(s.ctx, third)
		s.Require().ErrorIs(err, repository.ErrSlotFull)
	})
}

func (s *ControllerSuite) TestFullHintShortCircuit() {
	c := NewController(s.mem.Registrants(), s.bus, staticHint{})

	_, err := c.Submit(s.ctx, s.request("+491512341001"))
	s.Require().ErrorIs(err, repository.ErrSlotFull)

	// The hint rejected without reaching the store, so the identity is
	// still unclaimed.
	_, err = s.mem.Registrants().FindByIdentity(s.ctx, "+491512341001")
	s.Require().ErrorIs(err, repository.ErrRegistrantNotFound)
}

func (s *ControllerSuite) TestRetryAfterTransientFailure() {
	s.Run("clean failure retries to success", func() {
		store := &flakyStore{RegistrantStore: s.mem.Registrants(), failures: 1}
		c := NewController(store, s.bus, nil)

		_, err := c.Submit(s.ctx, s.request("+491512342001"))
		s.Require().ErrorIs(err, repository.ErrUnavailable)

		reg, err := c.Submit(s.ctx, s.request("+491512342001"))
		s.Require().NoError(err)
		s.NotEmpty(reg.ID)
	})

	s.Run("lost acknowledgement never admits twice", func() {
		store := &flakyStore{RegistrantStore: s.mem.Registrants(), failures: 1, writeThrough: true}
		c := NewController(store, s.bus, nil)

		_, err := c.Submit(s.ctx, s.request("+491512342002"))
		s.Require().ErrorIs(err, repository.ErrUnavailable)

		// The first attempt actually committed. The retry is answered by
		// the unique identity constraint instead of a second admission.
		_, err = c.Submit(s.ctx, s.request("+491512342002"))
		s.Require().ErrorIs(err, repository.ErrDuplicateIdentity)

		counts, cerr := s.mem.Registrants().CountBySlot(s.ctx)
		s.Require().NoError(cerr)
		s.Equal(1, counts[s.slot.ID])
	})
}
