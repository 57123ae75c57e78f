package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/suite"

	"github.com/iliyamo/tilawah-registration/internal/admission"
	"github.com/iliyamo/tilawah-registration/internal/feed"
	"github.com/iliyamo/tilawah-registration/internal/model"
	"github.com/iliyamo/tilawah-registration/internal/repository"
)

type RegistrationHandlerSuite struct {
	suite.Suite
	e       *echo.Echo
	mem     *repository.Memory
	bus     *feed.Bus
	handler *RegistrationHandler
	slot    *model.Slot
}

func (s *RegistrationHandlerSuite) SetupTest() {
	s.e = echo.New()
	s.mem = repository.NewMemory(2)
	s.bus = feed.NewBus()
	controller := admission.NewController(s.mem.Registrants(), s.bus, nil)
	s.handler = NewRegistrationHandler(controller, s.mem.Settings())

	s.slot = &model.Slot{DisplayName: "After Fajr", SlotOrder: 1}
	s.Require().NoError(s.mem.Slots().Create(context.Background(), s.slot))
}

func (s *RegistrationHandlerSuite) TearDownTest() {
	s.bus.Close()
}

func TestRegistrationHandlerSuite(t *testing.T) {
	suite.Run(t, new(RegistrationHandlerSuite))
}

func (s *RegistrationHandlerSuite) submit(body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/registrations", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := s.e.NewContext(req, rec)
	s.Require().NoError(s.handler.Submit(c))
	return rec
}

func (s *RegistrationHandlerSuite) body(phone string, slotID uint64) string {
	b, err := json.Marshal(map[string]any{
		"name":            "Ahmad",
		"fathers_name":    "Yusuf",
		"email":           "ahmad@example.org",
		"whatsapp_mobile": phone,
		"date_of_birth":   "2001-04-12",
		"tajweed_level":   "Advanced",
		"slot_id":         slotID,
	})
	s.Require().NoError(err)
	return string(b)
}

func (s *RegistrationHandlerSuite) TestSubmit() {
	s.Run("admits with 201", func() {
		rec := s.submit(s.body("+491512345678", s.slot.ID))
		s.Equal(http.StatusCreated, rec.Code)

		var resp struct {
			Registrant model.Registrant `json:"registrant"`
		}
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.NotEmpty(resp.Registrant.ID)
		s.Equal(s.slot.ID, resp.Registrant.SlotID)
	})

	s.Run("rejects validation failure with 400 and the field", func() {
		rec := s.submit(`{"name":"","email":"x@example.org","whatsapp_mobile":"+491512340000","date_of_birth":"2001-04-12","tajweed_level":"Beginner","slot_id":1}`)
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Contains(rec.Body.String(), "validation_failed")
		s.Contains(rec.Body.String(), `"field":"name"`)
	})

	s.Run("rejects duplicate identity with 409", func() {
		s.submit(s.body("+491512341111", s.slot.ID))
		rec := s.submit(s.body("+49 1512 341-111", s.slot.ID)) // same number reformatted
		s.Equal(http.StatusConflict, rec.Code)
		s.Contains(rec.Body.String(), "duplicate_identity")
	})

	s.Run("rejects a full slot with 409", func() {
		slot := &model.Slot{DisplayName: "After Isha", SlotOrder: 9}
		s.Require().NoError(s.mem.Slots().Create(context.Background(), slot))

		s.submit(s.body("+15552220001", slot.ID))
		s.submit(s.body("+15552220002", slot.ID))
		rec := s.submit(s.body("+15552220003", slot.ID))
		s.Equal(http.StatusConflict, rec.Code)
		s.Contains(rec.Body.String(), "slot_full")
	})

	s.Run("rejects an unknown slot with 404", func() {
		rec := s.submit(s.body("+15552230001", 999))
		s.Equal(http.StatusNotFound, rec.Code)
	})
}

func (s *RegistrationHandlerSuite) TestFormTitle() {
	get := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/settings/form-title", nil)
		rec := httptest.NewRecorder()
		c := s.e.NewContext(req, rec)
		s.Require().NoError(s.handler.FormTitle(c))
		return rec
	}

	rec := get()
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "Tilawah Registration Form") // default before anyone sets it

	s.Require().NoError(s.mem.Settings().Set(context.Background(), repository.SettingFormTitle, "Ramadan Intake"))
	rec = get()
	s.Contains(rec.Body.String(), "Ramadan Intake")
}
