package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tilawah-registration/internal/admission"
	"github.com/iliyamo/tilawah-registration/internal/repository"
)

// RegistrationHandler exposes the public registration surface: the
// submission endpoint plus the settings the form needs to render
// itself.
type RegistrationHandler struct {
	Controller *admission.Controller
	Settings   repository.SettingStore
}

// NewRegistrationHandler constructs a RegistrationHandler.
func NewRegistrationHandler(controller *admission.Controller, settings repository.SettingStore) *RegistrationHandler {
	if controller == nil {
		panic("nil controller passed to NewRegistrationHandler")
	}
	return &RegistrationHandler{Controller: controller, Settings: settings}
}

// Submit handles POST /v1/registrations. The response codes mirror
// the admission outcomes: 201 admitted, 400 malformed input, 409 with
// a distinct code for duplicate identity versus full slot (the form
// tells the user different things), 404 unknown slot, 503 when the
// store is unreachable and a retry with backoff is appropriate.
func (h *RegistrationHandler) Submit(c echo.Context) error {
	var req admission.Request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	reg, err := h.Controller.Submit(c.Request().Context(), &req)
	if err != nil {
		var verr *admission.ValidationError
		switch {
		case errors.As(err, &verr):
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":   "validation_failed",
				"field":   verr.Field,
				"message": verr.Message,
			})
		case errors.Is(err, repository.ErrDuplicateIdentity):
			return c.JSON(http.StatusConflict, echo.Map{
				"error":   "duplicate_identity",
				"message": "this WhatsApp number is already registered",
			})
		case errors.Is(err, repository.ErrSlotFull):
			return c.JSON(http.StatusConflict, echo.Map{
				"error":   "slot_full",
				"message": "this slot is now full, please select another slot",
			})
		case errors.Is(err, repository.ErrSlotNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
		case errors.Is(err, repository.ErrUnavailable):
			return c.JSON(http.StatusServiceUnavailable, echo.Map{
				"error":   "unavailable",
				"message": "registration is temporarily unavailable, please retry",
			})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
		}
	}

	return c.JSON(http.StatusCreated, echo.Map{"registrant": reg})
}

// FormTitle handles GET /v1/settings/form-title. The form shows a
// configurable title; a sensible default applies until an
// administrator sets one.
func (h *RegistrationHandler) FormTitle(c echo.Context) error {
	title, err := h.Settings.Get(c.Request().Context(), repository.SettingFormTitle)
	if err != nil {
		if errors.Is(err, repository.ErrSettingNotFound) {
			title = "Tilawah Registration Form"
		} else {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load settings"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"form_title": title})
}
