package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tilawah-registration/internal/feed"
	"github.com/iliyamo/tilawah-registration/internal/model"
	"github.com/iliyamo/tilawah-registration/internal/repository"
)

// AdminHandler groups the administrative operations: slot management,
// the registrations table and runtime settings. Every mutation goes
// through the same stores as public submissions and publishes onto
// the same change feed, so connected observers see administrative
// changes exactly the way they see admissions.
type AdminHandler struct {
	Slots       repository.SlotStore
	Registrants repository.RegistrantStore
	Settings    repository.SettingStore
	Bus         *feed.Bus
}

// NewAdminHandler constructs an AdminHandler. All dependencies must
// be non-nil.
func NewAdminHandler(slots repository.SlotStore, registrants repository.RegistrantStore, settings repository.SettingStore, bus *feed.Bus) *AdminHandler {
	if slots == nil || registrants == nil || settings == nil || bus == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{Slots: slots, Registrants: registrants, Settings: settings, Bus: bus}
}

// CreateSlot handles POST /v1/admin/slots.
func (h *AdminHandler) CreateSlot(c echo.Context) error {
	var body struct {
		DisplayName string `json:"display_name"`
		SlotOrder   uint32 `json:"slot_order"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(body.DisplayName) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "display_name is required"})
	}
	slot := &model.Slot{DisplayName: strings.TrimSpace(body.DisplayName), SlotOrder: body.SlotOrder}
	if err := h.Slots.Create(c.Request().Context(), slot); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create slot"})
	}
	h.Bus.Publish(feed.Event{Kind: feed.SlotCreated, SlotID: slot.ID})
	return c.JSON(http.StatusCreated, echo.Map{"slot": slot})
}

// UpdateSlot handles PATCH /v1/admin/slots/:id. Only the display name
// and ordering are editable; registrants bound to the slot are not
// affected.
func (h *AdminHandler) UpdateSlot(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	var body struct {
		DisplayName *string `json:"display_name"`
		SlotOrder   *uint32 `json:"slot_order"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx := c.Request().Context()
	slot, err := h.Slots.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSlotNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load slot"})
	}
	if body.DisplayName != nil {
		name := strings.TrimSpace(*body.DisplayName)
		if name == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "display_name cannot be empty"})
		}
		slot.DisplayName = name
	}
	if body.SlotOrder != nil {
		slot.SlotOrder = *body.SlotOrder
	}
	if err := h.Slots.Update(ctx, slot); err != nil {
		if errors.Is(err, repository.ErrSlotNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update slot"})
	}
	h.Bus.Publish(feed.Event{Kind: feed.SlotUpdated, SlotID: slot.ID})
	return c.JSON(http.StatusOK, echo.Map{"slot": slot})
}

// DeleteSlot handles DELETE /v1/admin/slots/:id. A slot that still
// has registrants cannot be removed.
func (h *AdminHandler) DeleteSlot(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	if err := h.Slots.Delete(c.Request().Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "slot still has registrants"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete slot"})
		}
	}
	h.Bus.Publish(feed.Event{Kind: feed.SlotDeleted, SlotID: id})
	return c.NoContent(http.StatusNoContent)
}

// ListRegistrations handles GET /v1/admin/registrations.
func (h *AdminHandler) ListRegistrations(c echo.Context) error {
	items, err := h.Registrants.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load registrations"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// DeleteRegistration handles DELETE /v1/admin/registrations/:id.
// Removing a registrant frees the seat; the change feed event makes
// the freed capacity visible to every observer.
func (h *AdminHandler) DeleteRegistration(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid registration id"})
	}
	if err := h.Registrants.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrRegistrantNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "registration not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete registration"})
	}
	h.Bus.Publish(feed.Event{Kind: feed.RegistrantDeleted, RegistrantID: id})
	return c.NoContent(http.StatusNoContent)
}

// UpdateCapacity handles PUT /v1/admin/settings/capacity. The new
// limit applies to every admission decision that commits after the
// write; observers receive a fresh snapshot within one propagation
// cycle. Lowering the limit below a slot's occupancy never removes
// registrants — the slot just stops admitting until occupancy drops.
func (h *AdminHandler) UpdateCapacity(c echo.Context) error {
	var body struct {
		MaxPerSlot *int `json:"max_per_slot"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.MaxPerSlot == nil || *body.MaxPerSlot < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "max_per_slot must be zero or greater"})
	}
	if err := h.Settings.Set(c.Request().Context(), repository.SettingMaxPerSlot, strconv.Itoa(*body.MaxPerSlot)); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save setting"})
	}
	h.Bus.Publish(feed.Event{Kind: feed.SettingUpdated, SettingKey: repository.SettingMaxPerSlot})
	return c.JSON(http.StatusOK, echo.Map{"max_per_slot": *body.MaxPerSlot})
}

// UpdateFormTitle handles PUT /v1/admin/settings/form-title.
func (h *AdminHandler) UpdateFormTitle(c echo.Context) error {
	var body struct {
		FormTitle string `json:"form_title"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	title := strings.TrimSpace(body.FormTitle)
	if title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "form_title cannot be empty"})
	}
	if err := h.Settings.Set(c.Request().Context(), repository.SettingFormTitle, title); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save setting"})
	}
	h.Bus.Publish(feed.Event{Kind: feed.SettingUpdated, SettingKey: repository.SettingFormTitle})
	return c.JSON(http.StatusOK, echo.Map{"form_title": title})
}
