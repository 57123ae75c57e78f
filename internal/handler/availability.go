package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tilawah-registration/internal/availability"
)

// AvailabilityHandler serves the observer surface: a one-shot
// snapshot endpoint and a websocket that pushes a fresh snapshot on
// every change. Clients treat each delivery as a full replacement and
// re-fetch from scratch on reconnect; there is no delta replay.
type AvailabilityHandler struct {
	Ledger *availability.Ledger
	Sync   *availability.Synchronizer
	Hub    *availability.Hub
}

// NewAvailabilityHandler constructs an AvailabilityHandler.
func NewAvailabilityHandler(ledger *availability.Ledger, sync *availability.Synchronizer, hub *availability.Hub) *AvailabilityHandler {
	if ledger == nil || sync == nil || hub == nil {
		panic("nil dependency passed to NewAvailabilityHandler")
	}
	return &AvailabilityHandler{Ledger: ledger, Sync: sync, Hub: hub}
}

// Snapshot handles GET /v1/availability. It serves the synchronizer's
// latest snapshot when one exists and falls back to computing one
// directly for the first request after startup.
func (h *AvailabilityHandler) Snapshot(c echo.Context) error {
	if snap := h.Sync.Latest(); snap != nil {
		return c.JSON(http.StatusOK, snap)
	}
	snap, err := h.Ledger.Snapshot(c.Request().Context(), 0)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to compute availability"})
	}
	return c.JSON(http.StatusOK, snap)
}

// Slots handles GET /v1/slots. The registration form uses it to
// populate the slot selector; slots that are already full are still
// listed so the form can show them disabled.
func (h *AvailabilityHandler) Slots(c echo.Context) error {
	snap := h.Sync.Latest()
	if snap == nil {
		var err error
		snap, err = h.Ledger.Snapshot(c.Request().Context(), 0)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load slots"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": snap.Slots})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The dashboard and the form are served from other origins; the
	// snapshot is public data, so cross-origin watchers are fine.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

// Watch handles GET /v1/availability/watch. It upgrades to a
// websocket, sends the current snapshot immediately and then one
// message per change. A client that falls behind receives the newest
// snapshot instead of the backlog.
func (h *AvailabilityHandler) Watch(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		return nil
	}
	defer conn.Close()

	obs, cancel := h.Hub.Register()
	defer cancel()

	// Reader goroutine: we never expect client messages, but reading
	// is what surfaces close frames and pong responses.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return nil
		case <-c.Request().Context().Done():
			return nil
		case snap, ok := <-obs.C():
			if !ok {
				return nil
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(snap); err != nil {
				log.Printf("availability: push to observer failed: %v", err)
				return nil
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}
