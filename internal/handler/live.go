package handler

import (
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/hellocng/deepstack/internal/live"
    "github.com/hellocng/deepstack/internal/repository"
)

// LiveHandler upgrades room waitlist views to a websocket fed by the hub.
type LiveHandler struct {
    Hub   *live.Hub
    Rooms *repository.RoomRepo
}

// NewLiveHandler constructs a LiveHandler.
func NewLiveHandler(hub *live.Hub, rooms *repository.RoomRepo) *LiveHandler {
    if hub == nil || rooms == nil {
        panic("nil dependency passed to NewLiveHandler")
    }
    return &LiveHandler{Hub: hub, Rooms: rooms}
}

// Serve handles GET /v1/rooms/:id/waitlist/live.  After the upgrade the
// client receives every update published for the room until it
// disconnects.  The stream carries invalidation hints, not state; clients
// re-fetch the views they show.
func (h *LiveHandler) Serve(c echo.Context) error {
    roomID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || roomID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
    }
    if _, err := h.Rooms.GetByID(c.Request().Context(), roomID); err != nil {
        if errors.Is(err, repository.ErrRoomNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return h.Hub.Serve(c.Response(), c.Request(), roomID)
}
