package handler

import (
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/hellocng/deepstack/internal/repository"
    "github.com/hellocng/deepstack/internal/waitlist"
)

// SweeperHandler arms and disarms the per-room expiry sweep.  Rooms arm
// their sweep when their waitlist view goes active for the day and disarm
// at close; schedules live for the process only, a restart starts with
// every room disarmed.
type SweeperHandler struct {
    Sweeper *waitlist.Sweeper
    Rooms   *repository.RoomRepo
}

// NewSweeperHandler constructs a SweeperHandler.
func NewSweeperHandler(s *waitlist.Sweeper, rooms *repository.RoomRepo) *SweeperHandler {
    if s == nil || rooms == nil {
        panic("nil dependency passed to NewSweeperHandler")
    }
    return &SweeperHandler{Sweeper: s, Rooms: rooms}
}

// Arm handles POST /v1/rooms/:id/waitlist/sweeper.  Arming an already
// armed room is a no-op success.
func (h *SweeperHandler) Arm(c echo.Context) error {
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
    h.Sweeper.Arm(roomID)
    return c.JSON(http.StatusOK, echo.Map{
        "room_id": roomID,
        "armed":   true,
    })
}

// Disarm handles DELETE /v1/rooms/:id/waitlist/sweeper.  Disarming an
// idle room is a no-op success.
func (h *SweeperHandler) Disarm(c echo.Context) error {
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
    h.Sweeper.Disarm(roomID)
    return c.JSON(http.StatusOK, echo.Map{
        "room_id": roomID,
        "armed":   false,
    })
}
