package handler

import (
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/hellocng/deepstack/internal/live"
    "github.com/hellocng/deepstack/internal/model"
    "github.com/hellocng/deepstack/internal/repository"
    "github.com/hellocng/deepstack/internal/seating"
    "github.com/hellocng/deepstack/internal/waitlist"
)

// SeatingHandler exposes the coordinator: seat availability reads,
// assignment, removal with optional requeue, and auto-assignment of the
// queue head.  The acting staff member comes from the JWT and is recorded
// as assigned_by on every occupancy the coordinator creates.
type SeatingHandler struct {
	Coord    *seating.Coordinator
	Tables   *repository.TableRepo
	Sessions *repository.TableSessionRepo
	Games    *repository.GameRepo
	Live     *live.Publisher
}

// NewSeatingHandler constructs a SeatingHandler.  Live may be nil.
func NewSeatingHandler(coord *seating.Coordinator, tables *repository.TableRepo, sessions *repository.TableSessionRepo, games *repository.GameRepo, livePub *live.Publisher) *SeatingHandler {
	if coord == nil || tables == nil || sessions == nil || games == nil {
		panic("nil dependency passed to NewSeatingHandler")
	}
	return &SeatingHandler{Coord: coord, Tables: tables, Sessions: sessions, Games: games, Live: livePub}
}

// ----- DTOs -----

type assignReq struct {
	EntryID    uint64 `json:"entry_id"`
	SeatNumber uint32 `json:"seat_number"`
}

type endSessionReq struct {
	RejoinWaitlist bool   `json:"rejoin_waitlist"`
	GameID         uint64 `json:"game_id"` // queue to rejoin; zero means the session's game
}

type autoAssignReq struct {
	RoomID uint64 `json:"room_id"`
}

// playerSessionView is the wire shape of an occupancy record.
type playerSessionView struct {
	ID             uint64     `json:"id"`
	TableSessionID uint64     `json:"table_session_id"`
	PlayerID       uint64     `json:"player_id"`
	SeatNumber     uint32     `json:"seat_number"`
	AssignedBy     *uint64    `json:"assigned_by,omitempty"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty"`
}

func newPlayerSessionView(ps *model.PlayerSession) playerSessionView {
	return playerSessionView{
		ID:             ps.ID,
		TableSessionID: ps.TableSessionID,
		PlayerID:       ps.PlayerID,
		SeatNumber:     ps.SeatNumber,
		AssignedBy:     ps.AssignedBy,
		StartTime:      ps.StartTime,
		EndTime:        ps.EndTime,
	}
}

// AvailableSeats handles GET /v1/tables/:id/seats.
func (h *SeatingHandler) AvailableSeats(c echo.Context) error {
	tableID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || tableID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table id"})
	}
	seats, err := h.Coord.AvailableSeats(c.Request().Context(), tableID)
	if err != nil {
		if errors.Is(err, repository.ErrTableNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "table not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read seats"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"table_id": tableID,
		"seats":    seats,
	})
}

// Occupancy handles GET /v1/tables/:id/occupancy.
func (h *SeatingHandler) Occupancy(c echo.Context) error {
	tableID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || tableID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table id"})
	}
	occ, err := h.Coord.TableOccupancy(c.Request().Context(), tableID)
	if err != nil {
		if errors.Is(err, repository.ErrTableNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "table not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read occupancy"})
	}
	return c.JSON(http.StatusOK, occ)
}

// Assign handles POST /v1/tables/:id/assign.  It seats a waitlist entry
// at a specific seat.  The 409s here are the interesting outcomes on a
// busy floor: the entry raced into another state, the seat was taken
// first, or the table has no running session.
func (h *SeatingHandler) Assign(c echo.Context) error {
	staffID, err := getStaffID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	tableID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || tableID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table id"})
	}
	var req assignReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.EntryID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "entry_id is required"})
	}
	ctx := c.Request().Context()

	entry, ps, err := h.Coord.AssignPlayerToTable(ctx, req.EntryID, tableID, req.SeatNumber, staffID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEntryNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "entry not found"})
		case errors.Is(err, repository.ErrTableNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "table not found"})
		case errors.Is(err, seating.ErrInvalidSeat):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat number out of range"})
		case errors.Is(err, seating.ErrTableInactive):
			return c.JSON(http.StatusConflict, echo.Map{"error": "table is not active"})
		case errors.Is(err, seating.ErrNoActiveSession):
			return c.JSON(http.StatusConflict, echo.Map{"error": "table has no active session"})
		case errors.Is(err, seating.ErrSeatUnavailable):
			return c.JSON(http.StatusConflict, echo.Map{"error": "seat is not available"})
		case errors.Is(err, waitlist.ErrInvalidTransition):
			return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
		case errors.Is(err, waitlist.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "entry changed concurrently, reload and retry"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "assignment failed"})
	}

	h.Live.Publish(ctx, live.Update{
		Type:     live.UpdatePlayerSeated,
		RoomID:   entry.RoomID,
		GameID:   entry.GameID,
		EntryID:  entry.ID,
		PlayerID: entry.PlayerID,
		TableID:  tableID,
		Status:   string(entry.Status),
	})
	return c.JSON(http.StatusCreated, echo.Map{
		"entry":          newEntryView(entry),
		"player_session": newPlayerSessionView(ps),
	})
}

// EndSession handles POST /v1/seating/sessions/:id/end.  It closes an
// occupancy record; with rejoin_waitlist the vacated player is appended
// to the back of a queue, the session's game unless the body names
// another one.
func (h *SeatingHandler) EndSession(c echo.Context) error {
	sessionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || sessionID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid player session id"})
	}
	var req endSessionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx := c.Request().Context()

	ps, entry, err := h.Coord.RemovePlayerFromTable(ctx, sessionID, req.RejoinWaitlist, req.GameID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrPlayerSessionNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "player session not found"})
		case errors.Is(err, seating.ErrSessionEnded):
			return c.JSON(http.StatusConflict, echo.Map{"error": "player session already ended"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to end session"})
	}

	if roomID, gameID, ok := h.removalScope(c, ps, entry); ok {
		h.Live.Publish(ctx, live.Update{
			Type:     live.UpdatePlayerRemoved,
			RoomID:   roomID,
			GameID:   gameID,
			PlayerID: ps.PlayerID,
			Status:   string(model.StatusSeated),
		})
	}

	resp := echo.Map{
		"player_session": newPlayerSessionView(ps),
	}
	if entry != nil {
		resp["rejoined_entry"] = newEntryView(entry)
	}
	return c.JSON(http.StatusOK, resp)
}

// removalScope resolves which room and game a removal touched, for the
// live update.  The rejoined entry carries both; otherwise the chain is
// player session → table session → game.  Failures just skip the update.
func (h *SeatingHandler) removalScope(c echo.Context, ps *model.PlayerSession, entry *model.WaitlistEntry) (uint64, uint64, bool) {
	if entry != nil {
		return entry.RoomID, entry.GameID, true
	}
	ctx := c.Request().Context()
	session, err := h.Sessions.GetByID(ctx, ps.TableSessionID)
	if err != nil {
		return 0, 0, false
	}
	game, err := h.Games.GetByID(ctx, session.GameID)
	if err != nil {
		return 0, 0, false
	}
	return game.RoomID, game.ID, true
}

// NextSeat handles GET /v1/games/:id/next-seat.  It reports where the
// next assignment for this game would land without performing it.
func (h *SeatingHandler) NextSeat(c echo.Context) error {
	gameID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || gameID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid game id"})
	}
	table, seat, err := h.Coord.FindNextAvailableSeat(c.Request().Context(), gameID)
	if err != nil {
		if errors.Is(err, seating.ErrNoSeatAvailable) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no free seat for this game"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to scan tables"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"table_id":    table.ID,
		"label":       table.Label,
		"seat_number": seat,
	})
}

// AutoAssign handles POST /v1/games/:id/auto-assign.  It seats the front
// of the game's waiting queue at the first free seat.  The body's room_id
// guards against a stale floor view assigning into the wrong room.
func (h *SeatingHandler) AutoAssign(c echo.Context) error {
	staffID, err := getStaffID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	gameID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || gameID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid game id"})
	}
	var req autoAssignReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.RoomID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "room_id is required"})
	}
	ctx := c.Request().Context()

	entry, ps, err := h.Coord.AutoAssignNextPlayer(ctx, req.RoomID, gameID, staffID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrGameNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "game not found"})
		case errors.Is(err, seating.ErrGameRoomMismatch):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "game does not belong to this room"})
		case errors.Is(err, seating.ErrNoWaitingEntry):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no waiting entries for this game"})
		case errors.Is(err, seating.ErrNoSeatAvailable):
			return c.JSON(http.StatusConflict, echo.Map{"error": "no free seat for this game"})
		case errors.Is(err, seating.ErrNoActiveSession):
			return c.JSON(http.StatusConflict, echo.Map{"error": "table has no active session"})
		case errors.Is(err, seating.ErrSeatUnavailable):
			return c.JSON(http.StatusConflict, echo.Map{"error": "seat is not available"})
		case errors.Is(err, waitlist.ErrInvalidTransition):
			return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
		case errors.Is(err, waitlist.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "entry changed concurrently, reload and retry"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "auto-assignment failed"})
	}

	h.Live.Publish(ctx, live.Update{
		Type:     live.UpdatePlayerSeated,
		RoomID:   entry.RoomID,
		GameID:   entry.GameID,
		EntryID:  entry.ID,
		PlayerID: entry.PlayerID,
		Status:   string(entry.Status),
	})
	return c.JSON(http.StatusCreated, echo.Map{
		"entry":          newEntryView(entry),
		"player_session": newPlayerSessionView(ps),
	})
}
