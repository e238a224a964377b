package handler

import (
    "context"
    "errors"
    "log"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/hellocng/deepstack/internal/config"
    "github.com/hellocng/deepstack/internal/live"
    "github.com/hellocng/deepstack/internal/model"
    "github.com/hellocng/deepstack/internal/queue"
    "github.com/hellocng/deepstack/internal/repository"
    "github.com/hellocng/deepstack/internal/waitlist"
)

// WaitlistHandler exposes the queue operations: joining, reordering,
// status transitions and the game/room views.  Writes go through the
// position and lifecycle managers so ordering and status invariants hold;
// the repositories here serve reads and existence checks only.  After a
// successful write the handler publishes a live update for the room, and
// the notified transition additionally emits a broker event for the
// downstream notifier.
type WaitlistHandler struct {
	Entries   *repository.WaitlistRepo
	Games     *repository.GameRepo
	Rooms     *repository.RoomRepo
	Players   *repository.PlayerRepo
	Positions *waitlist.PositionManager
	Lifecycle *waitlist.LifecycleManager
	Policy    config.WaitlistPolicy
	Live      *live.Publisher
}

// NewWaitlistHandler constructs a WaitlistHandler.  Live may be nil for
// deployments without Redis; everything else must be non-nil.
func NewWaitlistHandler(entries *repository.WaitlistRepo, games *repository.GameRepo, rooms *repository.RoomRepo, players *repository.PlayerRepo, positions *waitlist.PositionManager, lifecycle *waitlist.LifecycleManager, policy config.WaitlistPolicy, livePub *live.Publisher) *WaitlistHandler {
	if entries == nil || games == nil || rooms == nil || players == nil || positions == nil || lifecycle == nil {
		panic("nil dependency passed to NewWaitlistHandler")
	}
	return &WaitlistHandler{
		Entries:   entries,
		Games:     games,
		Rooms:     rooms,
		Players:   players,
		Positions: positions,
		Lifecycle: lifecycle,
		Policy:    policy,
		Live:      livePub,
	}
}

// ----- DTOs -----

type joinReq struct {
	PlayerID uint64   `json:"player_id"`
	Notes    string   `json:"notes"`
	Position *float64 `json:"position"` // insert at this rank slot instead of the back
	CalledIn bool     `json:"calledin"` // create as a phone-in reservation
}

type moveReq struct {
	Direction string `json:"direction"` // up | down | top | bottom
}

type statusReq struct {
	Target      string `json:"target"`       // notified | waiting | cancelled
	CancelledBy string `json:"cancelled_by"` // player | staff | system (cancel only)
}

// entryView is the wire shape of a waitlist entry.
type entryView struct {
	ID          uint64     `json:"id"`
	GameID      uint64     `json:"game_id"`
	RoomID      uint64     `json:"room_id"`
	PlayerID    uint64     `json:"player_id"`
	Status      string     `json:"status"`
	Position    float64    `json:"position"`
	Notes       string     `json:"notes,omitempty"`
	NotifiedAt  *time.Time `json:"notified_at,omitempty"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy *string    `json:"cancelled_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func newEntryView(e *model.WaitlistEntry) entryView {
	return entryView{
		ID:          e.ID,
		GameID:      e.GameID,
		RoomID:      e.RoomID,
		PlayerID:    e.PlayerID,
		Status:      string(e.Status),
		Position:    e.Position,
		Notes:       e.Notes,
		NotifiedAt:  e.NotifiedAt,
		CheckedInAt: e.CheckedInAt,
		CancelledAt: e.CancelledAt,
		CancelledBy: e.CancelledBy,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func entryViews(entries []model.WaitlistEntry) []entryView {
	views := make([]entryView, 0, len(entries))
	for i := range entries {
		views = append(views, newEntryView(&entries[i]))
	}
	return views
}

// GameWaitlist handles GET /v1/games/:id/waitlist.  It returns the
// game's waiting queue in rank order plus the calledin/notified block,
// which holds no rank and is shown separately by floor displays.
func (h *WaitlistHandler) GameWaitlist(c echo.Context) error {
	gameID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || gameID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid game id"})
	}
	ctx := c.Request().Context()
	game, err := h.Games.GetByID(ctx, gameID)
	if err != nil {
		if errors.Is(err, repository.ErrGameNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "game not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	entries, err := h.Entries.ActiveByGame(ctx, gameID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load waitlist"})
	}
	waiting := make([]entryView, 0, len(entries))
	pending := make([]entryView, 0)
	for i := range entries {
		if entries[i].Status == model.StatusWaiting {
			waiting = append(waiting, newEntryView(&entries[i]))
		} else {
			pending = append(pending, newEntryView(&entries[i]))
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"game_id": game.ID,
		"name":    game.Name,
		"waiting": waiting,
		"pending": pending,
	})
}

// Join handles POST /v1/games/:id/waitlist.  The default is a walk-in
// appended to the back of the queue.  A "position" in the body inserts at
// that rank slot instead; "calledin" creates a phone-in reservation that
// holds no rank until the player checks in.  The two are mutually
// exclusive.
func (h *WaitlistHandler) Join(c echo.Context) error {
	gameID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || gameID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid game id"})
	}
	var req joinReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.PlayerID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "player_id is required"})
	}
	if req.CalledIn && req.Position != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "calledin entries hold no queue position"})
	}
	ctx := c.Request().Context()
	game, err := h.Games.GetByID(ctx, gameID)
	if err != nil {
		if errors.Is(err, repository.ErrGameNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "game not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !game.IsActive {
		return c.JSON(http.StatusConflict, echo.Map{"error": "game is not accepting entries"})
	}
	if _, err := h.Players.GetByID(ctx, req.PlayerID); err != nil {
		if errors.Is(err, repository.ErrPlayerNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "player not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	var entry *model.WaitlistEntry
	switch {
	case req.CalledIn:
		entry, err = h.Lifecycle.AddCalledIn(ctx, game.ID, req.PlayerID, game.RoomID, req.Notes)
	case req.Position != nil:
		entry, err = h.Positions.InsertAt(ctx, game.ID, req.PlayerID, game.RoomID, *req.Position, req.Notes)
	default:
		entry, err = h.Positions.AddToEnd(ctx, game.ID, req.PlayerID, game.RoomID, req.Notes)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to join waitlist"})
	}

	h.Live.Publish(ctx, live.Update{
		Type:     live.UpdateEntryJoined,
		RoomID:   entry.RoomID,
		GameID:   entry.GameID,
		EntryID:  entry.ID,
		PlayerID: entry.PlayerID,
		Status:   string(entry.Status),
	})
	return c.JSON(http.StatusCreated, newEntryView(entry))
}

// Move handles POST /v1/waitlist/entries/:id/move.  The response reports
// whether a rank actually changed: boundary moves (up at the front, down
// at the back) and raced moves return moved=false with 200, they are
// no-ops, not failures.
func (h *WaitlistHandler) Move(c echo.Context) error {
	entryID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || entryID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid entry id"})
	}
	var req moveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx := c.Request().Context()

	var moved bool
	switch req.Direction {
	case "up":
		moved, err = h.Positions.MoveUp(ctx, entryID)
	case "down":
		moved, err = h.Positions.MoveDown(ctx, entryID)
	case "top":
		moved, err = h.Positions.MoveToTop(ctx, entryID)
	case "bottom":
		moved, err = h.Positions.MoveToBottom(ctx, entryID)
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "direction must be up, down, top or bottom"})
	}
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEntryNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "entry not found"})
		case errors.Is(err, waitlist.ErrNotWaiting):
			return c.JSON(http.StatusConflict, echo.Map{"error": "entry is not waiting"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to move entry"})
	}

	entry, err := h.Entries.Entry(ctx, entryID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to reload entry"})
	}
	if moved {
		h.Live.Publish(ctx, live.Update{
			Type:     live.UpdateEntryMoved,
			RoomID:   entry.RoomID,
			GameID:   entry.GameID,
			EntryID:  entry.ID,
			PlayerID: entry.PlayerID,
			Status:   string(entry.Status),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"moved": moved,
		"entry": newEntryView(entry),
	})
}

// Rebalance handles POST /v1/games/:id/waitlist/rebalance.  It rewrites
// the game's waiting ranks to 1..N and returns the fresh queue.  Staff
// normally never need this, reorders rebalance on their own when gaps
// collapse, but the endpoint makes recovery explicit after bulk imports.
func (h *WaitlistHandler) Rebalance(c echo.Context) error {
	gameID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || gameID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid game id"})
	}
	ctx := c.Request().Context()
	game, err := h.Games.GetByID(ctx, gameID)
	if err != nil {
		if errors.Is(err, repository.ErrGameNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "game not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if err := h.Positions.Rebalance(ctx, gameID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "rebalance failed"})
	}
	entries, err := h.Entries.WaitingByGame(ctx, gameID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load waitlist"})
	}
	h.Live.Publish(ctx, live.Update{
		Type:   live.UpdateQueueRebalanced,
		RoomID: game.RoomID,
		GameID: game.ID,
	})
	return c.JSON(http.StatusOK, echo.Map{
		"game_id": game.ID,
		"waiting": entryViews(entries),
	})
}

// UpdateStatus handles POST /v1/waitlist/entries/:id/status.  Staff may
// request notified, waiting or cancelled; seated is owned by the seating
// coordinator and expired by the sweeper, so both are rejected here.
// "waiting" covers two cases by current status: calledin/notified check
// in (keeping their timestamps), cancelled/expired rejoin fresh.
func (h *WaitlistHandler) UpdateStatus(c echo.Context) error {
	entryID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || entryID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid entry id"})
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx := c.Request().Context()

	var entry *model.WaitlistEntry
	switch req.Target {
	case "notified":
		entry, err = h.Lifecycle.MarkNotified(ctx, entryID)
	case "waiting":
		entry, err = h.toWaiting(ctx, entryID)
	case "cancelled":
		by := req.CancelledBy
		if by == "" {
			by = model.CancelledByStaff
		}
		entry, err = h.Lifecycle.Cancel(ctx, entryID, by)
	case "seated":
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seated is set by seat assignment"})
	case "expired":
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "expired is set by the expiry sweep"})
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "target must be notified, waiting or cancelled"})
	}
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEntryNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "entry not found"})
		case errors.Is(err, waitlist.ErrInvalidTransition):
			return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
		case errors.Is(err, waitlist.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "entry changed concurrently, reload and retry"})
		case errors.Is(err, waitlist.ErrInvalidCancelParty):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "cancelled_by must be player, staff or system"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update status"})
	}

	h.Live.Publish(ctx, live.Update{
		Type:     live.UpdateStatusChanged,
		RoomID:   entry.RoomID,
		GameID:   entry.GameID,
		EntryID:  entry.ID,
		PlayerID: entry.PlayerID,
		Status:   string(entry.Status),
	})
	if req.Target == "notified" {
		h.emitNotifiedEvent(ctx, entry)
	}
	return c.JSON(http.StatusOK, newEntryView(entry))
}

// toWaiting routes the waiting target to the transition that owns the
// entry's current status: check-in for calledin/notified, rejoin for
// cancelled/expired.
func (h *WaitlistHandler) toWaiting(ctx context.Context, entryID uint64) (*model.WaitlistEntry, error) {
	e, err := h.Entries.Entry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	switch e.Status {
	case model.StatusCalledIn, model.StatusNotified:
		return h.Lifecycle.RevertToWaiting(ctx, entryID)
	case model.StatusCancelled, model.StatusExpired:
		return h.Lifecycle.Rejoin(ctx, entryID)
	}
	return nil, waitlist.ErrInvalidTransition
}

// emitNotifiedEvent publishes the broker event for a notified entry.  The
// lookups enrich the payload so the downstream notifier needs no database
// access; failures degrade to an event with bare identifiers.  Publishing
// runs in the background, the HTTP response does not wait on the broker.
func (h *WaitlistHandler) emitNotifiedEvent(ctx context.Context, entry *model.WaitlistEntry) {
	ev := queue.PlayerNotifiedEvent{
		EntryID:  entry.ID,
		PlayerID: entry.PlayerID,
		RoomID:   entry.RoomID,
		GameID:   entry.GameID,
	}
	notifiedAt := time.Now().UTC()
	if entry.NotifiedAt != nil {
		notifiedAt = *entry.NotifiedAt
	}
	ev.NotifiedAt = notifiedAt.Format(time.RFC3339)
	ev.RespondBy = notifiedAt.Add(h.Policy.NotifyWindow).Format(time.RFC3339)

	if p, err := h.Players.GetByID(ctx, entry.PlayerID); err == nil {
		ev.PlayerAlias = p.Alias
		if p.Phone != nil {
			ev.Phone = *p.Phone
		}
	} else {
		log.Printf("notify: enrich player %d: %v", entry.PlayerID, err)
	}
	if g, err := h.Games.GetByID(ctx, entry.GameID); err == nil {
		ev.GameName = g.Name
	} else {
		log.Printf("notify: enrich game %d: %v", entry.GameID, err)
	}
	if r, err := h.Rooms.GetByID(ctx, entry.RoomID); err == nil {
		ev.RoomName = r.Name
	} else {
		log.Printf("notify: enrich room %d: %v", entry.RoomID, err)
	}

	go func() {
		// Failures are logged by the publisher; the notified transition
		// stands either way.
		_ = queue.PublishPlayerNotified(context.Background(), ev)
	}()
}

// RoomWaitlist handles GET /v1/rooms/:id/waitlist.  It returns every
// active entry of the room across its games, grouped by game and ordered
// the way floor displays show them: waiting by rank, then the
// calledin/notified block.
func (h *WaitlistHandler) RoomWaitlist(c echo.Context) error {
	roomID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || roomID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	ctx := c.Request().Context()
	room, err := h.Rooms.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	entries, err := h.Entries.ActiveByRoom(ctx, roomID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load waitlist"})
	}
	games, err := h.Games.ListByRoom(ctx, roomID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load games"})
	}
	nameByID := make(map[uint64]string, len(games))
	for _, g := range games {
		nameByID[g.ID] = g.Name
	}

	type gameBlock struct {
		GameID  uint64      `json:"game_id"`
		Name    string      `json:"name"`
		Waiting []entryView `json:"waiting"`
		Pending []entryView `json:"pending"`
	}
	blocks := make([]*gameBlock, 0)
	byGame := make(map[uint64]*gameBlock)
	for i := range entries {
		b, ok := byGame[entries[i].GameID]
		if !ok {
			b = &gameBlock{GameID: entries[i].GameID, Name: nameByID[entries[i].GameID], Waiting: []entryView{}, Pending: []entryView{}}
			byGame[entries[i].GameID] = b
			blocks = append(blocks, b)
		}
		if entries[i].Status == model.StatusWaiting {
			b.Waiting = append(b.Waiting, newEntryView(&entries[i]))
		} else {
			b.Pending = append(b.Pending, newEntryView(&entries[i]))
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"room_id": room.ID,
		"name":    room.Name,
		"games":   blocks,
	})
}

// ListRooms handles GET /v1/rooms.  It lists the active rooms so a floor
// client can pick the one it drives.
func (h *WaitlistHandler) ListRooms(c echo.Context) error {
	rooms, err := h.Rooms.ListActive(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load rooms"})
	}
	type roomView struct {
		ID   uint64 `json:"id"`
		Name string `json:"name"`
	}
	views := make([]roomView, 0, len(rooms))
	for _, r := range rooms {
		views = append(views, roomView{ID: r.ID, Name: r.Name})
	}
	return c.JSON(http.StatusOK, echo.Map{"rooms": views})
}
