// Package seating bridges waitlist entries to physical seats.  The
// coordinator computes seat availability from open occupancy records,
// creates the occupancy row for an assignment and then drives the entry
// to seated through the lifecycle manager.  The store offers no
// multi-table transactions from this layer, so the one two-step write
// (create occupancy, then transition) carries a compensating rollback:
// when the transition fails the just-created row is deleted.
package seating

import (
    "context"
    "errors"
    "fmt"
    "log"
    "time"

    "github.com/hellocng/deepstack/internal/model"
    "github.com/hellocng/deepstack/internal/repository"
    "github.com/hellocng/deepstack/internal/waitlist"
)

// TableStore provides the physical tables players are seated at.
type TableStore interface {
    GetByID(ctx context.Context, id uint64) (*model.GameTable, error)
    ListActiveByGame(ctx context.Context, gameID uint64) ([]*model.GameTable, error)
}

// SessionStore resolves table seating sessions.
type SessionStore interface {
    OpenByTable(ctx context.Context, tableID uint64) (*model.TableSession, error)
    GetByID(ctx context.Context, id uint64) (*model.TableSession, error)
}

// OccupancyStore reads and writes seat occupancy records.
type OccupancyStore interface {
    GetByID(ctx context.Context, id uint64) (*model.PlayerSession, error)
    OpenBySession(ctx context.Context, sessionID uint64) ([]model.PlayerSession, error)
    SeatOccupied(ctx context.Context, sessionID uint64, seatNumber uint32) (bool, error)
    Create(ctx context.Context, s *model.PlayerSession) error
    End(ctx context.Context, id uint64) (bool, error)
    DeleteOpen(ctx context.Context, id uint64) error
}

// EntryReader reads waitlist entries for assignment.
type EntryReader interface {
    Entry(ctx context.Context, id uint64) (*model.WaitlistEntry, error)
    FirstWaiting(ctx context.Context, gameID uint64) (*model.WaitlistEntry, error)
}

// GameStore validates the game/room pairing during auto-assignment.
type GameStore interface {
    GetByID(ctx context.Context, id uint64) (*model.Game, error)
}

// Seater transitions an entry to seated.  *waitlist.LifecycleManager
// implements it.
type Seater interface {
    Seat(ctx context.Context, entryID uint64) (*model.WaitlistEntry, error)
}

// Enqueuer appends a fresh waiting entry to a game's queue.
// *waitlist.PositionManager implements it.
type Enqueuer interface {
    AddToEnd(ctx context.Context, gameID, playerID, roomID uint64, notes string) (*model.WaitlistEntry, error)
}

// SeatedPlayer is one occupied seat in a table occupancy view.
type SeatedPlayer struct {
    PlayerSessionID uint64    `json:"player_session_id"`
    PlayerID        uint64    `json:"player_id"`
    SeatNumber      uint32    `json:"seat_number"`
    Since           time.Time `json:"since"`
}

// TableOccupancy summarizes who is seated at a table right now.
type TableOccupancy struct {
    TableID   uint64         `json:"table_id"`
    Label     string         `json:"label"`
    SeatCount uint32         `json:"seat_count"`
    Occupied  int            `json:"occupied"`
    Available int            `json:"available"`
    Seats     []SeatedPlayer `json:"seats"`
}

// Coordinator performs seat assignment and removal.  Operations fail with
// sentinel errors and never retry; a failed operation leaves prior state
// intact except for the documented assignment window, which rolls back.
type Coordinator struct {
    tables    TableStore
    sessions  SessionStore
    occupancy OccupancyStore
    entries   EntryReader
    games     GameStore
    seater    Seater
    enqueuer  Enqueuer
}

// NewCoordinator constructs a Coordinator over the given stores and the
// waitlist managers.
func NewCoordinator(tables TableStore, sessions SessionStore, occupancy OccupancyStore, entries EntryReader, games GameStore, seater Seater, enqueuer Enqueuer) *Coordinator {
    return &Coordinator{
        tables:    tables,
        sessions:  sessions,
        occupancy: occupancy,
        entries:   entries,
        games:     games,
        seater:    seater,
        enqueuer:  enqueuer,
    }
}

// AvailableSeats returns the free seat numbers of a table in ascending
// order.  A table with no open session has every seat free, though
// assignment into it will fail until a session opens.
func (c *Coordinator) AvailableSeats(ctx context.Context, tableID uint64) ([]uint32, error) {
    table, err := c.tables.GetByID(ctx, tableID)
    if err != nil {
        return nil, fmt.Errorf("load table: %w", err)
    }
    session, err := c.sessions.OpenByTable(ctx, tableID)
    if err != nil {
        if errors.Is(err, repository.ErrNoOpenSession) {
            return allSeats(table.SeatCount), nil
        }
        return nil, fmt.Errorf("resolve open session: %w", err)
    }
    open, err := c.occupancy.OpenBySession(ctx, session.ID)
    if err != nil {
        return nil, fmt.Errorf("read occupancy: %w", err)
    }
    taken := make(map[uint32]bool, len(open))
    for _, ps := range open {
        taken[ps.SeatNumber] = true
    }
    free := make([]uint32, 0, int(table.SeatCount)-len(open))
    for n := uint32(1); n <= table.SeatCount; n++ {
        if !taken[n] {
            free = append(free, n)
        }
    }
    return free, nil
}

// IsSeatAvailable reports whether a seat is free at a table.  The answer
// follows AvailableSeats: without an open session every in-range seat
// reads as free.
func (c *Coordinator) IsSeatAvailable(ctx context.Context, tableID uint64, seatNumber uint32) (bool, error) {
    table, err := c.tables.GetByID(ctx, tableID)
    if err != nil {
        return false, fmt.Errorf("load table: %w", err)
    }
    if seatNumber == 0 || seatNumber > table.SeatCount {
        return false, ErrInvalidSeat
    }
    session, err := c.sessions.OpenByTable(ctx, tableID)
    if err != nil {
        if errors.Is(err, repository.ErrNoOpenSession) {
            return true, nil
        }
        return false, fmt.Errorf("resolve open session: %w", err)
    }
    occupied, err := c.occupancy.SeatOccupied(ctx, session.ID, seatNumber)
    if err != nil {
        return false, fmt.Errorf("read occupancy: %w", err)
    }
    return !occupied, nil
}

// TableOccupancy returns the occupancy summary of a table: totals plus
// who is in which seat since when.
func (c *Coordinator) TableOccupancy(ctx context.Context, tableID uint64) (*TableOccupancy, error) {
    table, err := c.tables.GetByID(ctx, tableID)
    if err != nil {
        return nil, fmt.Errorf("load table: %w", err)
    }
    occ := &TableOccupancy{
        TableID:   table.ID,
        Label:     table.Label,
        SeatCount: table.SeatCount,
        Available: int(table.SeatCount),
        Seats:     []SeatedPlayer{},
    }
    session, err := c.sessions.OpenByTable(ctx, tableID)
    if err != nil {
        if errors.Is(err, repository.ErrNoOpenSession) {
            return occ, nil
        }
        return nil, fmt.Errorf("resolve open session: %w", err)
    }
    open, err := c.occupancy.OpenBySession(ctx, session.ID)
    if err != nil {
        return nil, fmt.Errorf("read occupancy: %w", err)
    }
    for _, ps := range open {
        occ.Seats = append(occ.Seats, SeatedPlayer{
            PlayerSessionID: ps.ID,
            PlayerID:        ps.PlayerID,
            SeatNumber:      ps.SeatNumber,
            Since:           ps.StartTime,
        })
    }
    occ.Occupied = len(open)
    occ.Available = int(table.SeatCount) - len(open)
    return occ, nil
}

// AssignPlayerToTable seats a waitlist entry at a specific seat.  It
// re-validates seat availability against the open session (the race guard
// for concurrent assignments), creates the occupancy record, then
// transitions the entry to seated.  When the transition fails the
// occupancy record is rolled back so no phantom seating remains.
func (c *Coordinator) AssignPlayerToTable(ctx context.Context, entryID, tableID uint64, seatNumber uint32, assignedBy uint64) (*model.WaitlistEntry, *model.PlayerSession, error) {
    entry, err := c.entries.Entry(ctx, entryID)
    if err != nil {
        return nil, nil, fmt.Errorf("load entry: %w", err)
    }
    if !waitlist.CanTransition(entry.Status, model.StatusSeated) {
        return nil, nil, fmt.Errorf("entry %d: %w: %s → %s", entryID, waitlist.ErrInvalidTransition, entry.Status, model.StatusSeated)
    }
    table, err := c.tables.GetByID(ctx, tableID)
    if err != nil {
        return nil, nil, fmt.Errorf("load table: %w", err)
    }
    if !table.IsActive {
        return nil, nil, ErrTableInactive
    }
    if seatNumber == 0 || seatNumber > table.SeatCount {
        return nil, nil, ErrInvalidSeat
    }
    session, err := c.sessions.OpenByTable(ctx, tableID)
    if err != nil {
        if errors.Is(err, repository.ErrNoOpenSession) {
            return nil, nil, ErrNoActiveSession
        }
        return nil, nil, fmt.Errorf("resolve open session: %w", err)
    }
    occupied, err := c.occupancy.SeatOccupied(ctx, session.ID, seatNumber)
    if err != nil {
        return nil, nil, fmt.Errorf("read occupancy: %w", err)
    }
    if occupied {
        return nil, nil, ErrSeatUnavailable
    }

    ps := &model.PlayerSession{
        TableSessionID: session.ID,
        PlayerID:       entry.PlayerID,
        SeatNumber:     seatNumber,
    }
    if assignedBy != 0 {
        ps.AssignedBy = &assignedBy
    }
    if err := c.occupancy.Create(ctx, ps); err != nil {
        if errors.Is(err, repository.ErrConflict) {
            // A concurrent assignment won the seat between the
            // availability re-check and the insert.
            return nil, nil, ErrSeatUnavailable
        }
        return nil, nil, fmt.Errorf("create occupancy: %w", err)
    }

    seated, err := c.seater.Seat(ctx, entryID)
    if err != nil {
        // Compensate: the occupancy row exists but the entry never
        // became seated.  Remove the row so the seat is not leaked.
        if derr := c.occupancy.DeleteOpen(ctx, ps.ID); derr != nil {
            log.Printf("seating: rollback of occupancy %d failed: %v", ps.ID, derr)
        }
        return nil, nil, fmt.Errorf("seat entry %d: %w", entryID, err)
    }
    return seated, ps, nil
}

// RemovePlayerFromTable closes an occupancy record and optionally
// re-queues the vacated player as a fresh waiting entry.  Re-queueing is
// best effort: its failure is logged, not rolled back onto the removal.
// gameID selects the queue to rejoin; zero means the game the session was
// running.
func (c *Coordinator) RemovePlayerFromTable(ctx context.Context, playerSessionID uint64, rejoin bool, gameID uint64) (*model.PlayerSession, *model.WaitlistEntry, error) {
    ps, err := c.occupancy.GetByID(ctx, playerSessionID)
    if err != nil {
        return nil, nil, fmt.Errorf("load player session: %w", err)
    }
    if ps.EndTime != nil {
        return nil, nil, ErrSessionEnded
    }
    ok, err := c.occupancy.End(ctx, playerSessionID)
    if err != nil {
        return nil, nil, fmt.Errorf("end player session: %w", err)
    }
    if !ok {
        return nil, nil, ErrSessionEnded
    }
    ps, err = c.occupancy.GetByID(ctx, playerSessionID)
    if err != nil {
        return nil, nil, fmt.Errorf("reload player session: %w", err)
    }
    if !rejoin {
        return ps, nil, nil
    }

    if gameID == 0 {
        session, err := c.sessions.GetByID(ctx, ps.TableSessionID)
        if err != nil {
            log.Printf("seating: requeue player %d: resolve session: %v", ps.PlayerID, err)
            return ps, nil, nil
        }
        gameID = session.GameID
    }
    game, err := c.games.GetByID(ctx, gameID)
    if err != nil {
        log.Printf("seating: requeue player %d: load game %d: %v", ps.PlayerID, gameID, err)
        return ps, nil, nil
    }
    entry, err := c.enqueuer.AddToEnd(ctx, game.ID, ps.PlayerID, game.RoomID, "")
    if err != nil {
        log.Printf("seating: requeue player %d on game %d failed: %v", ps.PlayerID, gameID, err)
        return ps, nil, nil
    }
    return ps, entry, nil
}

// FindNextAvailableSeat scans the active tables of a game and returns the
// first one with a free seat in an open session, together with the lowest
// free seat number.  Table order is not defined; this is first fit, not
// load balancing.
func (c *Coordinator) FindNextAvailableSeat(ctx context.Context, gameID uint64) (*model.GameTable, uint32, error) {
    tables, err := c.tables.ListActiveByGame(ctx, gameID)
    if err != nil {
        return nil, 0, fmt.Errorf("list tables: %w", err)
    }
    for _, table := range tables {
        session, err := c.sessions.OpenByTable(ctx, table.ID)
        if err != nil {
            if errors.Is(err, repository.ErrNoOpenSession) {
                continue
            }
            return nil, 0, fmt.Errorf("resolve open session: %w", err)
        }
        open, err := c.occupancy.OpenBySession(ctx, session.ID)
        if err != nil {
            return nil, 0, fmt.Errorf("read occupancy: %w", err)
        }
        if len(open) >= int(table.SeatCount) {
            continue
        }
        taken := make(map[uint32]bool, len(open))
        for _, ps := range open {
            taken[ps.SeatNumber] = true
        }
        for n := uint32(1); n <= table.SeatCount; n++ {
            if !taken[n] {
                return table, n, nil
            }
        }
    }
    return nil, 0, ErrNoSeatAvailable
}

// AutoAssignNextPlayer seats the front of a game's waiting queue at the
// first free seat of the game's tables.  It fails when the game does not
// belong to the room, when no entry is waiting, or when no seat is free.
func (c *Coordinator) AutoAssignNextPlayer(ctx context.Context, roomID, gameID, assignedBy uint64) (*model.WaitlistEntry, *model.PlayerSession, error) {
    game, err := c.games.GetByID(ctx, gameID)
    if err != nil {
        return nil, nil, fmt.Errorf("load game: %w", err)
    }
    if game.RoomID != roomID {
        return nil, nil, ErrGameRoomMismatch
    }
    entry, err := c.entries.FirstWaiting(ctx, gameID)
    if err != nil {
        if errors.Is(err, repository.ErrEntryNotFound) {
            return nil, nil, ErrNoWaitingEntry
        }
        return nil, nil, fmt.Errorf("read queue head: %w", err)
    }
    table, seat, err := c.FindNextAvailableSeat(ctx, gameID)
    if err != nil {
        return nil, nil, err
    }
    return c.AssignPlayerToTable(ctx, entry.ID, table.ID, seat, assignedBy)
}

func allSeats(count uint32) []uint32 {
    seats := make([]uint32, 0, count)
    for n := uint32(1); n <= count; n++ {
        seats = append(seats, n)
    }
    return seats
}
