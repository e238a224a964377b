package seating

import (
    "context"
    "errors"
    "sort"
    "testing"
    "time"

    "github.com/stretchr/testify/require"

    "github.com/hellocng/deepstack/internal/model"
    "github.com/hellocng/deepstack/internal/repository"
    "github.com/hellocng/deepstack/internal/waitlist"
)

type fakeTables struct {
    tables map[uint64]*model.GameTable
}

func (f *fakeTables) GetByID(ctx context.Context, id uint64) (*model.GameTable, error) {
    t, ok := f.tables[id]
    if !ok {
        return nil, repository.ErrTableNotFound
    }
    c := *t
    return &c, nil
}

func (f *fakeTables) ListActiveByGame(ctx context.Context, gameID uint64) ([]*model.GameTable, error) {
    var out []*model.GameTable
    for _, t := range f.tables {
        if t.GameID == gameID && t.IsActive {
            c := *t
            out = append(out, &c)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out, nil
}

type fakeSessions struct {
    sessions map[uint64]*model.TableSession
}

func (f *fakeSessions) OpenByTable(ctx context.Context, tableID uint64) (*model.TableSession, error) {
    for _, s := range f.sessions {
        if s.TableID == tableID && s.EndTime == nil {
            c := *s
            return &c, nil
        }
    }
    return nil, repository.ErrNoOpenSession
}

func (f *fakeSessions) GetByID(ctx context.Context, id uint64) (*model.TableSession, error) {
    s, ok := f.sessions[id]
    if !ok {
        return nil, repository.ErrSessionNotFound
    }
    c := *s
    return &c, nil
}

type fakeOccupancy struct {
    nextID    uint64
    rows      map[uint64]*model.PlayerSession
    createErr error
    deleted   []uint64
}

func (f *fakeOccupancy) GetByID(ctx context.Context, id uint64) (*model.PlayerSession, error) {
    ps, ok := f.rows[id]
    if !ok {
        return nil, repository.ErrPlayerSessionNotFound
    }
    c := *ps
    if ps.EndTime != nil {
        t := *ps.EndTime
        c.EndTime = &t
    }
    return &c, nil
}

func (f *fakeOccupancy) OpenBySession(ctx context.Context, sessionID uint64) ([]model.PlayerSession, error) {
    var out []model.PlayerSession
    for _, ps := range f.rows {
        if ps.TableSessionID == sessionID && ps.EndTime == nil {
            out = append(out, *ps)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].SeatNumber < out[j].SeatNumber })
    return out, nil
}

func (f *fakeOccupancy) SeatOccupied(ctx context.Context, sessionID uint64, seatNumber uint32) (bool, error) {
    for _, ps := range f.rows {
        if ps.TableSessionID == sessionID && ps.SeatNumber == seatNumber && ps.EndTime == nil {
            return true, nil
        }
    }
    return false, nil
}

func (f *fakeOccupancy) Create(ctx context.Context, s *model.PlayerSession) error {
    if f.createErr != nil {
        return f.createErr
    }
    f.nextID++
    s.ID = f.nextID
    s.StartTime = time.Now()
    s.CreatedAt = s.StartTime
    c := *s
    f.rows[s.ID] = &c
    return nil
}

func (f *fakeOccupancy) End(ctx context.Context, id uint64) (bool, error) {
    ps, ok := f.rows[id]
    if !ok || ps.EndTime != nil {
        return false, nil
    }
    now := time.Now()
    ps.EndTime = &now
    return true, nil
}

func (f *fakeOccupancy) DeleteOpen(ctx context.Context, id uint64) error {
    if ps, ok := f.rows[id]; ok && ps.EndTime == nil {
        delete(f.rows, id)
        f.deleted = append(f.deleted, id)
    }
    return nil
}

type fakeEntries struct {
    entries map[uint64]*model.WaitlistEntry
}

func (f *fakeEntries) Entry(ctx context.Context, id uint64) (*model.WaitlistEntry, error) {
    e, ok := f.entries[id]
    if !ok {
        return nil, repository.ErrEntryNotFound
    }
    c := *e
    return &c, nil
}

func (f *fakeEntries) FirstWaiting(ctx context.Context, gameID uint64) (*model.WaitlistEntry, error) {
    var best *model.WaitlistEntry
    for _, e := range f.entries {
        if e.GameID != gameID || e.Status != model.StatusWaiting {
            continue
        }
        if best == nil || e.Position < best.Position {
            best = e
        }
    }
    if best == nil {
        return nil, repository.ErrEntryNotFound
    }
    c := *best
    return &c, nil
}

type fakeGames struct {
    games map[uint64]*model.Game
}

func (f *fakeGames) GetByID(ctx context.Context, id uint64) (*model.Game, error) {
    g, ok := f.games[id]
    if !ok {
        return nil, repository.ErrGameNotFound
    }
    c := *g
    return &c, nil
}

type fakeSeater struct {
    entries *fakeEntries
    err     error
}

func (f *fakeSeater) Seat(ctx context.Context, entryID uint64) (*model.WaitlistEntry, error) {
    if f.err != nil {
        return nil, f.err
    }
    e, ok := f.entries.entries[entryID]
    if !ok {
        return nil, repository.ErrEntryNotFound
    }
    if !waitlist.CanTransition(e.Status, model.StatusSeated) {
        return nil, waitlist.ErrInvalidTransition
    }
    now := time.Now()
    e.Status = model.StatusSeated
    if e.CheckedInAt == nil {
        e.CheckedInAt = &now
    }
    c := *e
    return &c, nil
}

type enqueueCall struct {
    gameID, playerID, roomID uint64
}

type fakeEnqueuer struct {
    err   error
    calls []enqueueCall
}

func (f *fakeEnqueuer) AddToEnd(ctx context.Context, gameID, playerID, roomID uint64, notes string) (*model.WaitlistEntry, error) {
    if f.err != nil {
        return nil, f.err
    }
    f.calls = append(f.calls, enqueueCall{gameID: gameID, playerID: playerID, roomID: roomID})
    return &model.WaitlistEntry{
        ID:       900 + uint64(len(f.calls)),
        GameID:   gameID,
        RoomID:   roomID,
        PlayerID: playerID,
        Status:   model.StatusWaiting,
        Position: float64(len(f.calls)),
    }, nil
}

// floor bundles the fakes behind a Coordinator.  The default fixture is
// room 10 running game 1 on table 7 (6 seats) with open session 70.
type floor struct {
    tables    *fakeTables
    sessions  *fakeSessions
    occupancy *fakeOccupancy
    entries   *fakeEntries
    games     *fakeGames
    seater    *fakeSeater
    enqueuer  *fakeEnqueuer
    coord     *Coordinator
}

func newFloor() *floor {
    f := &floor{
        tables: &fakeTables{tables: map[uint64]*model.GameTable{
            7: {ID: 7, RoomID: 10, GameID: 1, Label: "T7", SeatCount: 6, IsActive: true},
        }},
        sessions: &fakeSessions{sessions: map[uint64]*model.TableSession{
            70: {ID: 70, TableID: 7, GameID: 1, StartTime: time.Now().Add(-time.Hour)},
        }},
        occupancy: &fakeOccupancy{rows: map[uint64]*model.PlayerSession{}},
        entries:   &fakeEntries{entries: map[uint64]*model.WaitlistEntry{}},
        games: &fakeGames{games: map[uint64]*model.Game{
            1: {ID: 1, RoomID: 10, Name: "1/2 NLHE", IsActive: true},
        }},
        enqueuer: &fakeEnqueuer{},
    }
    f.seater = &fakeSeater{entries: f.entries}
    f.coord = NewCoordinator(f.tables, f.sessions, f.occupancy, f.entries, f.games, f.seater, f.enqueuer)
    return f
}

func (f *floor) seatPlayer(sessionID, playerID uint64, seat uint32) uint64 {
    f.occupancy.nextID++
    id := f.occupancy.nextID
    f.occupancy.rows[id] = &model.PlayerSession{
        ID: id, TableSessionID: sessionID, PlayerID: playerID,
        SeatNumber: seat, StartTime: time.Now().Add(-time.Minute),
    }
    return id
}

func (f *floor) addEntry(id uint64, status model.EntryStatus, pos float64) uint64 {
    f.entries.entries[id] = &model.WaitlistEntry{
        ID: id, GameID: 1, RoomID: 10, PlayerID: 100 + id,
        Status: status, Position: pos,
    }
    return id
}

func TestAvailableSeatsComplement(t *testing.T) {
    f := newFloor()
    for seat := uint32(1); seat <= 4; seat++ {
        f.seatPlayer(70, uint64(200+seat), seat)
    }
    f.seatPlayer(70, 206, 6)

    free, err := f.coord.AvailableSeats(context.Background(), 7)
    require.NoError(t, err)
    require.Equal(t, []uint32{5}, free)
}

func TestAvailableSeatsWithoutSession(t *testing.T) {
    f := newFloor()
    delete(f.sessions.sessions, 70)

    free, err := f.coord.AvailableSeats(context.Background(), 7)
    require.NoError(t, err)
    require.Equal(t, []uint32{1, 2, 3, 4, 5, 6}, free)
}

func TestIsSeatAvailable(t *testing.T) {
    f := newFloor()
    f.seatPlayer(70, 201, 3)
    ctx := context.Background()

    free, err := f.coord.IsSeatAvailable(ctx, 7, 3)
    require.NoError(t, err)
    require.False(t, free)

    free, err = f.coord.IsSeatAvailable(ctx, 7, 4)
    require.NoError(t, err)
    require.True(t, free)

    _, err = f.coord.IsSeatAvailable(ctx, 7, 9)
    require.ErrorIs(t, err, ErrInvalidSeat)
}

func TestAssignPlayerToTable(t *testing.T) {
    f := newFloor()
    entry := f.addEntry(5, model.StatusNotified, 0)
    ctx := context.Background()

    seated, ps, err := f.coord.AssignPlayerToTable(ctx, entry, 7, 4, 31)
    require.NoError(t, err)
    require.Equal(t, model.StatusSeated, seated.Status)
    require.NotNil(t, seated.CheckedInAt)
    require.Equal(t, uint32(4), ps.SeatNumber)
    require.Equal(t, uint64(70), ps.TableSessionID)
    require.NotNil(t, ps.AssignedBy)
    require.Equal(t, uint64(31), *ps.AssignedBy)

    // The same seat cannot be assigned twice.
    other := f.addEntry(6, model.StatusWaiting, 1)
    _, _, err = f.coord.AssignPlayerToTable(ctx, other, 7, 4, 31)
    require.ErrorIs(t, err, ErrSeatUnavailable)
}

func TestAssignRollsBackWhenSeatingFails(t *testing.T) {
    f := newFloor()
    entry := f.addEntry(5, model.StatusWaiting, 1)
    f.seater.err = errors.New("entry changed concurrently")
    ctx := context.Background()

    _, _, err := f.coord.AssignPlayerToTable(ctx, entry, 7, 4, 31)
    require.Error(t, err)

    // No open occupancy may remain for the seat.
    occupied, err := f.occupancy.SeatOccupied(ctx, 70, 4)
    require.NoError(t, err)
    require.False(t, occupied)
    require.Len(t, f.occupancy.deleted, 1)
}

func TestAssignSeatLostAtInsert(t *testing.T) {
    // A writer can pass the availability re-check and still lose the
    // insert to a concurrent assignment.
    f := newFloor()
    entry := f.addEntry(5, model.StatusNotified, 0)
    f.occupancy.createErr = repository.ErrConflict

    _, _, err := f.coord.AssignPlayerToTable(context.Background(), entry, 7, 4, 31)
    require.ErrorIs(t, err, ErrSeatUnavailable)
}

func TestAssignWithoutOpenSession(t *testing.T) {
    f := newFloor()
    delete(f.sessions.sessions, 70)
    entry := f.addEntry(5, model.StatusWaiting, 1)

    _, _, err := f.coord.AssignPlayerToTable(context.Background(), entry, 7, 4, 31)
    require.ErrorIs(t, err, ErrNoActiveSession)
}

func TestAssignValidation(t *testing.T) {
    f := newFloor()
    ctx := context.Background()

    seatedEntry := f.addEntry(5, model.StatusSeated, 0)
    _, _, err := f.coord.AssignPlayerToTable(ctx, seatedEntry, 7, 4, 31)
    require.ErrorIs(t, err, waitlist.ErrInvalidTransition)

    entry := f.addEntry(6, model.StatusWaiting, 1)
    _, _, err = f.coord.AssignPlayerToTable(ctx, entry, 7, 0, 31)
    require.ErrorIs(t, err, ErrInvalidSeat)
    _, _, err = f.coord.AssignPlayerToTable(ctx, entry, 7, 7, 31)
    require.ErrorIs(t, err, ErrInvalidSeat)

    f.tables.tables[7].IsActive = false
    _, _, err = f.coord.AssignPlayerToTable(ctx, entry, 7, 4, 31)
    require.ErrorIs(t, err, ErrTableInactive)
}

func TestRemovePlayerFromTable(t *testing.T) {
    f := newFloor()
    id := f.seatPlayer(70, 201, 3)
    ctx := context.Background()

    ps, entry, err := f.coord.RemovePlayerFromTable(ctx, id, false, 0)
    require.NoError(t, err)
    require.Nil(t, entry)
    require.NotNil(t, ps.EndTime)

    _, _, err = f.coord.RemovePlayerFromTable(ctx, id, false, 0)
    require.ErrorIs(t, err, ErrSessionEnded)
}

func TestRemovePlayerRejoinsWaitlist(t *testing.T) {
    f := newFloor()
    id := f.seatPlayer(70, 201, 3)
    ctx := context.Background()

    ps, entry, err := f.coord.RemovePlayerFromTable(ctx, id, true, 0)
    require.NoError(t, err)
    require.NotNil(t, ps.EndTime)
    require.NotNil(t, entry)
    require.Equal(t, model.StatusWaiting, entry.Status)
    require.Equal(t, []enqueueCall{{gameID: 1, playerID: 201, roomID: 10}}, f.enqueuer.calls)
}

func TestRemovePlayerRequeueIsBestEffort(t *testing.T) {
    f := newFloor()
    id := f.seatPlayer(70, 201, 3)
    f.enqueuer.err = errors.New("queue write failed")

    ps, entry, err := f.coord.RemovePlayerFromTable(context.Background(), id, true, 0)
    require.NoError(t, err, "requeue failure must not undo the removal")
    require.Nil(t, entry)
    require.NotNil(t, ps.EndTime)
}

func TestFindNextAvailableSeatFirstFit(t *testing.T) {
    f := newFloor()
    // A second table, lower id, with no open session: skipped.
    f.tables.tables[3] = &model.GameTable{ID: 3, RoomID: 10, GameID: 1, Label: "T3", SeatCount: 4, IsActive: true}
    // Fill table 7 except seat 2.
    f.seatPlayer(70, 201, 1)
    for seat := uint32(3); seat <= 6; seat++ {
        f.seatPlayer(70, uint64(200+seat), seat)
    }

    table, seat, err := f.coord.FindNextAvailableSeat(context.Background(), 1)
    require.NoError(t, err)
    require.Equal(t, uint64(7), table.ID)
    require.Equal(t, uint32(2), seat)
}

func TestFindNextAvailableSeatNoneFree(t *testing.T) {
    f := newFloor()
    for seat := uint32(1); seat <= 6; seat++ {
        f.seatPlayer(70, uint64(200+seat), seat)
    }

    _, _, err := f.coord.FindNextAvailableSeat(context.Background(), 1)
    require.ErrorIs(t, err, ErrNoSeatAvailable)
}

func TestAutoAssignNextPlayer(t *testing.T) {
    f := newFloor()
    f.addEntry(5, model.StatusWaiting, 2)
    front := f.addEntry(6, model.StatusWaiting, 1)
    ctx := context.Background()

    seated, ps, err := f.coord.AutoAssignNextPlayer(ctx, 10, 1, 31)
    require.NoError(t, err)
    require.Equal(t, front, seated.ID, "the front of the queue is seated first")
    require.Equal(t, model.StatusSeated, seated.Status)
    require.Equal(t, uint32(1), ps.SeatNumber)
}

func TestAutoAssignNoWaitingEntry(t *testing.T) {
    f := newFloor()
    f.addEntry(5, model.StatusCalledIn, 0)

    _, _, err := f.coord.AutoAssignNextPlayer(context.Background(), 10, 1, 31)
    require.ErrorIs(t, err, ErrNoWaitingEntry)
}

func TestAutoAssignRoomMismatch(t *testing.T) {
    f := newFloor()
    f.addEntry(5, model.StatusWaiting, 1)

    _, _, err := f.coord.AutoAssignNextPlayer(context.Background(), 99, 1, 31)
    require.ErrorIs(t, err, ErrGameRoomMismatch)
}

func TestTableOccupancySummary(t *testing.T) {
    f := newFloor()
    f.seatPlayer(70, 201, 2)
    f.seatPlayer(70, 202, 5)

    occ, err := f.coord.TableOccupancy(context.Background(), 7)
    require.NoError(t, err)
    require.Equal(t, uint64(7), occ.TableID)
    require.Equal(t, uint32(6), occ.SeatCount)
    require.Equal(t, 2, occ.Occupied)
    require.Equal(t, 4, occ.Available)
    require.Len(t, occ.Seats, 2)
    require.Equal(t, uint32(2), occ.Seats[0].SeatNumber)
    require.Equal(t, uint64(201), occ.Seats[0].PlayerID)
}
