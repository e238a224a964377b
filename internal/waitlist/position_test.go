package waitlist

import (
    "context"
    "errors"
    "testing"

    "github.com/stretchr/testify/require"

    "github.com/hellocng/deepstack/internal/model"
)

// requireOrder asserts the waiting queue of a game holds exactly the
// given ids front to back, with strictly increasing ranks.
func requireOrder(t *testing.T, store *fakeStore, gameID uint64, want []uint64) {
    t.Helper()
    got, err := store.WaitingByGame(context.Background(), gameID)
    require.NoError(t, err)
    ids := make([]uint64, 0, len(got))
    for _, e := range got {
        ids = append(ids, e.ID)
    }
    require.Equal(t, want, ids)
    for i := 1; i < len(got); i++ {
        require.Less(t, got[i-1].Position, got[i].Position, "ranks must be strictly increasing")
    }
}

func seedWaiting(store *fakeStore, gameID uint64, positions ...float64) []uint64 {
    ids := make([]uint64, 0, len(positions))
    for i, pos := range positions {
        ids = append(ids, store.seed(model.WaitlistEntry{
            GameID:   gameID,
            RoomID:   10,
            PlayerID: uint64(100 + i),
            Status:   model.StatusWaiting,
            Position: pos,
        }))
    }
    return ids
}

func TestAddToEndRanks(t *testing.T) {
    store := newFakeStore()
    pm := NewPositionManager(store, 0)
    ctx := context.Background()

    first, err := pm.AddToEnd(ctx, 1, 101, 10, "walk-in")
    require.NoError(t, err)
    require.Equal(t, model.StatusWaiting, first.Status)
    require.Equal(t, 1.0, first.Position)
    require.NotZero(t, first.ID)

    second, err := pm.AddToEnd(ctx, 1, 102, 10, "")
    require.NoError(t, err)
    require.Equal(t, 2.0, second.Position)

    requireOrder(t, store, 1, []uint64{first.ID, second.ID})
}

func TestAddToEndStoreFailure(t *testing.T) {
    store := newFakeStore()
    store.insertErr = errors.New("connection reset")
    pm := NewPositionManager(store, 0)

    e, err := pm.AddToEnd(context.Background(), 1, 101, 10, "")
    require.Error(t, err)
    require.Nil(t, e)
}

func TestMoveUpMidQueue(t *testing.T) {
    store := newFakeStore()
    pm := NewPositionManager(store, 0)
    ctx := context.Background()
    ids := seedWaiting(store, 1, 1, 2, 3)
    a, b, c := ids[0], ids[1], ids[2]

    moved, err := pm.MoveUp(ctx, c)
    require.NoError(t, err)
    require.True(t, moved)

    requireOrder(t, store, 1, []uint64{a, c, b})
    e, err := store.Entry(ctx, c)
    require.NoError(t, err)
    require.Greater(t, e.Position, 1.0)
    require.Less(t, e.Position, 2.0)
}

func TestMoveUpAtFront(t *testing.T) {
    store := newFakeStore()
    pm := NewPositionManager(store, 0)
    ctx := context.Background()
    ids := seedWaiting(store, 1, 1, 2)

    moved, err := pm.MoveUp(ctx, ids[0])
    require.NoError(t, err)
    require.False(t, moved)

    e, err := store.Entry(ctx, ids[0])
    require.NoError(t, err)
    require.Equal(t, 1.0, e.Position)
    requireOrder(t, store, 1, ids)
}

func TestMoveUpPastFrontHalvesRank(t *testing.T) {
    store := newFakeStore()
    pm := NewPositionManager(store, 0)
    ctx := context.Background()
    ids := seedWaiting(store, 1, 1, 2)

    moved, err := pm.MoveUp(ctx, ids[1])
    require.NoError(t, err)
    require.True(t, moved)

    e, err := store.Entry(ctx, ids[1])
    require.NoError(t, err)
    require.Equal(t, 0.5, e.Position)
    requireOrder(t, store, 1, []uint64{ids[1], ids[0]})
}

func TestMoveDownAtBack(t *testing.T) {
    store := newFakeStore()
    pm := NewPositionManager(store, 0)
    ctx := context.Background()
    ids := seedWaiting(store, 1, 1, 2)

    moved, err := pm.MoveDown(ctx, ids[1])
    require.NoError(t, err)
    require.False(t, moved)
    requireOrder(t, store, 1, ids)
}

func TestMoveDownPastBackIncrements(t *testing.T) {
    store := newFakeStore()
    pm := NewPositionManager(store, 0)
    ctx := context.Background()
    ids := seedWaiting(store, 1, 1, 2)

    moved, err := pm.MoveDown(ctx, ids[0])
    require.NoError(t, err)
    require.True(t, moved)

    e, err := store.Entry(ctx, ids[0])
    require.NoError(t, err)
    require.Equal(t, 3.0, e.Position)
    requireOrder(t, store, 1, []uint64{ids[1], ids[0]})
}

func TestMoveDownMidQueue(t *testing.T) {
    store := newFakeStore()
    pm := NewPositionManager(store, 0)
    ctx := context.Background()
    ids := seedWaiting(store, 1, 1, 2, 3)

    moved, err := pm.MoveDown(ctx, ids[0])
    require.NoError(t, err)
    require.True(t, moved)

    requireOrder(t, store, 1, []uint64{ids[1], ids[0], ids[2]})
    e, err := store.Entry(ctx, ids[0])
    require.NoError(t, err)
    require.Greater(t, e.Position, 2.0)
    require.Less(t, e.Position, 3.0)
}

func TestMoveNonWaitingEntry(t *testing.T) {
    store := newFakeStore()
    pm := NewPositionManager(store, 0)
    ctx := context.Background()
    id := store.seed(model.WaitlistEntry{GameID: 1, RoomID: 10, PlayerID: 101, Status: model.StatusSeated, Position: 1})

    _, err := pm.MoveUp(ctx, id)
    require.ErrorIs(t, err, ErrNotWaiting)
    _, err = pm.MoveToBottom(ctx, id)
    require.ErrorIs(t, err, ErrNotWaiting)
}

func TestMoveUpLosesRankGuard(t *testing.T) {
    store := newFakeStore()
    pm := NewPositionManager(store, 0)
    ctx := context.Background()
    ids := seedWaiting(store, 1, 1, 2, 3)

    // A concurrent reorder lands between the read and the write; the
    // guarded update must miss and the move report not-moved.
    store.beforeGuard = func(e *model.WaitlistEntry) { e.Position = 9 }
    moved, err := pm.MoveUp(ctx, ids[2])
    require.NoError(t, err)
    require.False(t, moved)
}

func TestMoveToTop(t *testing.T) {
    store := newFakeStore()
    pm := NewPositionManager(store, 0)
    ctx := context.Background()
    ids := seedWaiting(store, 1, 1, 2, 3)

    moved, err := pm.MoveToTop(ctx, ids[2])
    require.NoError(t, err)
    require.True(t, moved)

    e, err := store.Entry(ctx, ids[2])
    require.NoError(t, err)
    require.Equal(t, 0.5, e.Position)
    requireOrder(t, store, 1, []uint64{ids[2], ids[0], ids[1]})

    // Already at the front: no-op success, rank untouched.
    moved, err = pm.MoveToTop(ctx, ids[2])
    require.NoError(t, err)
    require.True(t, moved)
    e, err = store.Entry(ctx, ids[2])
    require.NoError(t, err)
    require.Equal(t, 0.5, e.Position)
}

func TestMoveToBottom(t *testing.T) {
    store := newFakeStore()
    pm := NewPositionManager(store, 0)
    ctx := context.Background()
    ids := seedWaiting(store, 1, 1, 2, 3)

    moved, err := pm.MoveToBottom(ctx, ids[0])
    require.NoError(t, err)
    require.True(t, moved)

    e, err := store.Entry(ctx, ids[0])
    require.NoError(t, err)
    require.Equal(t, 4.0, e.Position)
    requireOrder(t, store, 1, []uint64{ids[1], ids[2], ids[0]})
}

func TestMoveToBottomSoleEntry(t *testing.T) {
    store := newFakeStore()
    pm := NewPositionManager(store, 0)
    ctx := context.Background()
    ids := seedWaiting(store, 1, 1)

    moved, err := pm.MoveToBottom(ctx, ids[0])
    require.NoError(t, err)
    require.True(t, moved)

    e, err := store.Entry(ctx, ids[0])
    require.NoError(t, err)
    require.Equal(t, 1.0, e.Position)
}

func TestRebalanceAssignsIntegralRanks(t *testing.T) {
    store := newFakeStore()
    pm := NewPositionManager(store, 0)
    ctx := context.Background()
    ids := seedWaiting(store, 1, 0.125, 0.5, 2.75, 7)

    require.NoError(t, pm.Rebalance(ctx, 1))

    requireOrder(t, store, 1, ids)
    got, err := store.WaitingByGame(ctx, 1)
    require.NoError(t, err)
    for i, e := range got {
        require.Equal(t, float64(i+1), e.Position)
    }
}

func TestRebalanceLeavesOtherStatusesAlone(t *testing.T) {
    store := newFakeStore()
    pm := NewPositionManager(store, 0)
    ctx := context.Background()
    seedWaiting(store, 1, 0.25, 0.75)
    frozen := store.seed(model.WaitlistEntry{GameID: 1, RoomID: 10, PlayerID: 200, Status: model.StatusSeated, Position: 0.5})

    require.NoError(t, pm.Rebalance(ctx, 1))

    e, err := store.Entry(ctx, frozen)
    require.NoError(t, err)
    require.Equal(t, 0.5, e.Position, "non-waiting ranks are frozen")
}

func TestMoveUpRebalancesCollapsedGap(t *testing.T) {
    store := newFakeStore()
    pm := NewPositionManager(store, 0)
    ctx := context.Background()
    ids := seedWaiting(store, 1, 1, 1.0001, 1.0002, 2)

    moved, err := pm.MoveUp(ctx, ids[3])
    require.NoError(t, err)
    require.True(t, moved)

    // The collapsed gap forced integral ranks before the move landed.
    positions := map[uint64]float64{}
    got, err := store.WaitingByGame(ctx, 1)
    require.NoError(t, err)
    for _, e := range got {
        positions[e.ID] = e.Position
    }
    require.Equal(t, 1.0, positions[ids[0]])
    require.Equal(t, 2.0, positions[ids[1]])
    require.Equal(t, 2.5, positions[ids[3]])
    require.Equal(t, 3.0, positions[ids[2]])
    requireOrder(t, store, 1, []uint64{ids[0], ids[1], ids[3], ids[2]})
}

func TestInsertAt(t *testing.T) {
    ctx := context.Background()

    t.Run("empty queue", func(t *testing.T) {
        store := newFakeStore()
        pm := NewPositionManager(store, 0)
        e, err := pm.InsertAt(ctx, 1, 101, 10, 5, "")
        require.NoError(t, err)
        require.Equal(t, 1.0, e.Position)
    })

    t.Run("between neighbors", func(t *testing.T) {
        store := newFakeStore()
        pm := NewPositionManager(store, 0)
        ids := seedWaiting(store, 1, 1, 2)
        e, err := pm.InsertAt(ctx, 1, 103, 10, 2, "")
        require.NoError(t, err)
        require.Equal(t, 1.5, e.Position)
        requireOrder(t, store, 1, []uint64{ids[0], e.ID, ids[1]})
    })

    t.Run("ahead of the head", func(t *testing.T) {
        store := newFakeStore()
        pm := NewPositionManager(store, 0)
        ids := seedWaiting(store, 1, 1, 2)
        e, err := pm.InsertAt(ctx, 1, 103, 10, 0.5, "")
        require.NoError(t, err)
        require.Equal(t, 0.5, e.Position)
        requireOrder(t, store, 1, []uint64{e.ID, ids[0], ids[1]})
    })

    t.Run("past the tail", func(t *testing.T) {
        store := newFakeStore()
        pm := NewPositionManager(store, 0)
        ids := seedWaiting(store, 1, 1, 2)
        e, err := pm.InsertAt(ctx, 1, 103, 10, 50, "")
        require.NoError(t, err)
        require.Equal(t, 3.0, e.Position)
        requireOrder(t, store, 1, []uint64{ids[0], ids[1], e.ID})
    })

    t.Run("collapsed gap rebalances first", func(t *testing.T) {
        store := newFakeStore()
        pm := NewPositionManager(store, 0)
        ids := seedWaiting(store, 1, 1, 1.0005)
        e, err := pm.InsertAt(ctx, 1, 103, 10, 1.0003, "")
        require.NoError(t, err)
        require.Equal(t, 1.5, e.Position)
        requireOrder(t, store, 1, []uint64{ids[0], e.ID, ids[1]})
        got, err := store.WaitingByGame(ctx, 1)
        require.NoError(t, err)
        require.Equal(t, []float64{1, 1.5, 2}, []float64{got[0].Position, got[1].Position, got[2].Position})
    })

    t.Run("write failure yields no entry", func(t *testing.T) {
        store := newFakeStore()
        store.insertErr = errors.New("write failed")
        pm := NewPositionManager(store, 0)
        e, err := pm.InsertAt(ctx, 1, 103, 10, 1, "")
        require.Error(t, err)
        require.Nil(t, e)
    })
}
