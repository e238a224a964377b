package waitlist

import (
    "context"
    "fmt"

    "github.com/hellocng/deepstack/internal/model"
)

// transitions lists, per current status, the statuses an entry may move
// to.  Everything absent here is rejected.  Creation states (waiting via
// the PositionManager, calledin via AddCalledIn) are not transitions and
// do not appear.
var transitions = map[model.EntryStatus][]model.EntryStatus{
    model.StatusWaiting:   {model.StatusCancelled, model.StatusSeated},
    model.StatusCalledIn:  {model.StatusNotified, model.StatusWaiting, model.StatusCancelled, model.StatusExpired, model.StatusSeated},
    model.StatusNotified:  {model.StatusWaiting, model.StatusCancelled, model.StatusExpired, model.StatusSeated},
    model.StatusCancelled: {model.StatusWaiting},
    model.StatusExpired:   {model.StatusWaiting},
}

// CanTransition reports whether the status machine allows from → to.
// seated is terminal; cancelled and expired only allow the rejoin back
// to waiting.
func CanTransition(from, to model.EntryStatus) bool {
    for _, t := range transitions[from] {
        if t == to {
            return true
        }
    }
    return false
}

// LifecycleManager drives entries through the status machine.  Each
// method validates the current status with a pre-read for a precise
// error, then performs the store's guarded update; when the guard
// matches nothing a concurrent caller changed the entry in between and
// ErrConflict is returned with nothing applied.  Timestamps (notifiedAt,
// checkedInAt, cancelledAt, updatedAt) are stamped by the store inside
// the same update.
type LifecycleManager struct {
    store EntryStore
}

// NewLifecycleManager constructs a LifecycleManager.
func NewLifecycleManager(store EntryStore) *LifecycleManager {
    return &LifecycleManager{store: store}
}

// AddCalledIn creates an entry directly in the calledin state, the path
// for phone-in players who have not physically arrived.  Called-in
// entries hold no queue rank until they return to waiting.
func (l *LifecycleManager) AddCalledIn(ctx context.Context, gameID, playerID, roomID uint64, notes string) (*model.WaitlistEntry, error) {
    e := &model.WaitlistEntry{
        GameID:   gameID,
        RoomID:   roomID,
        PlayerID: playerID,
        Status:   model.StatusCalledIn,
        Notes:    notes,
    }
    if err := l.store.Insert(ctx, e); err != nil {
        return nil, fmt.Errorf("insert calledin entry: %w", err)
    }
    return e, nil
}

// MarkNotified transitions calledin → notified, stamping notifiedAt.
// Entries only ever enter calledin at creation, so notifiedAt is written
// at most once over an entry's lifetime.
func (l *LifecycleManager) MarkNotified(ctx context.Context, entryID uint64) (*model.WaitlistEntry, error) {
    e, err := l.read(ctx, entryID)
    if err != nil {
        return nil, err
    }
    if e.Status != model.StatusCalledIn {
        return nil, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, e.Status, model.StatusNotified)
    }
    ok, err := l.store.MarkNotified(ctx, entryID)
    if err != nil {
        return nil, fmt.Errorf("mark notified: %w", err)
    }
    if !ok {
        return nil, ErrConflict
    }
    return l.read(ctx, entryID)
}

// RevertToWaiting transitions calledin/notified → waiting: the player has
// arrived, so checkedInAt is stamped and the entry joins the back of its
// game's queue.
func (l *LifecycleManager) RevertToWaiting(ctx context.Context, entryID uint64) (*model.WaitlistEntry, error) {
    e, err := l.read(ctx, entryID)
    if err != nil {
        return nil, err
    }
    if e.Status != model.StatusCalledIn && e.Status != model.StatusNotified {
        return nil, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, e.Status, model.StatusWaiting)
    }
    pos, err := tailPosition(ctx, l.store, e.GameID)
    if err != nil {
        return nil, fmt.Errorf("read tail position: %w", err)
    }
    ok, err := l.store.ReturnToWaiting(ctx, entryID, pos)
    if err != nil {
        return nil, fmt.Errorf("return to waiting: %w", err)
    }
    if !ok {
        return nil, ErrConflict
    }
    return l.read(ctx, entryID)
}

// Cancel transitions waiting/calledin/notified → cancelled, recording the
// acting party (player, staff or system).  cancelledAt and cancelledBy
// are written exactly once; a later Rejoin clears them.
func (l *LifecycleManager) Cancel(ctx context.Context, entryID uint64, by string) (*model.WaitlistEntry, error) {
    switch by {
    case model.CancelledByPlayer, model.CancelledByStaff, model.CancelledBySystem:
    default:
        return nil, fmt.Errorf("%w: %q", ErrInvalidCancelParty, by)
    }
    e, err := l.read(ctx, entryID)
    if err != nil {
        return nil, err
    }
    if !CanTransition(e.Status, model.StatusCancelled) {
        return nil, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, e.Status, model.StatusCancelled)
    }
    ok, err := l.store.MarkCancelled(ctx, entryID, by)
    if err != nil {
        return nil, fmt.Errorf("mark cancelled: %w", err)
    }
    if !ok {
        return nil, ErrConflict
    }
    return l.read(ctx, entryID)
}

// Expire transitions calledin/notified → expired.  It is called only by
// the sweeper and is shaped for it: an entry that is no longer in an
// expirable state reports false with no error, which is what makes
// duplicate and overlapping sweeps harmless.
func (l *LifecycleManager) Expire(ctx context.Context, entryID uint64) (bool, error) {
    e, err := l.read(ctx, entryID)
    if err != nil {
        return false, err
    }
    if !CanTransition(e.Status, model.StatusExpired) {
        return false, nil
    }
    ok, err := l.store.MarkExpired(ctx, entryID)
    if err != nil {
        return false, fmt.Errorf("mark expired: %w", err)
    }
    return ok, nil
}

// Seat transitions waiting/calledin/notified → seated, stamping
// checkedInAt when no earlier transition already did.  Only the seat
// assignment coordinator calls this, after it has created the occupancy
// record the seating refers to.
func (l *LifecycleManager) Seat(ctx context.Context, entryID uint64) (*model.WaitlistEntry, error) {
    e, err := l.read(ctx, entryID)
    if err != nil {
        return nil, err
    }
    if !CanTransition(e.Status, model.StatusSeated) {
        return nil, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, e.Status, model.StatusSeated)
    }
    ok, err := l.store.MarkSeated(ctx, entryID)
    if err != nil {
        return nil, fmt.Errorf("mark seated: %w", err)
    }
    if !ok {
        return nil, ErrConflict
    }
    return l.read(ctx, entryID)
}

// Rejoin transitions cancelled/expired → waiting: the player comes back,
// the cancellation fields are cleared and the entry joins the back of the
// queue with a fresh rank.
func (l *LifecycleManager) Rejoin(ctx context.Context, entryID uint64) (*model.WaitlistEntry, error) {
    e, err := l.read(ctx, entryID)
    if err != nil {
        return nil, err
    }
    if e.Status != model.StatusCancelled && e.Status != model.StatusExpired {
        return nil, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, e.Status, model.StatusWaiting)
    }
    pos, err := tailPosition(ctx, l.store, e.GameID)
    if err != nil {
        return nil, fmt.Errorf("read tail position: %w", err)
    }
    ok, err := l.store.Rejoin(ctx, entryID, pos)
    if err != nil {
        return nil, fmt.Errorf("rejoin: %w", err)
    }
    if !ok {
        return nil, ErrConflict
    }
    return l.read(ctx, entryID)
}

func (l *LifecycleManager) read(ctx context.Context, entryID uint64) (*model.WaitlistEntry, error) {
    e, err := l.store.Entry(ctx, entryID)
    if err != nil {
        return nil, fmt.Errorf("read entry: %w", err)
    }
    return e, nil
}
