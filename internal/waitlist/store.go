// Package waitlist implements the ordering and status engine behind the
// per-game seating queues: fractional-rank ordering of waiting entries,
// the entry status state machine with its timestamp side effects, and the
// per-room sweeper that expires entries whose response window has passed.
//
// The package talks to storage through the EntryStore interface and is
// deliberately free of SQL, HTTP and broker concerns.  Operations are not
// atomic across store calls; they are written to be idempotent and
// self-correcting (guarded writes, rebalancing) instead of locked.
package waitlist

import (
    "context"

    "github.com/hellocng/deepstack/internal/model"
)

// EntryStore is the storage adapter the ordering and lifecycle engines
// are built on.  *repository.WaitlistRepo implements it against MySQL;
// tests implement it in memory.
//
// Contract notes.  All write methods returning (bool, error) carry their
// precondition in the store-side guard and report false when the guard
// matched nothing, so a raced call is a clean no-op for the loser.  The
// ranged reads (WaitingBefore/WaitingAfter/WaitingFrom) compare ranks
// strictly as documented per method and order closest-first.
type EntryStore interface {
    // Entry returns one entry by id, or an error when it does not exist.
    Entry(ctx context.Context, id uint64) (*model.WaitlistEntry, error)

    // Insert creates the entry and fills in its id and creation timestamps.
    Insert(ctx context.Context, e *model.WaitlistEntry) error

    // WaitingByGame returns the waiting entries of a game in rank order.
    WaitingByGame(ctx context.Context, gameID uint64) ([]model.WaitlistEntry, error)

    // FirstWaiting returns the lowest-ranked waiting entry of a game.
    FirstWaiting(ctx context.Context, gameID uint64) (*model.WaitlistEntry, error)

    // MaxWaitingPosition and MinWaitingPosition return the extreme ranks
    // among a game's waiting entries, skipping excludeID when non-zero.
    // The boolean is false when no entry matched.
    MaxWaitingPosition(ctx context.Context, gameID, excludeID uint64) (float64, bool, error)
    MinWaitingPosition(ctx context.Context, gameID, excludeID uint64) (float64, bool, error)

    // WaitingBefore returns up to limit waiting entries ranked strictly
    // below pos, closest first.  WaitingAfter mirrors it strictly above.
    // WaitingFrom starts at pos inclusive, lowest first.
    WaitingBefore(ctx context.Context, gameID uint64, pos float64, limit int) ([]model.WaitlistEntry, error)
    WaitingAfter(ctx context.Context, gameID uint64, pos float64, limit int) ([]model.WaitlistEntry, error)
    WaitingFrom(ctx context.Context, gameID uint64, pos float64, limit int) ([]model.WaitlistEntry, error)

    // AwaitingResponseByRoom returns the calledin and notified entries of
    // a room, the sweeper's candidate set.
    AwaitingResponseByRoom(ctx context.Context, roomID uint64) ([]model.WaitlistEntry, error)

    // UpdatePosition re-ranks a waiting entry guarded on its previously
    // read rank.  SetPosition writes a rank guarded on status only; it is
    // reserved for rebalancing.
    UpdatePosition(ctx context.Context, id uint64, oldPos, newPos float64) (bool, error)
    SetPosition(ctx context.Context, id uint64, pos float64) error

    // Status transitions.  Each guards on the states the transition is
    // legal from and stamps the timestamps owned by that transition.
    MarkNotified(ctx context.Context, id uint64) (bool, error)
    MarkSeated(ctx context.Context, id uint64) (bool, error)
    MarkExpired(ctx context.Context, id uint64) (bool, error)
    MarkCancelled(ctx context.Context, id uint64, by string) (bool, error)
    ReturnToWaiting(ctx context.Context, id uint64, pos float64) (bool, error)
    Rejoin(ctx context.Context, id uint64, pos float64) (bool, error)
}

// tailPosition computes the rank for an entry joining the back of a
// game's queue: one past the current maximum, or 1 for an empty queue.
func tailPosition(ctx context.Context, store EntryStore, gameID uint64) (float64, error) {
    max, ok, err := store.MaxWaitingPosition(ctx, gameID, 0)
    if err != nil {
        return 0, err
    }
    if !ok {
        return 1, nil
    }
    return max + 1, nil
}
