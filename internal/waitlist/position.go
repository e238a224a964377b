package waitlist

import (
    "context"
    "fmt"

    "github.com/hellocng/deepstack/internal/model"
)

// DefaultEpsilon is the adjacent-rank gap below which fractional midpoint
// ranks are considered collapsed.  Reorders that would split a narrower
// gap first rewrite the queue to integral ranks.
const DefaultEpsilon = 0.001

// PositionManager maintains the fractional ordering of the waiting
// entries of each game.  New ranks are midpoints between neighbors, so a
// move or insert touches exactly one row; repeated splitting of the same
// gap eventually collapses it, which Rebalance repairs by rewriting the
// queue to the integers 1..N.
//
// Rank writes are compare-and-swap on the previously read rank.  A raced
// write is reported as "not moved" rather than applied blindly; the queue
// stays ordered and the caller may retry against fresh state.
type PositionManager struct {
    store   EntryStore
    epsilon float64
}

// NewPositionManager constructs a PositionManager.  A non-positive
// epsilon falls back to DefaultEpsilon.
func NewPositionManager(store EntryStore, epsilon float64) *PositionManager {
    if epsilon <= 0 {
        epsilon = DefaultEpsilon
    }
    return &PositionManager{store: store, epsilon: epsilon}
}

// AddToEnd appends a new waiting entry at the back of a game's queue:
// rank max+1, or 1 when the queue is empty.
func (m *PositionManager) AddToEnd(ctx context.Context, gameID, playerID, roomID uint64, notes string) (*model.WaitlistEntry, error) {
    pos, err := tailPosition(ctx, m.store, gameID)
    if err != nil {
        return nil, fmt.Errorf("read tail position: %w", err)
    }
    e := &model.WaitlistEntry{
        GameID:   gameID,
        RoomID:   roomID,
        PlayerID: playerID,
        Status:   model.StatusWaiting,
        Position: pos,
        Notes:    notes,
    }
    if err := m.store.Insert(ctx, e); err != nil {
        return nil, fmt.Errorf("insert waitlist entry: %w", err)
    }
    return e, nil
}

// InsertAt creates a new waiting entry at the requested rank slot: the
// midpoint of the two waiting entries surrounding target, or 1 on an
// empty queue, prev+1 past the tail, next/2 ahead of the head.  A nil
// entry with an error means nothing was inserted.
func (m *PositionManager) InsertAt(ctx context.Context, gameID, playerID, roomID uint64, target float64, notes string) (*model.WaitlistEntry, error) {
    pos, err := m.insertRank(ctx, gameID, target)
    if err != nil {
        return nil, err
    }
    e := &model.WaitlistEntry{
        GameID:   gameID,
        RoomID:   roomID,
        PlayerID: playerID,
        Status:   model.StatusWaiting,
        Position: pos,
        Notes:    notes,
    }
    if err := m.store.Insert(ctx, e); err != nil {
        return nil, fmt.Errorf("insert waitlist entry: %w", err)
    }
    return e, nil
}

// insertRank finds the pair of waiting entries surrounding the requested
// slot and splits the gap between them.  When that gap has collapsed
// below epsilon the queue is rebalanced first and the slot re-anchored on
// the entry that was about to follow the new one, since the requested
// rank value refers to the pre-rebalance rank space.
func (m *PositionManager) insertRank(ctx context.Context, gameID uint64, target float64) (float64, error) {
    for attempt := 0; ; attempt++ {
        next, err := m.store.WaitingFrom(ctx, gameID, target, 1)
        if err != nil {
            return 0, fmt.Errorf("read slot neighbors: %w", err)
        }
        prev, err := m.store.WaitingBefore(ctx, gameID, target, 1)
        if err != nil {
            return 0, fmt.Errorf("read slot neighbors: %w", err)
        }
        switch {
        case len(prev) == 0 && len(next) == 0:
            return 1, nil
        case len(next) == 0:
            return prev[0].Position + 1, nil
        case len(prev) == 0:
            return next[0].Position / 2, nil
        }
        lo, hi := prev[0].Position, next[0].Position
        if hi-lo >= m.epsilon || attempt > 0 {
            return lo + (hi-lo)/2, nil
        }
        if err := m.Rebalance(ctx, gameID); err != nil {
            return 0, err
        }
        // Translate the slot into the post-rebalance rank space: aim
        // just below the old follower's fresh integral rank.
        if e, err := m.store.Entry(ctx, next[0].ID); err == nil && e.Status == model.StatusWaiting {
            target = e.Position
        }
    }
}

// MoveUp moves a waiting entry one slot toward the front of its queue.
// It returns false without error when the entry is already at the front,
// when the computed rank would not strictly pass the neighbor, or when a
// concurrent reorder won the rank guard.
func (m *PositionManager) MoveUp(ctx context.Context, entryID uint64) (bool, error) {
    for attempt := 0; attempt < 2; attempt++ {
        e, err := m.store.Entry(ctx, entryID)
        if err != nil {
            return false, fmt.Errorf("read entry: %w", err)
        }
        if e.Status != model.StatusWaiting {
            return false, ErrNotWaiting
        }
        ahead, err := m.store.WaitingBefore(ctx, e.GameID, e.Position, 2)
        if err != nil {
            return false, fmt.Errorf("read neighbors: %w", err)
        }
        if len(ahead) == 0 {
            // Already at the front.
            return false, nil
        }
        var target float64
        if len(ahead) == 1 {
            // Passing the current front entry: half its rank.
            if ahead[0].Position < m.epsilon && attempt == 0 {
                if err := m.Rebalance(ctx, e.GameID); err != nil {
                    return false, err
                }
                continue
            }
            target = ahead[0].Position / 2
            if target <= 0 || target >= ahead[0].Position {
                return false, nil
            }
        } else {
            lo, hi := ahead[1].Position, ahead[0].Position
            if hi-lo < m.epsilon && attempt == 0 {
                if err := m.Rebalance(ctx, e.GameID); err != nil {
                    return false, err
                }
                continue
            }
            target = lo + (hi-lo)/2
            if target <= lo || target >= hi {
                return false, nil
            }
        }
        moved, err := m.store.UpdatePosition(ctx, entryID, e.Position, target)
        if err != nil {
            return false, fmt.Errorf("write position: %w", err)
        }
        return moved, nil
    }
    return false, nil
}

// MoveDown moves a waiting entry one slot toward the back of its queue.
// Semantics mirror MoveUp; past the current last entry the rank is
// last+1, which cannot collapse.
func (m *PositionManager) MoveDown(ctx context.Context, entryID uint64) (bool, error) {
    for attempt := 0; attempt < 2; attempt++ {
        e, err := m.store.Entry(ctx, entryID)
        if err != nil {
            return false, fmt.Errorf("read entry: %w", err)
        }
        if e.Status != model.StatusWaiting {
            return false, ErrNotWaiting
        }
        behind, err := m.store.WaitingAfter(ctx, e.GameID, e.Position, 2)
        if err != nil {
            return false, fmt.Errorf("read neighbors: %w", err)
        }
        if len(behind) == 0 {
            // Already at the back.
            return false, nil
        }
        var target float64
        if len(behind) == 1 {
            target = behind[0].Position + 1
        } else {
            lo, hi := behind[0].Position, behind[1].Position
            if hi-lo < m.epsilon && attempt == 0 {
                if err := m.Rebalance(ctx, e.GameID); err != nil {
                    return false, err
                }
                continue
            }
            target = lo + (hi-lo)/2
            if target <= lo || target >= hi {
                return false, nil
            }
        }
        moved, err := m.store.UpdatePosition(ctx, entryID, e.Position, target)
        if err != nil {
            return false, fmt.Errorf("write position: %w", err)
        }
        return moved, nil
    }
    return false, nil
}

// MoveToTop installs a rank strictly before every other waiting entry of
// the game (half the current minimum).  An entry that is alone in its
// queue or already at the front is a no-op success.
func (m *PositionManager) MoveToTop(ctx context.Context, entryID uint64) (bool, error) {
    for attempt := 0; attempt < 2; attempt++ {
        e, err := m.store.Entry(ctx, entryID)
        if err != nil {
            return false, fmt.Errorf("read entry: %w", err)
        }
        if e.Status != model.StatusWaiting {
            return false, ErrNotWaiting
        }
        min, ok, err := m.store.MinWaitingPosition(ctx, e.GameID, e.ID)
        if err != nil {
            return false, fmt.Errorf("read min position: %w", err)
        }
        if !ok || e.Position < min {
            // Sole entry, or already ahead of everyone.
            return true, nil
        }
        if min < m.epsilon && attempt == 0 {
            if err := m.Rebalance(ctx, e.GameID); err != nil {
                return false, err
            }
            continue
        }
        target := min / 2
        if target <= 0 || target >= min {
            return false, nil
        }
        moved, err := m.store.UpdatePosition(ctx, entryID, e.Position, target)
        if err != nil {
            return false, fmt.Errorf("write position: %w", err)
        }
        return moved, nil
    }
    return false, nil
}

// MoveToBottom installs a rank strictly after every other waiting entry
// of the game (current maximum + 1).  An entry that is alone in its queue
// or already at the back is a no-op success.
func (m *PositionManager) MoveToBottom(ctx context.Context, entryID uint64) (bool, error) {
    e, err := m.store.Entry(ctx, entryID)
    if err != nil {
        return false, fmt.Errorf("read entry: %w", err)
    }
    if e.Status != model.StatusWaiting {
        return false, ErrNotWaiting
    }
    max, ok, err := m.store.MaxWaitingPosition(ctx, e.GameID, e.ID)
    if err != nil {
        return false, fmt.Errorf("read max position: %w", err)
    }
    if !ok || e.Position > max {
        return true, nil
    }
    moved, err := m.store.UpdatePosition(ctx, entryID, e.Position, max+1)
    if err != nil {
        return false, fmt.Errorf("write position: %w", err)
    }
    return moved, nil
}

// Rebalance rewrites the ranks of a game's waiting entries to the
// integers 1..N in their current order, one update per entry.  This is
// the corrective mechanism for collapsed fractional gaps; relative order
// never changes.  Entries that leave the waiting state mid-pass are
// skipped by the store's status guard.
func (m *PositionManager) Rebalance(ctx context.Context, gameID uint64) error {
    entries, err := m.store.WaitingByGame(ctx, gameID)
    if err != nil {
        return fmt.Errorf("read queue for rebalance: %w", err)
    }
    for i := range entries {
        if err := m.store.SetPosition(ctx, entries[i].ID, float64(i+1)); err != nil {
            return fmt.Errorf("rebalance game %d at rank %d: %w", gameID, i+1, err)
        }
    }
    return nil
}
