package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/hellocng/deepstack/internal/model"
)

// ErrEntryNotFound is returned when a waitlist entry lookup fails.
var ErrEntryNotFound = errors.New("waitlist entry not found")

// WaitlistRepo provides data access to the waitlist_entries table.  It is
// the storage adapter behind the position manager, the status lifecycle
// manager and the sweeper: thin, single-statement reads and guarded
// writes with no cross-call transactions.  All timestamps are stored and
// compared in UTC – the connection is opened with loc=UTC and the
// UPDATE statements use UTC_TIMESTAMP().
//
// Status-changing updates carry their legality guard in the WHERE clause
// (id plus the set of states the transition is allowed from), so the
// losing side of two concurrent transitions matches zero rows instead of
// corrupting the entry.  Position updates are guarded on the previously
// read rank for the same reason.  MySQL DOUBLE round-trips through the
// driver without loss, so rank equality in the guard is exact.
type WaitlistRepo struct {
    db *sql.DB
}

// NewWaitlistRepo returns a new WaitlistRepo bound to the provided database.
func NewWaitlistRepo(db *sql.DB) *WaitlistRepo { return &WaitlistRepo{db: db} }

// entryColumns is the column list shared by every SELECT that scans a
// full waitlist entry.  Keep it in sync with scanEntry.
const entryColumns = `id, game_id, room_id, player_id, status, position, notes,
                      notified_at, checked_in_at, cancelled_at, cancelled_by,
                      created_at, updated_at`

// scanEntry scans one row produced with entryColumns into a WaitlistEntry.
func scanEntry(row interface{ Scan(...interface{}) error }) (*model.WaitlistEntry, error) {
    var e model.WaitlistEntry
    var status string
    var notifiedAt, checkedInAt, cancelledAt sql.NullTime
    var cancelledBy sql.NullString
    err := row.Scan(
        &e.ID, &e.GameID, &e.RoomID, &e.PlayerID, &status, &e.Position, &e.Notes,
        &notifiedAt, &checkedInAt, &cancelledAt, &cancelledBy,
        &e.CreatedAt, &e.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    e.Status = model.EntryStatus(status)
    if notifiedAt.Valid {
        t := notifiedAt.Time
        e.NotifiedAt = &t
    }
    if checkedInAt.Valid {
        t := checkedInAt.Time
        e.CheckedInAt = &t
    }
    if cancelledAt.Valid {
        t := cancelledAt.Time
        e.CancelledAt = &t
    }
    if cancelledBy.Valid {
        by := cancelledBy.String
        e.CancelledBy = &by
    }
    return &e, nil
}

// collectEntries drains rows produced with entryColumns into a slice.
func collectEntries(rows *sql.Rows) ([]model.WaitlistEntry, error) {
    defer rows.Close()
    var out []model.WaitlistEntry
    for rows.Next() {
        e, err := scanEntry(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *e)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// Entry returns a single waitlist entry by id.  It returns
// ErrEntryNotFound when no row matches.
func (r *WaitlistRepo) Entry(ctx context.Context, id uint64) (*model.WaitlistEntry, error) {
    const q = `SELECT ` + entryColumns + ` FROM waitlist_entries WHERE id = ?`
    e, err := scanEntry(r.db.QueryRowContext(ctx, q, id))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrEntryNotFound
        }
        return nil, err
    }
    return e, nil
}

// Insert creates a new waitlist entry and populates its ID and the
// database-assigned timestamps on the passed record.  Callers set the
// status and, for waiting entries, the position before calling.
func (r *WaitlistRepo) Insert(ctx context.Context, e *model.WaitlistEntry) error {
    const q = `INSERT INTO waitlist_entries (game_id, room_id, player_id, status, position, notes)
               VALUES (?, ?, ?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q, e.GameID, e.RoomID, e.PlayerID, string(e.Status), e.Position, e.Notes)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    e.ID = uint64(id)
    // Read back the row so the caller sees created_at/updated_at defaults.
    const sel = `SELECT created_at, updated_at FROM waitlist_entries WHERE id = ?`
    return r.db.QueryRowContext(ctx, sel, e.ID).Scan(&e.CreatedAt, &e.UpdatedAt)
}

// WaitingByGame returns every waiting entry of a game ordered by rank.
// The secondary id ordering keeps the result deterministic when equal
// ranks have crept in (the bug condition rebalancing repairs).
func (r *WaitlistRepo) WaitingByGame(ctx context.Context, gameID uint64) ([]model.WaitlistEntry, error) {
    const q = `SELECT ` + entryColumns + ` FROM waitlist_entries
               WHERE game_id = ? AND status = 'waiting'
               ORDER BY position ASC, id ASC`
    rows, err := r.db.QueryContext(ctx, q, gameID)
    if err != nil {
        return nil, err
    }
    return collectEntries(rows)
}

// FirstWaiting returns the waiting entry with the lowest rank for a
// game – the front of the queue.  ErrEntryNotFound when the queue is
// empty.
func (r *WaitlistRepo) FirstWaiting(ctx context.Context, gameID uint64) (*model.WaitlistEntry, error) {
    const q = `SELECT ` + entryColumns + ` FROM waitlist_entries
               WHERE game_id = ? AND status = 'waiting'
               ORDER BY position ASC, id ASC
               LIMIT 1`
    e, err := scanEntry(r.db.QueryRowContext(ctx, q, gameID))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrEntryNotFound
        }
        return nil, err
    }
    return e, nil
}

// MaxWaitingPosition returns the highest rank among the waiting entries
// of a game, excluding excludeID when non-zero.  The boolean reports
// whether any row matched.
func (r *WaitlistRepo) MaxWaitingPosition(ctx context.Context, gameID, excludeID uint64) (float64, bool, error) {
    const q = `SELECT position FROM waitlist_entries
               WHERE game_id = ? AND status = 'waiting' AND id <> ?
               ORDER BY position DESC
               LIMIT 1`
    var pos float64
    err := r.db.QueryRowContext(ctx, q, gameID, excludeID).Scan(&pos)
    if errors.Is(err, sql.ErrNoRows) {
        return 0, false, nil
    }
    if err != nil {
        return 0, false, err
    }
    return pos, true, nil
}

// MinWaitingPosition mirrors MaxWaitingPosition for the lowest rank.
func (r *WaitlistRepo) MinWaitingPosition(ctx context.Context, gameID, excludeID uint64) (float64, bool, error) {
    const q = `SELECT position FROM waitlist_entries
               WHERE game_id = ? AND status = 'waiting' AND id <> ?
               ORDER BY position ASC
               LIMIT 1`
    var pos float64
    err := r.db.QueryRowContext(ctx, q, gameID, excludeID).Scan(&pos)
    if errors.Is(err, sql.ErrNoRows) {
        return 0, false, nil
    }
    if err != nil {
        return 0, false, err
    }
    return pos, true, nil
}

// WaitingBefore returns up to limit waiting entries of a game ranked
// strictly below pos, closest first.  Used to locate the neighbor (and
// the one beyond it) when moving an entry up.
func (r *WaitlistRepo) WaitingBefore(ctx context.Context, gameID uint64, pos float64, limit int) ([]model.WaitlistEntry, error) {
    const q = `SELECT ` + entryColumns + ` FROM waitlist_entries
               WHERE game_id = ? AND status = 'waiting' AND position < ?
               ORDER BY position DESC, id DESC
               LIMIT ?`
    rows, err := r.db.QueryContext(ctx, q, gameID, pos, limit)
    if err != nil {
        return nil, err
    }
    return collectEntries(rows)
}

// WaitingAfter returns up to limit waiting entries ranked strictly above
// pos, closest first.  Used when moving an entry down.
func (r *WaitlistRepo) WaitingAfter(ctx context.Context, gameID uint64, pos float64, limit int) ([]model.WaitlistEntry, error) {
    const q = `SELECT ` + entryColumns + ` FROM waitlist_entries
               WHERE game_id = ? AND status = 'waiting' AND position > ?
               ORDER BY position ASC, id ASC
               LIMIT ?`
    rows, err := r.db.QueryContext(ctx, q, gameID, pos, limit)
    if err != nil {
        return nil, err
    }
    return collectEntries(rows)
}

// WaitingFrom returns up to limit waiting entries ranked at or above
// pos, lowest first.  Together with WaitingBefore it yields the pair of
// entries surrounding a requested rank slot during insert-at-position.
func (r *WaitlistRepo) WaitingFrom(ctx context.Context, gameID uint64, pos float64, limit int) ([]model.WaitlistEntry, error) {
    const q = `SELECT ` + entryColumns + ` FROM waitlist_entries
               WHERE game_id = ? AND status = 'waiting' AND position >= ?
               ORDER BY position ASC, id ASC
               LIMIT ?`
    rows, err := r.db.QueryContext(ctx, q, gameID, pos, limit)
    if err != nil {
        return nil, err
    }
    return collectEntries(rows)
}

// ActiveByGame returns the non-terminal entries of a game for room
// views: the waiting queue in rank order first, then called-in and
// notified players by signup time.
func (r *WaitlistRepo) ActiveByGame(ctx context.Context, gameID uint64) ([]model.WaitlistEntry, error) {
    const q = `SELECT ` + entryColumns + ` FROM waitlist_entries
               WHERE game_id = ? AND status IN ('waiting','notified','calledin')
               ORDER BY FIELD(status,'waiting','notified','calledin'), position ASC, created_at ASC, id ASC`
    rows, err := r.db.QueryContext(ctx, q, gameID)
    if err != nil {
        return nil, err
    }
    return collectEntries(rows)
}

// ActiveByRoom returns the non-terminal entries across every game of a
// room, grouped by game for the room-wide board.
func (r *WaitlistRepo) ActiveByRoom(ctx context.Context, roomID uint64) ([]model.WaitlistEntry, error) {
    const q = `SELECT ` + entryColumns + ` FROM waitlist_entries
               WHERE room_id = ? AND status IN ('waiting','notified','calledin')
               ORDER BY game_id ASC, FIELD(status,'waiting','notified','calledin'), position ASC, created_at ASC, id ASC`
    rows, err := r.db.QueryContext(ctx, q, roomID)
    if err != nil {
        return nil, err
    }
    return collectEntries(rows)
}

// AwaitingResponseByRoom returns the calledin and notified entries of a
// room.  The sweeper filters these against its policy deadlines; keeping
// the deadline arithmetic out of SQL keeps the window a process-level
// policy rather than stored state.
func (r *WaitlistRepo) AwaitingResponseByRoom(ctx context.Context, roomID uint64) ([]model.WaitlistEntry, error) {
    const q = `SELECT ` + entryColumns + ` FROM waitlist_entries
               WHERE room_id = ? AND status IN ('calledin','notified')
               ORDER BY created_at ASC, id ASC`
    rows, err := r.db.QueryContext(ctx, q, roomID)
    if err != nil {
        return nil, err
    }
    return collectEntries(rows)
}

// UpdatePosition re-ranks a waiting entry, guarded on the rank the
// caller previously read.  It returns false when the guard missed –
// either the entry left the waiting state or a concurrent reorder won.
func (r *WaitlistRepo) UpdatePosition(ctx context.Context, id uint64, oldPos, newPos float64) (bool, error) {
    const q = `UPDATE waitlist_entries
               SET position = ?, updated_at = UTC_TIMESTAMP()
               WHERE id = ? AND status = 'waiting' AND position = ?`
    res, err := r.db.ExecContext(ctx, q, newPos, id, oldPos)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n > 0, nil
}

// SetPosition writes a rank without a rank guard.  It is used by
// rebalancing, which rewrites the whole queue; the status guard still
// keeps it from touching entries that left the waiting state mid-pass.
func (r *WaitlistRepo) SetPosition(ctx context.Context, id uint64, pos float64) error {
    const q = `UPDATE waitlist_entries
               SET position = ?, updated_at = UTC_TIMESTAMP()
               WHERE id = ? AND status = 'waiting'`
    _, err := r.db.ExecContext(ctx, q, pos, id)
    return err
}

// MarkNotified transitions calledin → notified and stamps notified_at.
// calledin is only ever entered at creation, so the stamp is written at
// most once over the entry's lifetime.  Returns false when the entry was
// not calledin.
func (r *WaitlistRepo) MarkNotified(ctx context.Context, id uint64) (bool, error) {
    const q = `UPDATE waitlist_entries
               SET status = 'notified', notified_at = UTC_TIMESTAMP(), updated_at = UTC_TIMESTAMP()
               WHERE id = ? AND status = 'calledin'`
    res, err := r.db.ExecContext(ctx, q, id)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n > 0, nil
}

// MarkSeated transitions waiting/calledin/notified → seated and stamps
// checked_in_at unless an earlier return-to-waiting already did.
func (r *WaitlistRepo) MarkSeated(ctx context.Context, id uint64) (bool, error) {
    const q = `UPDATE waitlist_entries
               SET status = 'seated',
                   checked_in_at = COALESCE(checked_in_at, UTC_TIMESTAMP()),
                   updated_at = UTC_TIMESTAMP()
               WHERE id = ? AND status IN ('waiting','calledin','notified')`
    res, err := r.db.ExecContext(ctx, q, id)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n > 0, nil
}

// MarkExpired transitions calledin/notified → expired.  The status set
// in the guard is what makes sweeping idempotent: a second pass over an
// already expired entry matches nothing.
func (r *WaitlistRepo) MarkExpired(ctx context.Context, id uint64) (bool, error) {
    const q = `UPDATE waitlist_entries
               SET status = 'expired', updated_at = UTC_TIMESTAMP()
               WHERE id = ? AND status IN ('calledin','notified')`
    res, err := r.db.ExecContext(ctx, q, id)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n > 0, nil
}

// MarkCancelled transitions waiting/calledin/notified → cancelled and
// stamps cancelled_at together with the acting party.
func (r *WaitlistRepo) MarkCancelled(ctx context.Context, id uint64, by string) (bool, error) {
    const q = `UPDATE waitlist_entries
               SET status = 'cancelled', cancelled_at = UTC_TIMESTAMP(), cancelled_by = ?,
                   updated_at = UTC_TIMESTAMP()
               WHERE id = ? AND status IN ('waiting','calledin','notified')`
    res, err := r.db.ExecContext(ctx, q, by, id)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n > 0, nil
}

// ReturnToWaiting transitions calledin/notified → waiting: the player
// has physically arrived, so checked_in_at is stamped and the caller
// supplies a fresh tail rank.
func (r *WaitlistRepo) ReturnToWaiting(ctx context.Context, id uint64, pos float64) (bool, error) {
    const q = `UPDATE waitlist_entries
               SET status = 'waiting', position = ?,
                   checked_in_at = COALESCE(checked_in_at, UTC_TIMESTAMP()),
                   updated_at = UTC_TIMESTAMP()
               WHERE id = ? AND status IN ('calledin','notified')`
    res, err := r.db.ExecContext(ctx, q, pos, id)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n > 0, nil
}

// Rejoin transitions cancelled/expired → waiting, clearing the
// cancellation fields and installing the supplied tail rank.
func (r *WaitlistRepo) Rejoin(ctx context.Context, id uint64, pos float64) (bool, error) {
    const q = `UPDATE waitlist_entries
               SET status = 'waiting', position = ?,
                   cancelled_at = NULL, cancelled_by = NULL,
                   updated_at = UTC_TIMESTAMP()
               WHERE id = ? AND status IN ('cancelled','expired')`
    res, err := r.db.ExecContext(ctx, q, pos, id)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n > 0, nil
}
