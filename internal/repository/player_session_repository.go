package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"

    "github.com/hellocng/deepstack/internal/model"
)

// ErrPlayerSessionNotFound is returned when an occupancy lookup fails.
var ErrPlayerSessionNotFound = errors.New("player session not found")

// PlayerSessionRepo provides access to occupancy records.  An open row
// (end_time IS NULL) means the seat is taken; seat availability is the
// numeric complement of the open rows of a table session.
type PlayerSessionRepo struct {
    db *sql.DB
}

// NewPlayerSessionRepo constructs a PlayerSessionRepo with the given DB handle.
func NewPlayerSessionRepo(db *sql.DB) *PlayerSessionRepo {
    return &PlayerSessionRepo{db: db}
}

// GetByID retrieves an occupancy record by its ID.  It returns
// ErrPlayerSessionNotFound when no row is found.
func (r *PlayerSessionRepo) GetByID(ctx context.Context, id uint64) (*model.PlayerSession, error) {
    const q = `SELECT id, table_session_id, player_id, seat_number, assigned_by, start_time, end_time, created_at
               FROM player_sessions WHERE id = ?`
    var m model.PlayerSession
    var assignedBy sql.NullInt64
    var endTime sql.NullTime
    err := r.db.QueryRowContext(ctx, q, id).
        Scan(&m.ID, &m.TableSessionID, &m.PlayerID, &m.SeatNumber, &assignedBy, &m.StartTime, &endTime, &m.CreatedAt)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrPlayerSessionNotFound
        }
        return nil, err
    }
    if assignedBy.Valid {
        v := uint64(assignedBy.Int64)
        m.AssignedBy = &v
    }
    if endTime.Valid {
        t := endTime.Time
        m.EndTime = &t
    }
    return &m, nil
}

// OpenBySession returns the open occupancy rows of a table session
// ordered by seat number.  The result drives both the availability
// complement and the occupancy view.
func (r *PlayerSessionRepo) OpenBySession(ctx context.Context, sessionID uint64) ([]model.PlayerSession, error) {
    const q = `SELECT id, table_session_id, player_id, seat_number, assigned_by, start_time, end_time, created_at
               FROM player_sessions
               WHERE table_session_id = ? AND end_time IS NULL
               ORDER BY seat_number ASC`
    rows, err := r.db.QueryContext(ctx, q, sessionID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var out []model.PlayerSession
    for rows.Next() {
        var m model.PlayerSession
        var assignedBy sql.NullInt64
        var endTime sql.NullTime
        if err := rows.Scan(&m.ID, &m.TableSessionID, &m.PlayerID, &m.SeatNumber, &assignedBy, &m.StartTime, &endTime, &m.CreatedAt); err != nil {
            return nil, err
        }
        if assignedBy.Valid {
            v := uint64(assignedBy.Int64)
            m.AssignedBy = &v
        }
        if endTime.Valid {
            t := endTime.Time
            m.EndTime = &t
        }
        out = append(out, m)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// SeatOccupied reports whether a seat has an open occupancy row within a
// table session.  Used as the race guard re-check just before creating a
// new occupancy record.
func (r *PlayerSessionRepo) SeatOccupied(ctx context.Context, sessionID uint64, seatNumber uint32) (bool, error) {
    const q = `SELECT EXISTS(
                   SELECT 1 FROM player_sessions
                   WHERE table_session_id = ? AND seat_number = ? AND end_time IS NULL
               )`
    var occupied bool
    if err := r.db.QueryRowContext(ctx, q, sessionID, seatNumber).Scan(&occupied); err != nil {
        return false, err
    }
    return occupied, nil
}

// Create inserts a new open occupancy record and populates its ID and the
// database-assigned start_time and created_at on the passed record.  A
// duplicate-key violation on the open-seat index (two writers racing for
// the same seat) is returned as ErrConflict.
func (r *PlayerSessionRepo) Create(ctx context.Context, s *model.PlayerSession) error {
    const q = `INSERT INTO player_sessions (table_session_id, player_id, seat_number, assigned_by)
               VALUES (?, ?, ?, ?)`
    var assignedBy sql.NullInt64
    if s.AssignedBy != nil {
        assignedBy = sql.NullInt64{Int64: int64(*s.AssignedBy), Valid: true}
    }
    res, err := r.db.ExecContext(ctx, q, s.TableSessionID, s.PlayerID, s.SeatNumber, assignedBy)
    if err != nil {
        if strings.Contains(err.Error(), "1062") { // mysql duplicate entry
            return ErrConflict
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    s.ID = uint64(id)

    const sel = `SELECT start_time, created_at FROM player_sessions WHERE id = ?`
    return r.db.QueryRowContext(ctx, sel, s.ID).Scan(&s.StartTime, &s.CreatedAt)
}

// End closes an occupancy record by stamping end_time.  It returns false
// when the row was already closed or does not exist, which makes repeated
// removals harmless.
func (r *PlayerSessionRepo) End(ctx context.Context, id uint64) (bool, error) {
    const q = `UPDATE player_sessions
               SET end_time = UTC_TIMESTAMP()
               WHERE id = ? AND end_time IS NULL`
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

// DeleteOpen hard-deletes an occupancy record that is still open.  This
// exists solely for the assignment rollback path: the row was created
// moments ago by the same call and must vanish, not merely close, when
// the seating transition fails.
func (r *PlayerSessionRepo) DeleteOpen(ctx context.Context, id uint64) error {
    const q = `DELETE FROM player_sessions WHERE id = ? AND end_time IS NULL`
    _, err := r.db.ExecContext(ctx, q, id)
    return err
}
