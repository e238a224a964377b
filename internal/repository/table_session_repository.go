package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/hellocng/deepstack/internal/model"
)

// ErrNoOpenSession is returned when a table has no open seating session.
// Seat assignment requires one; callers translate this into a 409.
var ErrNoOpenSession = errors.New("table has no open session")

// ErrSessionNotFound is returned when a session lookup by id fails.
var ErrSessionNotFound = errors.New("table session not found")

// TableSessionRepo provides access to seating sessions.  A session is the
// open seating period of one table running one game; the schema allows
// history, but at most one session per table may have a NULL end_time.
type TableSessionRepo struct {
    db *sql.DB
}

// NewTableSessionRepo constructs a TableSessionRepo with the given DB handle.
func NewTableSessionRepo(db *sql.DB) *TableSessionRepo {
    return &TableSessionRepo{db: db}
}

// OpenByTable retrieves the open session of a table.  It returns
// ErrNoOpenSession when the table is not currently seating.
func (r *TableSessionRepo) OpenByTable(ctx context.Context, tableID uint64) (*model.TableSession, error) {
    const q = `SELECT id, table_id, game_id, start_time, end_time, created_at
               FROM table_sessions
               WHERE table_id = ? AND end_time IS NULL
               LIMIT 1`
    m, err := r.scanOne(r.db.QueryRowContext(ctx, q, tableID))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrNoOpenSession
        }
        return nil, err
    }
    return m, nil
}

// GetByID retrieves a session by its ID, open or closed.  It returns
// ErrSessionNotFound when no row is found.
func (r *TableSessionRepo) GetByID(ctx context.Context, id uint64) (*model.TableSession, error) {
    const q = `SELECT id, table_id, game_id, start_time, end_time, created_at
               FROM table_sessions WHERE id = ?`
    m, err := r.scanOne(r.db.QueryRowContext(ctx, q, id))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrSessionNotFound
        }
        return nil, err
    }
    return m, nil
}

func (r *TableSessionRepo) scanOne(row *sql.Row) (*model.TableSession, error) {
    var m model.TableSession
    var endTime sql.NullTime
    err := row.Scan(&m.ID, &m.TableID, &m.GameID, &m.StartTime, &endTime, &m.CreatedAt)
    if err != nil {
        return nil, err
    }
    if endTime.Valid {
        t := endTime.Time
        m.EndTime = &t
    }
    return &m, nil
}
