package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hellocng/deepstack/internal/model"
)

// ErrTableNotFound is returned when a table lookup fails.
var ErrTableNotFound = errors.New("table not found")

// TableRepo provides read access to the physical game tables of a room.
type TableRepo struct {
	db *sql.DB
}

// NewTableRepo constructs a TableRepo with the given DB handle.
func NewTableRepo(db *sql.DB) *TableRepo {
	return &TableRepo{db: db}
}

// GetByID retrieves a table by its ID.  It returns ErrTableNotFound when
// no row is found.
func (r *TableRepo) GetByID(ctx context.Context, id uint64) (*model.GameTable, error) {
	const q = `SELECT id, room_id, game_id, label, seat_count, is_active, created_at, updated_at
	           FROM game_tables WHERE id = ?`
	var m model.GameTable
	err := r.db.QueryRowContext(ctx, q, id).
		Scan(&m.ID, &m.RoomID, &m.GameID, &m.Label, &m.SeatCount, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, err
	}
	return &m, nil
}

// ListActiveByGame returns the active tables running a game.  The order
// is not part of the contract; seat search takes the first table with a
// free seat in whatever order the rows come back.
func (r *TableRepo) ListActiveByGame(ctx context.Context, gameID uint64) ([]*model.GameTable, error) {
	const q = `SELECT id, room_id, game_id, label, seat_count, is_active, created_at, updated_at
	           FROM game_tables
	           WHERE game_id = ? AND is_active = 1`
	rows, err := r.db.QueryContext(ctx, q, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.GameTable
	for rows.Next() {
		m := new(model.GameTable)
		if err := rows.Scan(&m.ID, &m.RoomID, &m.GameID, &m.Label, &m.SeatCount, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
