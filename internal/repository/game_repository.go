package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hellocng/deepstack/internal/model"
)

// ErrGameNotFound is returned when a game lookup fails.
var ErrGameNotFound = errors.New("game not found")

// GameRepo provides read access to games.  A game belongs to exactly one
// room; waitlist operations validate that pairing through GetByID.
type GameRepo struct {
	db *sql.DB
}

// NewGameRepo constructs a GameRepo with the given DB handle.
func NewGameRepo(db *sql.DB) *GameRepo {
	return &GameRepo{db: db}
}

// GetByID retrieves a game by its ID.  It returns ErrGameNotFound when
// no row is found.
func (r *GameRepo) GetByID(ctx context.Context, id uint64) (*model.Game, error) {
	const q = `SELECT id, room_id, name, is_active, created_at, updated_at FROM games WHERE id = ?`
	var m model.Game
	err := r.db.QueryRowContext(ctx, q, id).Scan(&m.ID, &m.RoomID, &m.Name, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	return &m, nil
}

// ListByRoom returns the active games of a room ordered by id.  Used by
// the room-wide waitlist view to group entries per game.
func (r *GameRepo) ListByRoom(ctx context.Context, roomID uint64) ([]*model.Game, error) {
	const q = `SELECT id, room_id, name, is_active, created_at, updated_at
	           FROM games
	           WHERE room_id = ? AND is_active = 1
	           ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Game
	for rows.Next() {
		m := new(model.Game)
		if err := rows.Scan(&m.ID, &m.RoomID, &m.Name, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
