package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hellocng/deepstack/internal/model"
)

// ErrRoomNotFound is returned when a room lookup fails.
var ErrRoomNotFound = errors.New("room not found")

// RoomRepo provides read access to rooms.  Rooms are configuration data
// managed outside this service, so only lookups are exposed.
type RoomRepo struct {
	db *sql.DB
}

// NewRoomRepo constructs a RoomRepo with the given DB handle.
func NewRoomRepo(db *sql.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// GetByID retrieves a room by its ID.  It returns ErrRoomNotFound when
// no row is found.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (*model.Room, error) {
	const q = `SELECT id, name, is_active, created_at, updated_at FROM rooms WHERE id = ?`
	var m model.Room
	err := r.db.QueryRowContext(ctx, q, id).Scan(&m.ID, &m.Name, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &m, nil
}

// ListActive returns every active room ordered by id.
func (r *RoomRepo) ListActive(ctx context.Context) ([]*model.Room, error) {
	const q = `SELECT id, name, is_active, created_at, updated_at FROM rooms WHERE is_active = 1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Room
	for rows.Next() {
		m := new(model.Room)
		if err := rows.Scan(&m.ID, &m.Name, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
