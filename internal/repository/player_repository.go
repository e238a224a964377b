package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hellocng/deepstack/internal/model"
)

// ErrPlayerNotFound is returned when a player lookup fails.
var ErrPlayerNotFound = errors.New("player not found")

// PlayerRepo provides read access to players.  Player enrollment happens
// at the front desk outside this service; waitlist joins only validate
// that the referenced player exists.
type PlayerRepo struct {
	db *sql.DB
}

// NewPlayerRepo constructs a PlayerRepo with the given DB handle.
func NewPlayerRepo(db *sql.DB) *PlayerRepo {
	return &PlayerRepo{db: db}
}

// GetByID retrieves a player by its ID.  It returns ErrPlayerNotFound
// when no row is found.
func (r *PlayerRepo) GetByID(ctx context.Context, id uint64) (*model.Player, error) {
	const q = `SELECT id, alias, phone, created_at, updated_at FROM players WHERE id = ?`
	var m model.Player
	var phone sql.NullString
	err := r.db.QueryRowContext(ctx, q, id).Scan(&m.ID, &m.Alias, &phone, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	if phone.Valid {
		p := phone.String
		m.Phone = &p
	}
	return &m, nil
}
