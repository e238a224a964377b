package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hellocng/deepstack/internal/model"
)

// ErrStaffNotFound is returned when a staff lookup fails.  Login maps it
// to the same 401 as a bad password so the response does not reveal
// which emails exist.
var ErrStaffNotFound = errors.New("staff not found")

// StaffRepo provides read access to staff accounts for authentication.
type StaffRepo struct {
	db *sql.DB
}

// NewStaffRepo constructs a StaffRepo with the given DB handle.
func NewStaffRepo(db *sql.DB) *StaffRepo {
	return &StaffRepo{db: db}
}

// GetByEmail retrieves an active staff account by email.  It returns
// ErrStaffNotFound when no active row matches.
func (r *StaffRepo) GetByEmail(ctx context.Context, email string) (*model.Staff, error) {
	const q = `SELECT id, email, password_hash, role, is_active, created_at, updated_at
	           FROM staff
	           WHERE email = ? AND is_active = 1`
	var m model.Staff
	err := r.db.QueryRowContext(ctx, q, email).
		Scan(&m.ID, &m.Email, &m.PasswordHash, &m.Role, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStaffNotFound
		}
		return nil, err
	}
	return &m, nil
}
