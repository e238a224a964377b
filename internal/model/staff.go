package model

import "time"

// Staff represents a venue employee who operates waitlists and seats
// players.  The role is carried in the JWT and checked by middleware;
// FLOOR staff run day-to-day seating, ADMIN additionally manages rooms.
// Accounts are provisioned externally; this service only verifies
// credentials at login and reads the record for identity.
//
// Fields:
//  ID           – primary key identifier.
//  Email        – unique login email.
//  PasswordHash – bcrypt hash of the login password.
//  Role         – FLOOR or ADMIN.
//  IsActive     – whether the account may log in.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Staff struct {
    ID           uint64    // staff.id
    Email        string    // staff.email
    PasswordHash string    // staff.password_hash
    Role         string    // staff.role
    IsActive     bool      // staff.is_active
    CreatedAt    time.Time // staff.created_at
    UpdatedAt    time.Time // staff.updated_at
}
