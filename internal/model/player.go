package model

import "time"

// Player represents a patron known to the venue.  Player records are
// managed by external CRUD surfaces; the waitlist core only references
// them by ID and never mutates them.
//
// Fields:
//  ID        – primary key identifier.
//  Alias     – display name shown on room boards.
//  Phone     – contact number used by the downstream notifier (optional).
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Player struct {
    ID        uint64    // players.id
    Alias     string    // players.alias
    Phone     *string   // players.phone (nullable)
    CreatedAt time.Time // players.created_at
    UpdatedAt time.Time // players.updated_at
}
