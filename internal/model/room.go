package model

import "time"

// Room represents a physical card room inside the venue.  A room runs
// multiple games, each with its own waitlist.  This struct corresponds
// to a row in the `rooms` table.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – unique room name within the venue.
//  IsActive  – whether the room is currently operating.
//  CreatedAt – timestamp when the room was created.
//  UpdatedAt – timestamp of last update.
type Room struct {
    ID        uint64    // rooms.id
    Name      string    // rooms.name
    IsActive  bool      // rooms.is_active
    CreatedAt time.Time // rooms.created_at
    UpdatedAt time.Time // rooms.updated_at
}
