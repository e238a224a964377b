package model

import "time"

// Game represents a game offering inside a room, e.g. "1/2 NLHE" or
// "5/5 PLO".  A game belongs to exactly one room and owns one waitlist.
// Players queue per game; tables are configured per game.
//
// Fields:
//  ID        – primary key identifier.
//  RoomID    – room running this game.
//  Name      – display name, unique per room.
//  IsActive  – whether the game currently accepts waitlist entries.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Game struct {
    ID        uint64    // games.id
    RoomID    uint64    // games.room_id
    Name      string    // games.name
    IsActive  bool      // games.is_active
    CreatedAt time.Time // games.created_at
    UpdatedAt time.Time // games.updated_at
}
