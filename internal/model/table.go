package model

import "time"

// GameTable describes a physical table on the floor.  A table is
// configured for one game and seats a fixed number of players; seats
// are addressed by number 1..SeatCount.  Occupancy is not stored here,
// it is derived from the open TableSession and its PlayerSessions.
//
// Fields:
//  ID        – primary key identifier.
//  RoomID    – room the table stands in.
//  GameID    – game the table is configured for.
//  Label     – floor label, e.g. "Table 7".
//  SeatCount – number of physical seats (1-based seat numbers).
//  IsActive  – whether the table is in service.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type GameTable struct {
    ID        uint64    // game_tables.id
    RoomID    uint64    // game_tables.room_id
    GameID    uint64    // game_tables.game_id
    Label     string    // game_tables.label
    SeatCount uint32    // game_tables.seat_count
    IsActive  bool      // game_tables.is_active
    CreatedAt time.Time // game_tables.created_at
    UpdatedAt time.Time // game_tables.updated_at
}
