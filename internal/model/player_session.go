package model

import "time"

// PlayerSession is the occupancy record binding a player to a seat
// within a table session for the duration they are seated.  A seat is
// available exactly when no PlayerSession with that SeatNumber and a
// null EndTime exists for the session.
//
// Fields:
//  ID             – primary key identifier.
//  TableSessionID – session the player is seated in.
//  PlayerID       – seated player.
//  SeatNumber     – physical seat (1..table.SeatCount).
//  AssignedBy     – staff member who performed the assignment (nil when
//                   performed by an automated path without identity).
//  StartTime      – when the player sat down.
//  EndTime        – when the player left the seat (nil while seated).
//  CreatedAt      – creation timestamp.
type PlayerSession struct {
    ID             uint64     // player_sessions.id
    TableSessionID uint64     // player_sessions.table_session_id
    PlayerID       uint64     // player_sessions.player_id
    SeatNumber     uint32     // player_sessions.seat_number
    AssignedBy     *uint64    // player_sessions.assigned_by (nullable)
    StartTime      time.Time  // player_sessions.start_time
    EndTime        *time.Time // player_sessions.end_time (nullable)
    CreatedAt      time.Time  // player_sessions.created_at
}
