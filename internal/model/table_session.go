package model

import "time"

// TableSession is one open seating period for a table running a game.
// A session starts when staff opens the table and ends when it closes;
// at most one session per table has a null EndTime at any moment.  The
// seat assignment coordinator only ever seats players into the open
// session of a table.
//
// Fields:
//  ID        – primary key identifier.
//  TableID   – table this session belongs to.
//  GameID    – game dealt during the session.
//  StartTime – when the table opened.
//  EndTime   – when the table closed (nil while open).
//  CreatedAt – creation timestamp.
type TableSession struct {
    ID        uint64     // table_sessions.id
    TableID   uint64     // table_sessions.table_id
    GameID    uint64     // table_sessions.game_id
    StartTime time.Time  // table_sessions.start_time
    EndTime   *time.Time // table_sessions.end_time (nullable)
    CreatedAt time.Time  // table_sessions.created_at
}
