package model

import "time"

// EntryStatus enumerates the lifecycle states of a waitlist entry.
// Entries are created in StatusWaiting (walk-in) or StatusCalledIn
// (phone/remote reservation) and end in one of the terminal states
// StatusSeated, StatusCancelled or StatusExpired.  Entries are never
// hard-deleted; terminal rows remain for history and reporting.
type EntryStatus string

// Lifecycle states stored in waitlist_entries.status.
const (
    StatusWaiting   EntryStatus = "waiting"   // in the per-game queue, position is meaningful
    StatusCalledIn  EntryStatus = "calledin"  // phoned in, must check in within the check-in window
    StatusNotified  EntryStatus = "notified"  // told a seat opened, must respond within the notify window
    StatusSeated    EntryStatus = "seated"    // assigned to a seat (terminal)
    StatusCancelled EntryStatus = "cancelled" // withdrawn by player or staff (terminal)
    StatusExpired   EntryStatus = "expired"   // response window elapsed (terminal)
)

// Terminal reports whether s is one of the terminal states.
func (s EntryStatus) Terminal() bool {
    return s == StatusSeated || s == StatusCancelled || s == StatusExpired
}

// Actors recorded in waitlist_entries.cancelled_by.
const (
    CancelledByPlayer = "player" // the player withdrew
    CancelledByStaff  = "staff"  // floor staff removed the entry
    CancelledBySystem = "system" // automatic cleanup
)

// WaitlistEntry represents a player's place in the seating queue of a
// single game.  Among entries of the same game with StatusWaiting the
// Position values are totally ordered and unique; lower sorts first.
// Position is only assigned or updated while the entry is (or is
// becoming) waiting; leaving the waiting state freezes the value as a
// last-known rank but does not clear it.
//
// Fields:
//  ID          – primary key identifier.
//  GameID      – game whose queue this entry belongs to.
//  RoomID      – room running the game (denormalized for room scans).
//  PlayerID    – player waiting for a seat.
//  Status      – lifecycle state, see EntryStatus.
//  Position    – fractional rank among waiting entries of the game.
//  Notes       – free text captured at signup; never mutated by the core.
//  NotifiedAt  – set exactly once on the calledin→notified transition.
//  CheckedInAt – set when the player is seated.
//  CancelledAt – set exactly once on transition into cancelled.
//  CancelledBy – player|staff|system, set together with CancelledAt.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – bumped by every transition and reorder.
type WaitlistEntry struct {
    ID          uint64      // waitlist_entries.id
    GameID      uint64      // waitlist_entries.game_id
    RoomID      uint64      // waitlist_entries.room_id
    PlayerID    uint64      // waitlist_entries.player_id
    Status      EntryStatus // waitlist_entries.status
    Position    float64     // waitlist_entries.position
    Notes       string      // waitlist_entries.notes
    NotifiedAt  *time.Time  // waitlist_entries.notified_at (nullable)
    CheckedInAt *time.Time  // waitlist_entries.checked_in_at (nullable)
    CancelledAt *time.Time  // waitlist_entries.cancelled_at (nullable)
    CancelledBy *string     // waitlist_entries.cancelled_by (nullable)
    CreatedAt   time.Time   // waitlist_entries.created_at
    UpdatedAt   time.Time   // waitlist_entries.updated_at
}
