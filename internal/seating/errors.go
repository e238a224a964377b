package seating

import "errors"

// ErrSeatUnavailable is returned when the requested seat already has an
// open occupancy record.
var ErrSeatUnavailable = errors.New("seat is not available")

// ErrNoActiveSession is returned when assignment targets a table that is
// not currently running a seating session.
var ErrNoActiveSession = errors.New("table has no active session")

// ErrInvalidSeat is returned when a seat number is zero or beyond the
// table's seat count.
var ErrInvalidSeat = errors.New("seat number out of range")

// ErrTableInactive is returned when assignment targets a deactivated table.
var ErrTableInactive = errors.New("table is not active")

// ErrNoWaitingEntry is returned by auto-assignment when the game's queue
// has no waiting entry to seat.
var ErrNoWaitingEntry = errors.New("no waiting entries for this game")

// ErrNoSeatAvailable is returned when no active table of the game has a
// free seat in an open session.
var ErrNoSeatAvailable = errors.New("no free seat for this game")

// ErrSessionEnded is returned when removal targets an occupancy record
// that is already closed.
var ErrSessionEnded = errors.New("player session already ended")

// ErrGameRoomMismatch is returned when auto-assignment names a game that
// does not belong to the given room.
var ErrGameRoomMismatch = errors.New("game does not belong to this room")
