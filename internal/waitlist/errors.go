package waitlist

import "errors"

// ErrInvalidTransition is returned when a requested status change is not
// legal from the entry's current status, or when a reorder targets an
// entry that is not waiting.  Handlers should translate this into an
// HTTP 409 response.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrNotWaiting is returned by reorder operations when the entry exists
// but is not in the waiting state, so it has no meaningful rank to move.
var ErrNotWaiting = errors.New("entry is not waiting")

// ErrConflict is returned when a transition passed its pre-read check but
// the guarded write matched zero rows: a concurrent caller changed the
// entry in between.  The operation had no effect; re-reading the entry
// shows who won.
var ErrConflict = errors.New("waitlist entry changed concurrently")

// ErrInvalidCancelParty is returned when a cancellation names a party
// other than player, staff or system.
var ErrInvalidCancelParty = errors.New("invalid cancelled_by party")
