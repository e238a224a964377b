// Package repository implements MySQL data access for the waitlist
// service.  Per-aggregate not-found sentinels live next to their
// repository; this file holds the ones shared across aggregates.
package repository

import "errors"

// ErrConflict is returned when a write loses to concurrent state it
// cannot override, such as inserting an occupancy row for a seat another
// assignment just claimed.  Handlers translate it into an HTTP 409.
var ErrConflict = errors.New("conflict")
