package waitlist

import (
    "context"
    "fmt"
    "log"
    "sync"
    "time"

    "github.com/hellocng/deepstack/internal/model"
)

// Sweeper expires stale calledin and notified entries on a fixed
// interval, one ticker goroutine per armed room.  Deadlines are policy
// windows applied to each entry's anchor timestamp, not stored per entry:
// a calledin entry expires checkInWindow after it was created, a notified
// entry expires notifyWindow after it was notified.
//
// Schedules live for the process only.  Rooms are armed when their
// waitlist view becomes active and must be re-armed after a restart.
// Duplicate sweeps are harmless: the expire transition is guarded on
// status, so a second pass over an already expired entry changes nothing.
type Sweeper struct {
    store     EntryStore
    lifecycle *LifecycleManager

    interval      time.Duration
    checkInWindow time.Duration
    notifyWindow  time.Duration

    now func() time.Time

    mu    sync.Mutex
    rooms map[uint64]chan struct{}
}

// NewSweeper constructs a Sweeper.  interval is how often each armed room
// is scanned; checkInWindow and notifyWindow are the response windows for
// calledin and notified entries.
func NewSweeper(store EntryStore, lifecycle *LifecycleManager, interval, checkInWindow, notifyWindow time.Duration) *Sweeper {
    return &Sweeper{
        store:         store,
        lifecycle:     lifecycle,
        interval:      interval,
        checkInWindow: checkInWindow,
        notifyWindow:  notifyWindow,
        now:           time.Now,
        rooms:         make(map[uint64]chan struct{}),
    }
}

// Arm starts periodic sweeping for a room.  Arming an already armed room
// is a no-op.
func (s *Sweeper) Arm(roomID uint64) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if _, ok := s.rooms[roomID]; ok {
        return
    }
    stop := make(chan struct{})
    s.rooms[roomID] = stop
    go s.run(roomID, stop)
    log.Printf("sweeper: armed room %d (every %s)", roomID, s.interval)
}

// Disarm stops sweeping a room and releases its ticker goroutine.
// Disarming an idle room is a no-op.
func (s *Sweeper) Disarm(roomID uint64) {
    s.mu.Lock()
    defer s.mu.Unlock()
    stop, ok := s.rooms[roomID]
    if !ok {
        return
    }
    delete(s.rooms, roomID)
    close(stop)
    log.Printf("sweeper: disarmed room %d", roomID)
}

// Armed reports whether a room is currently being swept.
func (s *Sweeper) Armed(roomID uint64) bool {
    s.mu.Lock()
    defer s.mu.Unlock()
    _, ok := s.rooms[roomID]
    return ok
}

// Stop disarms every room.  Called on shutdown.
func (s *Sweeper) Stop() {
    s.mu.Lock()
    defer s.mu.Unlock()
    for roomID, stop := range s.rooms {
        close(stop)
        delete(s.rooms, roomID)
    }
}

func (s *Sweeper) run(roomID uint64, stop chan struct{}) {
    t := time.NewTicker(s.interval)
    defer t.Stop()
    for {
        select {
        case <-stop:
            return
        case <-t.C:
            n, err := s.SweepRoom(context.Background(), roomID)
            if err != nil {
                log.Printf("sweeper: room %d scan failed: %v", roomID, err)
                continue
            }
            if n > 0 {
                log.Printf("sweeper: room %d expired %d entries", roomID, n)
            }
        }
    }
}

// SweepRoom performs one scan of a room, expiring every calledin and
// notified entry whose deadline has passed.  It returns how many entries
// it expired.  Entries that raced into another state between the scan and
// the write are skipped, not errors.
func (s *Sweeper) SweepRoom(ctx context.Context, roomID uint64) (int, error) {
    entries, err := s.store.AwaitingResponseByRoom(ctx, roomID)
    if err != nil {
        return 0, fmt.Errorf("list sweep candidates: %w", err)
    }
    now := s.now()
    expired := 0
    for i := range entries {
        deadline, ok := s.deadline(&entries[i])
        if !ok || now.Before(deadline) {
            continue
        }
        done, err := s.lifecycle.Expire(ctx, entries[i].ID)
        if err != nil {
            log.Printf("sweeper: expire entry %d: %v", entries[i].ID, err)
            continue
        }
        if done {
            expired++
        }
    }
    return expired, nil
}

// deadline computes when an entry expires from its status-specific
// anchor.  The second return is false for entries the sweeper does not
// own, or for a notified entry missing its notifiedAt stamp, which is
// skipped rather than expired on bad data.
func (s *Sweeper) deadline(e *model.WaitlistEntry) (time.Time, bool) {
    switch e.Status {
    case model.StatusCalledIn:
        return e.CreatedAt.Add(s.checkInWindow), true
    case model.StatusNotified:
        if e.NotifiedAt == nil {
            return time.Time{}, false
        }
        return e.NotifiedAt.Add(s.notifyWindow), true
    }
    return time.Time{}, false
}
