package waitlist

import (
    "context"
    "errors"
    "sort"
    "sync"
    "time"

    "github.com/hellocng/deepstack/internal/model"
)

// fakeStore is an in-memory EntryStore with the same ordering and guard
// semantics as the MySQL repository.  Tests seed it directly and may
// inject failures or a beforeGuard hook that runs, with the lock held,
// right before a guarded write applies; the hook mutates the raw entry to
// simulate a concurrent winner.
type fakeStore struct {
    mu      sync.Mutex
    nextID  uint64
    entries map[uint64]*model.WaitlistEntry

    now func() time.Time

    insertErr   error
    readErr     error
    beforeGuard func(e *model.WaitlistEntry)
}

var errFakeNotFound = errors.New("fake: entry not found")

func newFakeStore() *fakeStore {
    return &fakeStore{
        entries: make(map[uint64]*model.WaitlistEntry),
        now:     time.Now,
    }
}

// seed places a fully specified entry in the store, assigning an id when
// the entry has none, and returns the id.
func (f *fakeStore) seed(e model.WaitlistEntry) uint64 {
    f.mu.Lock()
    defer f.mu.Unlock()
    if e.ID == 0 {
        f.nextID++
        e.ID = f.nextID
    } else if e.ID > f.nextID {
        f.nextID = e.ID
    }
    if e.CreatedAt.IsZero() {
        e.CreatedAt = f.now()
    }
    if e.UpdatedAt.IsZero() {
        e.UpdatedAt = e.CreatedAt
    }
    f.entries[e.ID] = copyEntry(&e)
    return e.ID
}

func copyEntry(e *model.WaitlistEntry) *model.WaitlistEntry {
    c := *e
    if e.NotifiedAt != nil {
        t := *e.NotifiedAt
        c.NotifiedAt = &t
    }
    if e.CheckedInAt != nil {
        t := *e.CheckedInAt
        c.CheckedInAt = &t
    }
    if e.CancelledAt != nil {
        t := *e.CancelledAt
        c.CancelledAt = &t
    }
    if e.CancelledBy != nil {
        by := *e.CancelledBy
        c.CancelledBy = &by
    }
    return &c
}

func (f *fakeStore) Entry(ctx context.Context, id uint64) (*model.WaitlistEntry, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.readErr != nil {
        return nil, f.readErr
    }
    e, ok := f.entries[id]
    if !ok {
        return nil, errFakeNotFound
    }
    return copyEntry(e), nil
}

func (f *fakeStore) Insert(ctx context.Context, e *model.WaitlistEntry) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.insertErr != nil {
        return f.insertErr
    }
    f.nextID++
    e.ID = f.nextID
    e.CreatedAt = f.now()
    e.UpdatedAt = e.CreatedAt
    f.entries[e.ID] = copyEntry(e)
    return nil
}

// waitingOf returns copies of a game's waiting entries sorted by
// (position, id) ascending.
func (f *fakeStore) waitingOf(gameID uint64) []model.WaitlistEntry {
    var out []model.WaitlistEntry
    for _, e := range f.entries {
        if e.GameID == gameID && e.Status == model.StatusWaiting {
            out = append(out, *copyEntry(e))
        }
    }
    sort.Slice(out, func(i, j int) bool {
        if out[i].Position != out[j].Position {
            return out[i].Position < out[j].Position
        }
        return out[i].ID < out[j].ID
    })
    return out
}

func (f *fakeStore) WaitingByGame(ctx context.Context, gameID uint64) ([]model.WaitlistEntry, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.readErr != nil {
        return nil, f.readErr
    }
    return f.waitingOf(gameID), nil
}

func (f *fakeStore) FirstWaiting(ctx context.Context, gameID uint64) (*model.WaitlistEntry, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.readErr != nil {
        return nil, f.readErr
    }
    all := f.waitingOf(gameID)
    if len(all) == 0 {
        return nil, errFakeNotFound
    }
    return &all[0], nil
}

func (f *fakeStore) MaxWaitingPosition(ctx context.Context, gameID, excludeID uint64) (float64, bool, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.readErr != nil {
        return 0, false, f.readErr
    }
    best, found := 0.0, false
    for _, e := range f.entries {
        if e.GameID != gameID || e.Status != model.StatusWaiting || e.ID == excludeID {
            continue
        }
        if !found || e.Position > best {
            best, found = e.Position, true
        }
    }
    return best, found, nil
}

func (f *fakeStore) MinWaitingPosition(ctx context.Context, gameID, excludeID uint64) (float64, bool, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.readErr != nil {
        return 0, false, f.readErr
    }
    best, found := 0.0, false
    for _, e := range f.entries {
        if e.GameID != gameID || e.Status != model.StatusWaiting || e.ID == excludeID {
            continue
        }
        if !found || e.Position < best {
            best, found = e.Position, true
        }
    }
    return best, found, nil
}

func (f *fakeStore) WaitingBefore(ctx context.Context, gameID uint64, pos float64, limit int) ([]model.WaitlistEntry, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.readErr != nil {
        return nil, f.readErr
    }
    all := f.waitingOf(gameID)
    var out []model.WaitlistEntry
    for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
        if all[i].Position < pos {
            out = append(out, all[i])
        }
    }
    return out, nil
}

func (f *fakeStore) WaitingAfter(ctx context.Context, gameID uint64, pos float64, limit int) ([]model.WaitlistEntry, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.readErr != nil {
        return nil, f.readErr
    }
    all := f.waitingOf(gameID)
    var out []model.WaitlistEntry
    for i := 0; i < len(all) && len(out) < limit; i++ {
        if all[i].Position > pos {
            out = append(out, all[i])
        }
    }
    return out, nil
}

func (f *fakeStore) WaitingFrom(ctx context.Context, gameID uint64, pos float64, limit int) ([]model.WaitlistEntry, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.readErr != nil {
        return nil, f.readErr
    }
    all := f.waitingOf(gameID)
    var out []model.WaitlistEntry
    for i := 0; i < len(all) && len(out) < limit; i++ {
        if all[i].Position >= pos {
            out = append(out, all[i])
        }
    }
    return out, nil
}

func (f *fakeStore) AwaitingResponseByRoom(ctx context.Context, roomID uint64) ([]model.WaitlistEntry, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.readErr != nil {
        return nil, f.readErr
    }
    var out []model.WaitlistEntry
    for _, e := range f.entries {
        if e.RoomID != roomID {
            continue
        }
        if e.Status == model.StatusCalledIn || e.Status == model.StatusNotified {
            out = append(out, *copyEntry(e))
        }
    }
    sort.Slice(out, func(i, j int) bool {
        if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
            return out[i].CreatedAt.Before(out[j].CreatedAt)
        }
        return out[i].ID < out[j].ID
    })
    return out, nil
}

func (f *fakeStore) UpdatePosition(ctx context.Context, id uint64, oldPos, newPos float64) (bool, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    e, ok := f.entries[id]
    if !ok {
        return false, nil
    }
    if f.beforeGuard != nil {
        f.beforeGuard(e)
    }
    if e.Status != model.StatusWaiting || e.Position != oldPos {
        return false, nil
    }
    e.Position = newPos
    e.UpdatedAt = f.now()
    return true, nil
}

func (f *fakeStore) SetPosition(ctx context.Context, id uint64, pos float64) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    e, ok := f.entries[id]
    if !ok || e.Status != model.StatusWaiting {
        return nil
    }
    e.Position = pos
    e.UpdatedAt = f.now()
    return nil
}

func (f *fakeStore) MarkNotified(ctx context.Context, id uint64) (bool, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    e, ok := f.entries[id]
    if !ok {
        return false, nil
    }
    if f.beforeGuard != nil {
        f.beforeGuard(e)
    }
    if e.Status != model.StatusCalledIn {
        return false, nil
    }
    now := f.now()
    e.Status = model.StatusNotified
    e.NotifiedAt = &now
    e.UpdatedAt = now
    return true, nil
}

func (f *fakeStore) MarkSeated(ctx context.Context, id uint64) (bool, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    e, ok := f.entries[id]
    if !ok {
        return false, nil
    }
    if f.beforeGuard != nil {
        f.beforeGuard(e)
    }
    switch e.Status {
    case model.StatusWaiting, model.StatusCalledIn, model.StatusNotified:
    default:
        return false, nil
    }
    now := f.now()
    e.Status = model.StatusSeated
    if e.CheckedInAt == nil {
        e.CheckedInAt = &now
    }
    e.UpdatedAt = now
    return true, nil
}

func (f *fakeStore) MarkExpired(ctx context.Context, id uint64) (bool, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    e, ok := f.entries[id]
    if !ok {
        return false, nil
    }
    if f.beforeGuard != nil {
        f.beforeGuard(e)
    }
    if e.Status != model.StatusCalledIn && e.Status != model.StatusNotified {
        return false, nil
    }
    e.Status = model.StatusExpired
    e.UpdatedAt = f.now()
    return true, nil
}

func (f *fakeStore) MarkCancelled(ctx context.Context, id uint64, by string) (bool, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    e, ok := f.entries[id]
    if !ok {
        return false, nil
    }
    if f.beforeGuard != nil {
        f.beforeGuard(e)
    }
    switch e.Status {
    case model.StatusWaiting, model.StatusCalledIn, model.StatusNotified:
    default:
        return false, nil
    }
    now := f.now()
    e.Status = model.StatusCancelled
    e.CancelledAt = &now
    e.CancelledBy = &by
    e.UpdatedAt = now
    return true, nil
}

func (f *fakeStore) ReturnToWaiting(ctx context.Context, id uint64, pos float64) (bool, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    e, ok := f.entries[id]
    if !ok {
        return false, nil
    }
    if f.beforeGuard != nil {
        f.beforeGuard(e)
    }
    if e.Status != model.StatusCalledIn && e.Status != model.StatusNotified {
        return false, nil
    }
    now := f.now()
    e.Status = model.StatusWaiting
    e.Position = pos
    if e.CheckedInAt == nil {
        e.CheckedInAt = &now
    }
    e.UpdatedAt = now
    return true, nil
}

func (f *fakeStore) Rejoin(ctx context.Context, id uint64, pos float64) (bool, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    e, ok := f.entries[id]
    if !ok {
        return false, nil
    }
    if f.beforeGuard != nil {
        f.beforeGuard(e)
    }
    if e.Status != model.StatusCancelled && e.Status != model.StatusExpired {
        return false, nil
    }
    e.Status = model.StatusWaiting
    e.Position = pos
    e.CancelledAt = nil
    e.CancelledBy = nil
    e.UpdatedAt = f.now()
    return true, nil
}
