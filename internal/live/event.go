package live

import "time"

// UpdateType names what changed on a room's waitlist.
type UpdateType string

const (
	UpdateEntryJoined     UpdateType = "entry_joined"
	UpdateEntryMoved      UpdateType = "entry_moved"
	UpdateQueueRebalanced UpdateType = "queue_rebalanced"
	UpdateStatusChanged   UpdateType = "status_changed"
	UpdatePlayerSeated    UpdateType = "player_seated"
	UpdatePlayerRemoved   UpdateType = "player_removed"
)

// Update is published to the room's Redis channel whenever queue state
// changes, and relayed verbatim to websocket subscribers.  Clients use it
// as an invalidation hint and re-fetch the views they show; it carries
// identifiers, not full entry payloads.
type Update struct {
	EventID   string     `json:"event_id"`
	Type      UpdateType `json:"type"`
	RoomID    uint64     `json:"room_id"`
	GameID    uint64     `json:"game_id,omitempty"`
	EntryID   uint64     `json:"entry_id,omitempty"`
	PlayerID  uint64     `json:"player_id,omitempty"`
	TableID   uint64     `json:"table_id,omitempty"`
	Status    string     `json:"status,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}
