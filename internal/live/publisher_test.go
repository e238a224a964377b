package live

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChannelForRoom(t *testing.T) {
	require.Equal(t, "waitlist.room.42", channelFor(42))
}

func TestRoomFromChannel(t *testing.T) {
	cases := []struct {
		name    string
		channel string
		roomID  uint64
		ok      bool
	}{
		{"round trip", "waitlist.room.42", 42, true},
		{"large id", "waitlist.room.18446744073709551615", 18446744073709551615, true},
		{"wrong prefix", "seating.room.42", 0, false},
		{"no id", "waitlist.room.", 0, false},
		{"garbage id", "waitlist.room.abc", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			roomID, err := roomFromChannel(tc.channel)
			if !tc.ok {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.roomID, roomID)
		})
	}
}

func TestNilPublisherIsSafe(t *testing.T) {
	var p *Publisher
	// Both a nil Publisher and one without a Redis client must be silent
	// no-ops so handlers can publish unconditionally.
	p.Publish(context.Background(), Update{Type: UpdateEntryJoined, RoomID: 1})
	NewPublisher(nil).Publish(context.Background(), Update{Type: UpdateEntryJoined, RoomID: 1})
}
