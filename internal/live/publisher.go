// Package live streams waitlist changes to room views.  Handlers publish
// compact update events to a per-room Redis Pub/Sub channel; a relay
// subscribes to all room channels and fans the payloads out to the
// websocket clients of this instance.  Going through Redis rather than
// straight to the hub keeps every API instance's clients current no
// matter which instance served the write.
package live

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const channelPrefix = "waitlist.room."

func channelFor(roomID uint64) string {
	return channelPrefix + strconv.FormatUint(roomID, 10)
}

// Publisher publishes room updates.  Publishing is best effort: failures
// are logged and never surfaced, a missed live update must not fail the
// operation that caused it.  A nil Publisher is valid and publishes
// nothing, for deployments without Redis.
type Publisher struct {
	rdb *redis.Client
}

// NewPublisher returns a Publisher over the given Redis client.
func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

// Publish sends one update to its room's channel, stamping the event id
// and timestamp when the caller left them empty.
func (p *Publisher) Publish(ctx context.Context, u Update) {
	if p == nil || p.rdb == nil {
		return
	}
	if u.EventID == "" {
		u.EventID = uuid.NewString()
	}
	if u.Timestamp.IsZero() {
		u.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(u)
	if err != nil {
		log.Printf("live: marshal update: %v", err)
		return
	}
	if err := p.rdb.Publish(ctx, channelFor(u.RoomID), payload).Err(); err != nil {
		log.Printf("live: publish room %d: %v", u.RoomID, err)
	}
}

// Relay consumes every room channel and forwards payloads to the hub.
type Relay struct {
	rdb *redis.Client
	hub *Hub
}

// NewRelay returns a Relay feeding hub from rdb.
func NewRelay(rdb *redis.Client, hub *Hub) *Relay {
	return &Relay{rdb: rdb, hub: hub}
}

// Run blocks, relaying published updates until ctx is cancelled.  Run it
// in its own goroutine next to the hub's.
func (r *Relay) Run(ctx context.Context) {
	sub := r.rdb.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()
	log.Printf("live: relay subscribed to %s*", channelPrefix)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			roomID, err := roomFromChannel(msg.Channel)
			if err != nil {
				log.Printf("live: drop message on %q: %v", msg.Channel, err)
				continue
			}
			r.hub.Broadcast(roomID, []byte(msg.Payload))
		}
	}
}

func roomFromChannel(channel string) (uint64, error) {
	raw := strings.TrimPrefix(channel, channelPrefix)
	if raw == channel {
		return 0, fmt.Errorf("unexpected channel name")
	}
	return strconv.ParseUint(raw, 10, 64)
}
