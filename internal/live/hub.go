package live

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Hub tracks the websocket clients of each room and broadcasts room
// updates to them.  Clients that cannot keep up (full send buffer) are
// dropped rather than allowed to stall the broadcast.
type Hub struct {
	clients    map[uint64]map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan roomMessage

	mu sync.RWMutex
}

type roomMessage struct {
	roomID  uint64
	payload []byte
}

// NewHub constructs a Hub.  Call Run in a goroutine before serving
// connections.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint64]map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan roomMessage),
	}
}

// Run processes registration and broadcast traffic until the process
// exits.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if h.clients[c.roomID] == nil {
				h.clients[c.roomID] = make(map[*client]bool)
			}
			h.clients[c.roomID][c] = true
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if room, ok := h.clients[c.roomID]; ok {
				if _, ok := room[c]; ok {
					delete(room, c)
					close(c.send)
					if len(room) == 0 {
						delete(h.clients, c.roomID)
					}
				}
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			// Full lock: the slow-client branch mutates the room map.
			h.mu.Lock()
			for c := range h.clients[msg.roomID] {
				select {
				case c.send <- msg.payload:
				default:
					// Slow client; the failed send buffer means
					// its write pump is gone or wedged.
					close(c.send)
					delete(h.clients[msg.roomID], c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues a payload for every client watching the room.
func (h *Hub) Broadcast(roomID uint64, payload []byte) {
	h.broadcast <- roomMessage{roomID: roomID, payload: payload}
}

// RoomClients reports how many clients are watching a room.
func (h *Hub) RoomClients(roomID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[roomID])
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	// Staff dashboards are served from their own origins; auth happens
	// at upgrade time through the usual JWT middleware.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	roomID uint64
}

// Serve upgrades the request to a websocket and streams the room's
// updates over it until the peer goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, roomID uint64) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 256),
		roomID: roomID,
	}
	h.register <- c
	go c.writePump()
	c.readPump()
	return nil
}

// readPump drains the connection.  Incoming frames are ignored, the
// stream is one-way; reading is only how we notice the peer is gone.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("live: ping room %d client: %v", c.roomID, err)
				return
			}
		}
	}
}
