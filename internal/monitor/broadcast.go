package monitor

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/scpilot/scpilot/internal/engine"
)

// StatusSource answers status queries. A nil reply with a nil error
// means the engine did not respond in time.
type StatusSource interface {
	Status() (*engine.StatusReply, error)
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	c := &client{
		conn: conn,
		send: make(chan []byte, 64),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *client) close() {
	close(c.send)
}

// Broadcaster polls the engine on a fixed interval and fans the
// snapshots out to every connected websocket client.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[*client]bool
	source  StatusSource

	pollTicker *time.Ticker
	done       chan struct{}

	lastMu   sync.RWMutex
	lastSnap StatusPayload
}

func NewBroadcaster(source StatusSource, interval time.Duration) *Broadcaster {
	b := &Broadcaster{
		clients: make(map[*client]bool),
		source:  source,
		done:    make(chan struct{}),
	}

	b.pollTicker = time.NewTicker(interval)
	go b.pollLoop()

	return b
}

// Stop ends the poll loop. Connected clients are left to the server's
// read loops.
func (b *Broadcaster) Stop() {
	b.pollTicker.Stop()
	close(b.done)
}

func (b *Broadcaster) AddClient(conn *websocket.Conn) *client {
	c := newClient(conn)

	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()

	// New clients get the latest snapshot right away.
	snap := b.LastSnapshot()
	if !snap.Time.IsZero() {
		data, _ := json.Marshal(WSMessage{Type: MsgStatus, Payload: snap})
		select {
		case c.send <- data:
		default:
		}
	}

	return c
}

func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		c.close()
	}
	b.mu.Unlock()
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// LastSnapshot is the most recent poll result.
func (b *Broadcaster) LastSnapshot() StatusPayload {
	b.lastMu.RLock()
	defer b.lastMu.RUnlock()
	return b.lastSnap
}

func (b *Broadcaster) pollLoop() {
	for {
		select {
		case <-b.done:
			return
		case <-b.pollTicker.C:
			b.poll()
		}
	}
}

func (b *Broadcaster) poll() {
	snap := StatusPayload{Time: time.Now()}

	status, err := b.source.Status()
	if err != nil {
		log.Printf("monitor: status query failed: %v", err)
		b.broadcast(WSMessage{Type: MsgError, Payload: ErrorPayload{Error: err.Error()}})
		return
	}
	if status != nil {
		snap.Responding = true
		snap.Status = status
	}

	b.lastMu.Lock()
	b.lastSnap = snap
	b.lastMu.Unlock()

	b.broadcast(WSMessage{Type: MsgStatus, Payload: snap})
}

func (b *Broadcaster) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("monitor: broadcast marshal error: %v", err)
		return
	}

	b.mu.RLock()
	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- data:
		default:
			// Client can't keep up, disconnect it
			log.Printf("monitor: ws client too slow, disconnecting")
			b.RemoveClient(c)
		}
	}
}
