package hub

import "sync"

const sendBuffer = 16

// Key identifies one broadcast audience: a bar's staff dashboards or a
// single customer's order views.
type Key struct {
	Kind string
	ID   string
}

func BarKey(barID string) Key { return Key{Kind: "bar", ID: barID} }

func UserKey(userID string) Key { return Key{Kind: "user", ID: userID} }

// Client is one live channel. Messages are delivered through a buffered
// send channel the connection's writer drains; the channel is closed by
// the hub when the client is unregistered.
type Client struct {
	key  Key
	send chan []byte
}

func NewClient(key Key) *Client {
	return &Client{key: key, send: make(chan []byte, sendBuffer)}
}

func (c *Client) Key() Key { return c.key }

func (c *Client) Send() <-chan []byte { return c.send }

// Hub is the in-process connection registry. It is rebuilt empty on every
// process start; clients reconnect on their own.
type Hub struct {
	mu      sync.RWMutex
	clients map[Key]map[*Client]struct{}
}

func New() *Hub {
	return &Hub{clients: make(map[Key]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.key]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.key] = set
	}
	set[c] = struct{}{}
}

// Unregister removes the client and closes its send channel. Calling it
// for a client that is not registered is a no-op, so transport teardown
// and broadcast-side eviction may race freely.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.key]
	if !ok {
		return
	}
	if _, member := set[c]; !member {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.key)
	}
	close(c.send)
}

// Publish hands msg to every client under key. A client whose buffer is
// full is dropped rather than allowed to stall the rest; it gets
// unregistered once the read lock is released.
func (h *Hub) Publish(key Key, msg []byte) {
	h.mu.RLock()
	var dead []*Client
	for c := range h.clients[key] {
		select {
		case c.send <- msg:
		default:
			dead = append(dead, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range dead {
		h.Unregister(c)
	}
}

// Count reports how many clients are registered under key.
func (h *Hub) Count(key Key) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[key])
}

// Shutdown unregisters every client, closing all send channels so writer
// goroutines drain and exit.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for key, set := range h.clients {
		for c := range set {
			close(c.send)
		}
		delete(h.clients, key)
	}
}
