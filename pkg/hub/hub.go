package hub

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-hyperlib/internal/log"
)

// Hub keeps the set of viewers of one stream and broadcasts to them.
type Hub struct {
	name   string
	policy Policy

	clients    map[*Client]struct{}
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{} // closed when Run returns

	mu sync.RWMutex // guards clients for ClientCount

	running  atomic.Bool
	dropped  atomic.Uint64 // broadcasts lost to a full hub queue
	replaced atomic.Uint64 // pending messages overwritten under LatestOnly
	evicted  atomic.Uint64 // viewers disconnected under DropSlow
}

// New returns a hub. Call Run to start it.
func New(name string, policy Policy) *Hub {
	return &Hub{
		name:       name,
		policy:     policy,
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan Message, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run delivers broadcasts until ctx is cancelled, then closes every viewer.
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer func() {
		h.mu.Lock()
		for c := range h.clients {
			close(c.send)
			delete(h.clients, c)
		}
		h.mu.Unlock()
		h.running.Store(false)
		close(h.done)
	}()

	log.Debug("hub started", "hub", h.name, "policy", h.policy)

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			log.Debug("viewer connected", "hub", h.name, "viewers", n)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			log.Debug("viewer disconnected", "hub", h.name, "viewers", n)

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// deliver runs on the Run goroutine, the only sender on client queues.
func (h *Hub) deliver(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
			continue
		default:
		}

		switch h.policy {
		case LatestOnly:
			select {
			case <-c.send:
				h.replaced.Add(1)
			default:
			}
			select {
			case c.send <- msg:
			default:
			}
		default:
			close(c.send)
			delete(h.clients, c)
			h.evicted.Add(1)
			log.Warn("dropped slow viewer", "hub", h.name)
		}
	}
}

// Broadcast queues msg for every viewer. It never blocks; when the hub's own
// queue is full the message is dropped.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		if h.dropped.Add(1)%100 == 1 {
			log.Warn("hub queue full, dropping messages", "hub", h.name, "dropped", h.dropped.Load())
		}
	}
}

// ClientCount returns the number of connected viewers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats reports delivery losses.
type Stats struct {
	Dropped  uint64 `json:"dropped"`
	Replaced uint64 `json:"replaced"`
	Evicted  uint64 `json:"evicted"`
}

// Stats returns the loss counters.
func (h *Hub) Stats() Stats {
	return Stats{
		Dropped:  h.dropped.Load(),
		Replaced: h.replaced.Load(),
		Evicted:  h.evicted.Load(),
	}
}

// IsRunning reports whether Run is active.
func (h *Hub) IsRunning() bool {
	return h.running.Load()
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}
