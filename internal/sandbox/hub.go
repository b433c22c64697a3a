// Package sandbox is a self-contained marketplace backend for local
// development and integration tests. It implements the same chat and
// notification contract the production API exposes, backed by in-memory
// stores, so the client packages can be exercised without credentials.
package sandbox

import (
	"context"
)

// client is one websocket subscriber. Its room changes when it sends a join
// frame; all map mutations happen on the hub goroutine.
type client struct {
	userID string
	room   string
	send   chan []byte
}

type roomMessage struct {
	room string
	data []byte
}

type joinRequest struct {
	c    *client
	room string
}

// Hub fans chat events out to the sockets joined to a room.
type Hub struct {
	rooms map[string]map[*client]bool

	register   chan *client
	unregister chan *client
	join       chan joinRequest
	broadcast  chan roomMessage
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		join:       make(chan joinRequest),
		broadcast:  make(chan roomMessage, 64),
		done:       make(chan struct{}),
	}
}

// Run owns the room map until ctx is cancelled. Handler goroutines still in
// flight after that unblock through the done channel.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for _, clients := range h.rooms {
				for c := range clients {
					close(c.send)
				}
			}
			h.rooms = make(map[string]map[*client]bool)
			return
		case c := <-h.register:
			h.place(c)
		case c := <-h.unregister:
			if h.remove(c) {
				close(c.send)
			}
		case req := <-h.join:
			h.remove(req.c)
			req.c.room = req.room
			h.place(req.c)
		case msg := <-h.broadcast:
			for c := range h.rooms[msg.room] {
				select {
				case c.send <- msg.data:
				default:
					h.remove(c)
					close(c.send)
				}
			}
		}
	}
}

// Broadcast queues data for every socket joined to room.
func (h *Hub) Broadcast(room string, data []byte) {
	select {
	case h.broadcast <- roomMessage{room: room, data: data}:
	case <-h.done:
	}
}

func (h *Hub) add(c *client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

func (h *Hub) drop(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) switchRoom(c *client, room string) {
	select {
	case h.join <- joinRequest{c: c, room: room}:
	case <-h.done:
	}
}

// place indexes the client under its current room. Sockets that have not
// joined yet sit under the empty key so unregister still finds them.
func (h *Hub) place(c *client) {
	if h.rooms[c.room] == nil {
		h.rooms[c.room] = make(map[*client]bool)
	}
	h.rooms[c.room][c] = true
}

func (h *Hub) remove(c *client) bool {
	clients, ok := h.rooms[c.room]
	if !ok {
		return false
	}
	if _, ok := clients[c]; !ok {
		return false
	}
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.rooms, c.room)
	}
	return true
}
