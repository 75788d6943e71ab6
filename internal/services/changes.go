package services

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ytmanager-backend-go/internal/logging"
)

// ChangeEvent tells connected dashboards that an entity changed and should
// be re-read.
type ChangeEvent struct {
	Kind string    `json:"kind"`
	ID   string    `json:"id"`
	At   time.Time `json:"at"`
}

// ChangeHub fans change events out to websocket subscribers. It implements
// Notifier; events are dropped when the queue is full.
type ChangeHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	ch      chan ChangeEvent
}

func NewChangeHub() *ChangeHub {
	return &ChangeHub{
		clients: map[*websocket.Conn]bool{},
		ch:      make(chan ChangeEvent, 64),
	}
}

func (h *ChangeHub) Run(ctx context.Context) {
	for {
		select {
		case event := <-h.ch:
			h.send(event)
		case <-ctx.Done():
			return
		}
	}
}

func (h *ChangeHub) send(event ChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(event); err != nil {
			logging.Logger.Debug().Err(err).Msg("dropping change subscriber")
			delete(h.clients, conn)
			_ = conn.Close()
		}
	}
}

func (h *ChangeHub) Broadcast(event ChangeEvent) {
	select {
	case h.ch <- event:
	default:
	}
}

func (h *ChangeHub) Notify(kind, id string) {
	h.Broadcast(ChangeEvent{Kind: kind, ID: id, At: time.Now().UTC()})
}

func (h *ChangeHub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
}

func (h *ChangeHub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

// Pending is the number of queued events not yet delivered.
func (h *ChangeHub) Pending() int {
	return len(h.ch)
}
