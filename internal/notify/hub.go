package notify

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Frame is the envelope for every server-pushed websocket message
type Frame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub owns the live websocket connections, keyed by socket id
type Hub struct {
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[string]*socketConn
}

type socketConn struct {
	writeMu sync.Mutex
	conn    *websocket.Conn
}

// NewHub creates an empty connection hub
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(map[string]*socketConn),
	}
}

// Upgrade turns an HTTP request into a registered websocket connection and
// returns the socket id the connection is reachable under. The connection
// stays registered until Release is called.
func (h *Hub) Upgrade(w http.ResponseWriter, r *http.Request) (string, *websocket.Conn, error) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return "", nil, fmt.Errorf("websocket upgrade failed: %w", err)
	}

	socketID := uuid.New().String()
	h.mu.Lock()
	h.conns[socketID] = &socketConn{conn: conn}
	h.mu.Unlock()

	log.Debug().Str("socket_id", socketID).Msg("websocket connection registered")
	return socketID, conn, nil
}

// Release removes a connection from the hub and closes it
func (h *Hub) Release(socketID string) {
	h.mu.Lock()
	sc, ok := h.conns[socketID]
	delete(h.conns, socketID)
	h.mu.Unlock()

	if ok {
		sc.conn.Close()
		log.Debug().Str("socket_id", socketID).Msg("websocket connection released")
	}
}

// Emit pushes an event frame to a single socket. Emitting to an unknown
// socket id is a no-op; the peer may have disconnected already.
func (h *Hub) Emit(socketID, event string, payload interface{}) error {
	h.mu.RLock()
	sc, ok := h.conns[socketID]
	h.mu.RUnlock()

	if !ok {
		log.Debug().Str("socket_id", socketID).Str("event", event).Msg("emit to unknown socket dropped")
		return nil
	}

	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()

	if err := sc.conn.WriteJSON(Frame{Event: event, Data: payload}); err != nil {
		return fmt.Errorf("failed to write to socket %s: %w", socketID, err)
	}
	return nil
}

// Len returns the number of live connections
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
