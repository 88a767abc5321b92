package websocket

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"campushub/pkg/types"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The hub trusts registration issued after out-of-band auth;
		// origin policy belongs to the fronting deployment.
		return true
	},
	HandshakeTimeout: 10 * time.Second,
}

// EventSink consumes decoded events from live connections. The hub implements
// it; the handler stays free of routing logic.
type EventSink interface {
	// HandleEvent processes one inbound event. Called from the
	// connection's read goroutine, so events from a single connection are
	// handled strictly in submission order.
	HandleEvent(ctx context.Context, conn *Connection, ev types.Event)

	// HandleDisconnect runs the implicit deregistration and call-teardown
	// for a dropped connection.
	HandleDisconnect(conn *Connection)
}

// Handler upgrades HTTP requests and pumps decoded events into the sink.
type Handler struct {
	sink EventSink
}

// NewHandler creates a WebSocket handler feeding sink.
func NewHandler(sink EventSink) *Handler {
	return &Handler{sink: sink}
}

// HandleWebSocket upgrades the request and starts the connection lifecycle.
// Identity arrives later over the socket as a register event, so the upgrade
// itself takes no parameters.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	wsConn := NewConnection(conn)
	go h.handleConnection(wsConn)
}

// handleConnection is the per-connection read pump: heartbeat bookkeeping,
// one DecodeEvent per frame, synchronous dispatch into the sink. Malformed
// frames are logged and dropped without closing the connection.
func (h *Handler) handleConnection(conn *Connection) {
	defer func() {
		h.sink.HandleDisconnect(conn)
		_ = conn.Close()
	}()

	if err := conn.conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		log.Printf("Failed to set read deadline: %v", err)
		return
	}
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			case <-conn.Done():
				return
			}
		}
	}()

	ctx := context.Background()
	for {
		messageType, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error for user %q: %v", conn.UserID(), err)
			}
			return
		}

		if messageType != websocket.TextMessage {
			continue
		}

		ev, err := types.DecodeEvent(data)
		if err != nil {
			log.Printf("Dropping malformed event from user %q: %v", conn.UserID(), err)
			continue
		}

		h.sink.HandleEvent(ctx, conn, ev)
	}
}
