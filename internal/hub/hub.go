// Package hub dispatches decoded client events to the routing, notification,
// and call-signaling components. Events are handled synchronously on each
// connection's read goroutine, which is what guarantees per-sender delivery
// order; cross-sender ordering is explicitly not provided.
package hub

import (
	"context"
	"errors"
	"log"

	"campushub/internal/call"
	"campushub/internal/router"
	"campushub/internal/websocket"
	"campushub/pkg/types"
)

// Hub implements websocket.EventSink over the hub's components.
type Hub struct {
	registry *websocket.Registry
	router   *router.Router
	signaler *call.Signaler
}

// NewHub wires the dispatcher to its components.
func NewHub(registry *websocket.Registry, r *router.Router, signaler *call.Signaler) *Hub {
	return &Hub{
		registry: registry,
		router:   r,
		signaler: signaler,
	}
}

// HandleEvent processes one inbound event from conn. Every event except
// register requires the connection to have registered first; early frames are
// dropped with a warning, the connection stays up.
func (h *Hub) HandleEvent(ctx context.Context, conn *websocket.Connection, ev types.Event) {
	if reg, ok := ev.(types.RegisterEvent); ok {
		h.handleRegister(conn, reg)
		return
	}

	if !conn.IsRegistered() {
		log.Printf("Dropping %s event from unregistered connection", ev.EventType())
		return
	}

	senderID := conn.UserID()

	switch ev := ev.(type) {
	case types.CourseMessageEvent:
		if _, err := h.router.SendCourseMessage(ctx, senderID, ev.CourseID, ev.Content); err != nil {
			h.reportError(conn, err)
		}

	case types.PrivateMessageEvent:
		if _, err := h.router.SendPrivateMessage(ctx, senderID, ev.ReceiverID, ev.Content); err != nil {
			h.reportError(conn, err)
		}

	case types.CallInviteEvent:
		h.signaler.Invite(senderID, ev)

	case types.CallAcceptEvent:
		h.signaler.Accept(senderID, ev.CallerID)

	case types.CallDeclineEvent:
		h.signaler.Decline(senderID, ev.CallerID)

	case types.CallEndEvent:
		h.signaler.End(senderID, ev.OtherID)

	case types.SignalingEvent:
		h.signaler.Relay(senderID, ev)

	case types.NotificationEvent:
		n := ev.Notification
		h.router.BroadcastNotification(senderID, &n)

	default:
		log.Printf("Dropping unhandled event type %s from %s", ev.EventType(), senderID)
	}
}

// HandleDisconnect performs the implicit teardown for a dropped connection:
// call sessions end first, then the registry entry goes. Teardown is skipped
// when a newer registration has superseded conn, so replacing a connection
// never ends the replacement's calls.
func (h *Hub) HandleDisconnect(conn *websocket.Connection) {
	if !conn.IsRegistered() {
		return
	}

	userID := conn.UserID()
	if current, ok := h.registry.Lookup(userID); ok && current == conn {
		h.signaler.HandleDisconnect(userID)
	}
	h.registry.Deregister(conn)
	log.Printf("Connection deregistered: user=%s", userID)
}

// handleRegister installs or replaces the registry entry for the connection.
// A re-register on a live connection updates identity and scope in place;
// the superseded connection, if any, is left to its own disconnect handling.
func (h *Hub) handleRegister(conn *websocket.Connection, ev types.RegisterEvent) {
	if !types.IsValidUserID(ev.UserID) {
		log.Printf("Dropping register event: %v", types.ErrInvalidUserID)
		return
	}
	if ev.CourseID != "" && !types.IsValidUserID(ev.CourseID) {
		log.Printf("Dropping register event for %s: invalid course id", ev.UserID)
		return
	}

	conn.SetIdentity(ev.UserID, ev.CourseID)
	h.registry.Register(ev.UserID, ev.CourseID, conn)
	log.Printf("Connection registered: user=%s course=%q", ev.UserID, ev.CourseID)
}

// reportError surfaces a failed send to the initiating connection only.
func (h *Hub) reportError(conn *websocket.Connection, err error) {
	code := "internal"
	switch {
	case errors.Is(err, router.ErrRateLimitExceeded):
		code = "rate_limited"
	case errors.Is(err, router.ErrInvalidMessage):
		code = "invalid_message"
	case errors.Is(err, router.ErrPersistenceFailed):
		code = "persistence_failed"
	}

	if writeErr := conn.WriteJSON(&types.ErrorDelivery{
		Type:    types.EventError,
		Code:    code,
		Message: err.Error(),
	}); writeErr != nil {
		log.Printf("Error report to %s failed: %v", conn.UserID(), writeErr)
	}
}
