// Package notify pushes best-effort notifications to live connections.
// There is no queue and no retry: notifications are a convenience signal
// layered on data that is also retrievable through the history fetch path,
// so the hub must never be the sole record of "did this user see this".
package notify

import (
	"log"
	"time"

	"github.com/google/uuid"

	"campushub/internal/websocket"
	"campushub/pkg/types"
)

// Dispatcher delivers notifications to whichever connections are live at the
// moment of dispatch.
type Dispatcher struct {
	registry *websocket.Registry
}

// NewDispatcher creates a dispatcher reading from registry.
func NewDispatcher(registry *websocket.Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Dispatch pushes a notification to targetID's live connection. Returns true
// when the payload was handed to the connection, false when the target is
// offline or the write failed; in both cases the notification is discarded.
func (d *Dispatcher) Dispatch(targetID string, n *types.Notification) bool {
	conn, ok := d.registry.Lookup(targetID)
	if !ok {
		return false
	}

	d.stamp(n)
	if err := conn.WriteJSON(&types.NotificationDelivery{
		Type:         types.EventNewNotification,
		Notification: n,
	}); err != nil {
		log.Printf("Notification delivery to %s failed: %v", targetID, err)
		return false
	}
	return true
}

// Broadcast pushes a notification to every registered participant except the
// originator and reports how many connections it reached.
func (d *Dispatcher) Broadcast(originID string, n *types.Notification) int {
	d.stamp(n)
	payload := &types.NotificationDelivery{
		Type:         types.EventNewNotification,
		Notification: n,
	}

	delivered := 0
	for _, conn := range d.registry.ListAll(originID) {
		if err := conn.WriteJSON(payload); err != nil {
			log.Printf("Notification broadcast to %s failed: %v", conn.UserID(), err)
			continue
		}
		delivered++
	}
	return delivered
}

// stamp fills server-controlled fields the creator may have left empty.
func (d *Dispatcher) stamp(n *types.Notification) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}
}
