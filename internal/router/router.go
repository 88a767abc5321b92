// Package router fans inbound chat events out to their recipient sets:
// one course's registered connections, or a single private counterpart.
// Every send follows persist-then-distribute; a message that could not be
// persisted is never delivered to anyone.
package router

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"campushub/internal/notify"
	"campushub/internal/websocket"
	"campushub/pkg/interfaces"
	"campushub/pkg/types"
)

// Router resolves recipients, persists through the store collaborator, and
// pushes delivery events plus notifications.
type Router struct {
	registry    *websocket.Registry
	store       interfaces.MessageStore
	directory   interfaces.UserDirectory
	notifier    *notify.Dispatcher
	rateLimiter *RateLimiter
}

// NewRouter creates a router over the given collaborators.
func NewRouter(registry *websocket.Registry, store interfaces.MessageStore, directory interfaces.UserDirectory, notifier *notify.Dispatcher) *Router {
	return &Router{
		registry:    registry,
		store:       store,
		directory:   directory,
		notifier:    notifier,
		rateLimiter: NewRateLimiter(),
	}
}

// SendCourseMessage persists a course-wide message, acknowledges the sender
// with message_sent, and delivers receive_message plus a chat-message
// notification to every other live connection in the course. Recipients
// registered after the send see the message through the history fetch path.
func (r *Router) SendCourseMessage(ctx context.Context, senderID, courseID, content string) (*types.ChatMessage, error) {
	msg := &types.ChatMessage{
		ID:        uuid.New().String(),
		SenderID:  senderID,
		CourseID:  courseID,
		Content:   content,
		Timestamp: time.Now(),
	}

	if err := r.prepare(ctx, msg); err != nil {
		return nil, err
	}

	r.ackSender(senderID, types.EventMessageSent, msg)

	deliveredTo := 0
	for _, conn := range r.registry.LookupByScope(courseID) {
		recipientID := conn.UserID()
		if recipientID == senderID {
			continue
		}

		if err := conn.WriteJSON(&types.ChatDelivery{Type: types.EventReceiveMessage, Message: msg}); err != nil {
			log.Printf("Course message delivery to %s failed: %v", recipientID, err)
			continue
		}
		deliveredTo++

		r.notifier.Dispatch(recipientID, &types.Notification{
			Kind:      types.NotificationChatMessage,
			Title:     msg.SenderName,
			Body:      snippet(content),
			RelatedID: msg.ID,
		})
	}

	log.Printf("Course message routed: id=%s course=%s sender=%s recipients=%d", msg.ID, courseID, senderID, deliveredTo)
	return msg, nil
}

// SendPrivateMessage persists a one-to-one message and acknowledges the
// sender with private_message_sent. When the receiver is live it also gets
// receive_private_message plus a chat-message notification; when offline the
// message is persisted only; an offline receiver is not a failure.
func (r *Router) SendPrivateMessage(ctx context.Context, senderID, receiverID, content string) (*types.ChatMessage, error) {
	msg := &types.ChatMessage{
		ID:         uuid.New().String(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		Timestamp:  time.Now(),
	}

	if err := r.prepare(ctx, msg); err != nil {
		return nil, err
	}

	r.ackSender(senderID, types.EventPrivateMessageSent, msg)

	receiverConn, online := r.registry.Lookup(receiverID)
	if !online {
		log.Printf("Private message persisted for offline receiver: id=%s sender=%s receiver=%s", msg.ID, senderID, receiverID)
		return msg, nil
	}

	if err := receiverConn.WriteJSON(&types.ChatDelivery{Type: types.EventReceivePrivateMessage, Message: msg}); err != nil {
		log.Printf("Private message delivery to %s failed: %v", receiverID, err)
		return msg, nil
	}

	r.notifier.Dispatch(receiverID, &types.Notification{
		Kind:      types.NotificationChatMessage,
		Title:     msg.SenderName,
		Body:      snippet(content),
		RelatedID: msg.ID,
	})

	log.Printf("Private message routed: id=%s sender=%s receiver=%s", msg.ID, senderID, receiverID)
	return msg, nil
}

// BroadcastNotification serves the new_notification pass-through: an
// externally-caused event announced to every registered participant except
// the originator.
func (r *Router) BroadcastNotification(originID string, n *types.Notification) {
	delivered := r.notifier.Broadcast(originID, n)
	log.Printf("Notification broadcast: kind=%s origin=%s delivered=%d", n.Kind, originID, delivered)
}

// prepare validates, rate-limits, resolves the sender's display name, and
// persists. Any error here aborts the send before fan-out so no recipient
// ever sees an unpersisted message.
func (r *Router) prepare(ctx context.Context, msg *types.ChatMessage) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	if !r.rateLimiter.Allow(msg.SenderID) {
		return ErrRateLimitExceeded
	}

	msg.SenderName = r.resolveName(ctx, msg.SenderID)

	if err := r.store.SaveMessage(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	return nil
}

// resolveName attaches the directory display name, falling back to the raw id
// when the directory has never seen the participant.
func (r *Router) resolveName(ctx context.Context, userID string) string {
	user, err := r.directory.GetUser(ctx, userID)
	if err != nil {
		if err != interfaces.ErrUserNotFound {
			log.Printf("Directory lookup for %s failed: %v", userID, err)
		}
		return userID
	}
	return user.Name
}

// ackSender confirms the send to the originating connection only. An offline
// sender (dropped between submit and ack) is a silent no-op.
func (r *Router) ackSender(senderID, eventType string, msg *types.ChatMessage) {
	conn, ok := r.registry.Lookup(senderID)
	if !ok {
		return
	}
	if err := conn.WriteJSON(&types.ChatDelivery{Type: eventType, Message: msg}); err != nil {
		log.Printf("Send acknowledgment to %s failed: %v", senderID, err)
	}
}

// snippet trims notification bodies so a long message does not balloon the
// lightweight signal.
func snippet(content string) string {
	const max = 120
	if len(content) <= max {
		return content
	}
	return content[:max] + "…"
}
