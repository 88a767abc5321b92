package types

import (
	"time"
)

// User is a participant as known to the user directory collaborator.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// ChatMessage is a single chat message in transit through the hub.
// Exactly one of CourseID (course-wide) or ReceiverID (private) is set.
// Messages are immutable after creation; the hub transits each one once
// and durability belongs to the message store collaborator.
type ChatMessage struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	CourseID   string    `json:"course_id,omitempty"`
	ReceiverID string    `json:"receiver_id,omitempty"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

// NotificationKind enumerates the events a notification can announce.
type NotificationKind string

const (
	NotificationChatMessage   NotificationKind = "chat_message"
	NotificationCallInvite    NotificationKind = "call_invite"
	NotificationAssignmentDue NotificationKind = "assignment_due"
	NotificationAnnouncement  NotificationKind = "announcement"
)

// IsValid reports whether k is a known notification kind.
func (k NotificationKind) IsValid() bool {
	switch k {
	case NotificationChatMessage, NotificationCallInvite, NotificationAssignmentDue, NotificationAnnouncement:
		return true
	}
	return false
}

// Notification is a lightweight "something happened" signal pushed to live
// connections. Delivery is best-effort and at most once: if the target has no
// live connection the notification is dropped, never queued. The Read flag is
// client-local UI state and is not synchronized back through the hub.
type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	Timestamp time.Time        `json:"timestamp"`
	Read      bool             `json:"read"`
	RelatedID string           `json:"related_id,omitempty"`
}

// CallKind distinguishes voice-only from video calls. Screen shares ride on a
// video call's peer connection; the hub never inspects media, so no separate
// kind exists.
type CallKind string

const (
	CallVoice CallKind = "voice"
	CallVideo CallKind = "video"
)

// IsValid reports whether k is a known call kind.
func (k CallKind) IsValid() bool {
	return k == CallVoice || k == CallVideo
}
