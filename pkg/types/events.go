package types

import (
	"encoding/json"
)

// Inbound event types, one per client-initiated operation. Every frame on the
// wire carries a flat "type" tag; DecodeEvent turns the tag into a concrete
// event value exactly once at the connection boundary.
const (
	EventRegister           = "register"
	EventSendCourseMessage  = "send_course_message"
	EventSendPrivateMessage = "send_private_message"
	EventCallInvite         = "call_invite"
	EventCallAccept         = "call_accept"
	EventCallDecline        = "call_decline"
	EventCallEnd            = "call_end"
	EventSignalingPayload   = "signaling_payload"
	EventNewNotification    = "new_notification"
)

// Outbound event types. The chat and notification names mirror the inbound
// send variants; the call lifecycle names are uppercase on the wire.
const (
	EventMessageSent           = "message_sent"
	EventReceiveMessage        = "receive_message"
	EventPrivateMessageSent    = "private_message_sent"
	EventReceivePrivateMessage = "receive_private_message"
	EventCallInviteOut         = "CALL_INVITE"
	EventCallAccepted          = "CALL_ACCEPTED"
	EventCallDeclined          = "CALL_DECLINED"
	EventCallEnded             = "CALL_ENDED"
	EventCallFailed            = "CALL_FAILED"
	EventError                 = "error"
)

// Event is an inbound client event after boundary decoding.
type Event interface {
	EventType() string
}

// RegisterEvent installs the connection into the registry. CourseID is
// optional; a participant outside any course still receives private messages,
// notifications and calls.
type RegisterEvent struct {
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id,omitempty"`
}

// CourseMessageEvent asks for a course-wide fan-out.
type CourseMessageEvent struct {
	CourseID string `json:"course_id"`
	Content  string `json:"content"`
}

// PrivateMessageEvent asks for a one-to-one delivery.
type PrivateMessageEvent struct {
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
}

// CallInviteEvent starts a call toward CalleeID.
type CallInviteEvent struct {
	CalleeID string   `json:"callee_id"`
	Kind     CallKind `json:"kind"`
}

// CallAcceptEvent is the callee accepting the pending invite from CallerID.
type CallAcceptEvent struct {
	CallerID string `json:"caller_id"`
}

// CallDeclineEvent is the callee declining the pending invite from CallerID.
type CallDeclineEvent struct {
	CallerID string `json:"caller_id"`
}

// CallEndEvent terminates the call with OtherID from either side.
type CallEndEvent struct {
	OtherID string `json:"other_party_id"`
}

// SignalingEvent carries an opaque session-description or ICE-candidate blob
// toward TargetID. The hub relays Payload verbatim and never parses it.
type SignalingEvent struct {
	TargetID string          `json:"target_id"`
	Payload  json.RawMessage `json:"payload"`
}

// NotificationEvent is the pass-through request to announce an
// externally-caused event to every registered participant except the sender.
type NotificationEvent struct {
	Notification Notification `json:"notification"`
}

func (RegisterEvent) EventType() string       { return EventRegister }
func (CourseMessageEvent) EventType() string  { return EventSendCourseMessage }
func (PrivateMessageEvent) EventType() string { return EventSendPrivateMessage }
func (CallInviteEvent) EventType() string     { return EventCallInvite }
func (CallAcceptEvent) EventType() string     { return EventCallAccept }
func (CallDeclineEvent) EventType() string    { return EventCallDecline }
func (CallEndEvent) EventType() string        { return EventCallEnd }
func (SignalingEvent) EventType() string      { return EventSignalingPayload }
func (NotificationEvent) EventType() string   { return EventNewNotification }

// envelope extracts the flat type tag before the payload is decoded.
type envelope struct {
	Type string `json:"type"`
}

// DecodeEvent decodes one inbound frame into its typed event. Unknown types
// and missing required fields are errors; callers log and drop the frame
// without tearing down the connection.
func DecodeEvent(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, ErrMalformedEvent
	}

	switch env.Type {
	case EventRegister:
		var ev RegisterEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, ErrMalformedEvent
		}
		if ev.UserID == "" {
			return nil, ErrMissingField
		}
		return ev, nil

	case EventSendCourseMessage:
		var ev CourseMessageEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, ErrMalformedEvent
		}
		if ev.CourseID == "" || ev.Content == "" {
			return nil, ErrMissingField
		}
		return ev, nil

	case EventSendPrivateMessage:
		var ev PrivateMessageEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, ErrMalformedEvent
		}
		if ev.ReceiverID == "" || ev.Content == "" {
			return nil, ErrMissingField
		}
		return ev, nil

	case EventCallInvite:
		var ev CallInviteEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, ErrMalformedEvent
		}
		if ev.CalleeID == "" {
			return nil, ErrMissingField
		}
		if !ev.Kind.IsValid() {
			return nil, ErrInvalidCallKind
		}
		return ev, nil

	case EventCallAccept:
		var ev CallAcceptEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, ErrMalformedEvent
		}
		if ev.CallerID == "" {
			return nil, ErrMissingField
		}
		return ev, nil

	case EventCallDecline:
		var ev CallDeclineEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, ErrMalformedEvent
		}
		if ev.CallerID == "" {
			return nil, ErrMissingField
		}
		return ev, nil

	case EventCallEnd:
		var ev CallEndEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, ErrMalformedEvent
		}
		if ev.OtherID == "" {
			return nil, ErrMissingField
		}
		return ev, nil

	case EventSignalingPayload:
		var ev SignalingEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, ErrMalformedEvent
		}
		if ev.TargetID == "" || len(ev.Payload) == 0 {
			return nil, ErrMissingField
		}
		return ev, nil

	case EventNewNotification:
		var ev NotificationEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, ErrMalformedEvent
		}
		if !ev.Notification.Kind.IsValid() {
			return nil, ErrInvalidNotificationKind
		}
		return ev, nil

	default:
		return nil, ErrUnknownEventType
	}
}

// Outbound payloads. Each carries its own type tag so the client facade can
// demultiplex the single connection without a second framing layer.

// ChatDelivery wraps a chat message for both acknowledgment ("sent") and
// delivery ("receive") variants.
type ChatDelivery struct {
	Type    string       `json:"type"`
	Message *ChatMessage `json:"message"`
}

// NotificationDelivery pushes a notification to one connection.
type NotificationDelivery struct {
	Type         string        `json:"type"`
	Notification *Notification `json:"notification"`
}

// CallSignal is any of the CALL_* lifecycle events. From identifies the other
// party; Kind is set on invites, Reason on failures.
type CallSignal struct {
	Type   string   `json:"type"`
	From   string   `json:"from"`
	Kind   CallKind `json:"kind,omitempty"`
	Reason string   `json:"reason,omitempty"`
}

// SignalingDelivery relays an opaque negotiation blob to its target.
type SignalingDelivery struct {
	Type    string          `json:"type"`
	From    string          `json:"from"`
	Target  string          `json:"target_id"`
	Payload json.RawMessage `json:"payload"`
}

// ErrorDelivery reports a failed operation back to the initiating connection
// only; errors never broadcast.
type ErrorDelivery struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
