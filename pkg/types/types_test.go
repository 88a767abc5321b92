package types

import (
	"errors"
	"strings"
	"testing"
)

func TestDecodeEvent_Register(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"type":"register","user_id":"alice","course_id":"course-1"}`))
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	reg, ok := ev.(RegisterEvent)
	if !ok {
		t.Fatalf("expected RegisterEvent, got %T", ev)
	}
	if reg.UserID != "alice" || reg.CourseID != "course-1" {
		t.Errorf("unexpected fields: %+v", reg)
	}
}

func TestDecodeEvent_RegisterWithoutCourse(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"type":"register","user_id":"bob"}`))
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}
	if reg := ev.(RegisterEvent); reg.CourseID != "" {
		t.Errorf("expected empty course id, got %q", reg.CourseID)
	}
}

func TestDecodeEvent_AllInboundTypes(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  string
	}{
		{"course message", `{"type":"send_course_message","course_id":"c1","content":"hi"}`, EventSendCourseMessage},
		{"private message", `{"type":"send_private_message","receiver_id":"bob","content":"hi"}`, EventSendPrivateMessage},
		{"call invite", `{"type":"call_invite","callee_id":"bob","kind":"video"}`, EventCallInvite},
		{"call accept", `{"type":"call_accept","caller_id":"alice"}`, EventCallAccept},
		{"call decline", `{"type":"call_decline","caller_id":"alice"}`, EventCallDecline},
		{"call end", `{"type":"call_end","other_party_id":"bob"}`, EventCallEnd},
		{"signaling", `{"type":"signaling_payload","target_id":"bob","payload":{"sdp":"x"}}`, EventSignalingPayload},
		{"notification", `{"type":"new_notification","notification":{"kind":"announcement","title":"t"}}`, EventNewNotification},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := DecodeEvent([]byte(tt.frame))
			if err != nil {
				t.Fatalf("DecodeEvent failed: %v", err)
			}
			if ev.EventType() != tt.want {
				t.Errorf("EventType() = %q, want %q", ev.EventType(), tt.want)
			}
		})
	}
}

func TestDecodeEvent_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  error
	}{
		{"not json", `{{{`, ErrMalformedEvent},
		{"unknown type", `{"type":"teleport"}`, ErrUnknownEventType},
		{"register missing user", `{"type":"register"}`, ErrMissingField},
		{"course message missing content", `{"type":"send_course_message","course_id":"c1"}`, ErrMissingField},
		{"private message missing receiver", `{"type":"send_private_message","content":"hi"}`, ErrMissingField},
		{"invite bad kind", `{"type":"call_invite","callee_id":"bob","kind":"hologram"}`, ErrInvalidCallKind},
		{"invite missing callee", `{"type":"call_invite","kind":"voice"}`, ErrMissingField},
		{"accept missing caller", `{"type":"call_accept"}`, ErrMissingField},
		{"end missing other party", `{"type":"call_end"}`, ErrMissingField},
		{"signaling missing payload", `{"type":"signaling_payload","target_id":"bob"}`, ErrMissingField},
		{"notification bad kind", `{"type":"new_notification","notification":{"kind":"nope"}}`, ErrInvalidNotificationKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEvent([]byte(tt.frame))
			if !errors.Is(err, tt.want) {
				t.Errorf("DecodeEvent error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeEvent_SignalingPayloadVerbatim(t *testing.T) {
	raw := `{"type":"signaling_payload","target_id":"bob","payload":{"candidate":"a=1","weird":[1,2,3]}}`
	ev, err := DecodeEvent([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	sig := ev.(SignalingEvent)
	if !strings.Contains(string(sig.Payload), `"weird":[1,2,3]`) {
		t.Errorf("payload not preserved verbatim: %s", sig.Payload)
	}
}

func TestChatMessage_Validate(t *testing.T) {
	valid := ChatMessage{SenderID: "alice", CourseID: "c1", Content: "hello"}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid course message rejected: %v", err)
	}

	validPrivate := ChatMessage{SenderID: "alice", ReceiverID: "bob", Content: "hello"}
	if err := validPrivate.Validate(); err != nil {
		t.Errorf("valid private message rejected: %v", err)
	}

	tests := []struct {
		name string
		msg  ChatMessage
		want error
	}{
		{"both scopes set", ChatMessage{SenderID: "a", CourseID: "c", ReceiverID: "b", Content: "x"}, ErrInvalidScope},
		{"neither scope set", ChatMessage{SenderID: "a", Content: "x"}, ErrInvalidScope},
		{"empty content", ChatMessage{SenderID: "a", CourseID: "c", Content: ""}, ErrEmptyContent},
		{"bad sender", ChatMessage{SenderID: "has spaces", CourseID: "c", Content: "x"}, ErrInvalidUserID},
		{"bad receiver", ChatMessage{SenderID: "a", ReceiverID: "no/slash", Content: "x"}, ErrInvalidUserID},
		{"oversized content", ChatMessage{SenderID: "a", CourseID: "c", Content: strings.Repeat("x", maxContentBytes+1)}, ErrContentTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.msg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestIsValidUserID(t *testing.T) {
	for _, id := range []string{"alice", "user_1", "course-1", "X"} {
		if !IsValidUserID(id) {
			t.Errorf("IsValidUserID(%q) = false, want true", id)
		}
	}
	for _, id := range []string{"", "has space", "slash/y", strings.Repeat("a", 51)} {
		if IsValidUserID(id) {
			t.Errorf("IsValidUserID(%q) = true, want false", id)
		}
	}
}

func TestCallKind_IsValid(t *testing.T) {
	if !CallVoice.IsValid() || !CallVideo.IsValid() {
		t.Error("voice and video must be valid kinds")
	}
	if CallKind("screen").IsValid() {
		t.Error("unknown kind accepted")
	}
}
