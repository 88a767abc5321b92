// Package call orchestrates the two-party call lifecycle: invite, ring,
// accept or decline, opaque payload relay, and teardown. The hub is a pure
// signaling relay keyed by participant identity; session descriptions and ICE
// candidates pass through verbatim and media never touches this process.
package call

import (
	"log"
	"sync"
	"time"

	"campushub/internal/notify"
	"campushub/internal/websocket"
	"campushub/pkg/types"
)

// DefaultRingTimeout bounds how long an unanswered invite may ring. The
// upstream protocol left ringing unbounded; a bounded window is applied here
// so an absent callee eventually surfaces to the caller as no_answer.
const DefaultRingTimeout = 45 * time.Second

// Failure reasons reported to the caller in CALL_FAILED events. Unavailable
// is distinct from a decline: the callee never saw the invite.
const (
	ReasonUnavailable  = "unavailable"
	ReasonNoAnswer     = "no_answer"
	ReasonDisconnected = "disconnected"
)

type state int

const (
	stateRinging state = iota
	stateAccepted
	stateActive
)

func (s state) String() string {
	switch s {
	case stateRinging:
		return "ringing"
	case stateAccepted:
		return "accepted"
	case stateActive:
		return "active"
	}
	return "unknown"
}

// pairKey identifies the call between two participants by their unordered
// pair. There is no separate session id: the negotiation protocol embeds its
// own correlation, so participant identity is the only key the hub needs.
type pairKey struct {
	lo, hi string
}

func keyFor(a, b string) pairKey {
	if a < b {
		return pairKey{lo: a, hi: b}
	}
	return pairKey{lo: b, hi: a}
}

// session is the working-memory record of one in-flight call. Terminal states
// (ended, declined, failed) are expressed by deleting the session, which makes
// every late event for a finished call a natural no-op.
type session struct {
	callerID  string
	calleeID  string
	kind      types.CallKind
	state     state
	createdAt time.Time
	ringTimer *time.Timer
}

func (s *session) other(userID string) string {
	if userID == s.callerID {
		return s.calleeID
	}
	return s.callerID
}

// delivery is an outbound frame resolved under the lock and written after
// release, so a slow socket never stalls unrelated call processing.
type delivery struct {
	conn    *websocket.Connection
	payload interface{}
}

// Signaler drives the call state machine for every in-flight call.
type Signaler struct {
	registry    *websocket.Registry
	notifier    *notify.Dispatcher
	ringTimeout time.Duration

	mu       sync.Mutex
	sessions map[pairKey]*session
}

// NewSignaler creates a signaler. A non-positive ringTimeout falls back to
// DefaultRingTimeout.
func NewSignaler(registry *websocket.Registry, notifier *notify.Dispatcher, ringTimeout time.Duration) *Signaler {
	if ringTimeout <= 0 {
		ringTimeout = DefaultRingTimeout
	}
	return &Signaler{
		registry:    registry,
		notifier:    notifier,
		ringTimeout: ringTimeout,
		sessions:    make(map[pairKey]*session),
	}
}

// Invite starts a call from callerID toward calleeID. An absent callee moves
// the call directly to failed: the caller gets CALL_FAILED/unavailable and no
// session or notification is created. Otherwise the callee receives
// CALL_INVITE plus a call-invite notification and the session rings until
// answered, declined, dropped, or timed out.
func (s *Signaler) Invite(callerID string, ev types.CallInviteEvent) {
	var out []delivery

	s.mu.Lock()
	key := keyFor(callerID, ev.CalleeID)
	if existing, ok := s.sessions[key]; ok {
		// Not Idle for this pair; the invite is invalid for the current
		// state and is ignored.
		log.Printf("Ignoring invite from %s to %s: call already %s", callerID, ev.CalleeID, existing.state)
		s.mu.Unlock()
		return
	}

	calleeConn, calleeOnline := s.registry.Lookup(ev.CalleeID)
	if !calleeOnline {
		if callerConn, ok := s.registry.Lookup(callerID); ok {
			out = append(out, delivery{callerConn, &types.CallSignal{
				Type:   types.EventCallFailed,
				From:   ev.CalleeID,
				Reason: ReasonUnavailable,
			}})
		}
		s.mu.Unlock()
		s.send(out)
		return
	}

	sess := &session{
		callerID:  callerID,
		calleeID:  ev.CalleeID,
		kind:      ev.Kind,
		state:     stateRinging,
		createdAt: time.Now(),
	}
	sess.ringTimer = time.AfterFunc(s.ringTimeout, func() { s.timeout(key) })
	s.sessions[key] = sess

	out = append(out, delivery{calleeConn, &types.CallSignal{
		Type: types.EventCallInviteOut,
		From: callerID,
		Kind: ev.Kind,
	}})
	s.mu.Unlock()

	s.send(out)
	s.notifier.Dispatch(ev.CalleeID, &types.Notification{
		Kind:      types.NotificationCallInvite,
		Title:     "Incoming call",
		Body:      "Incoming " + string(ev.Kind) + " call",
		RelatedID: callerID,
	})
	log.Printf("Call ringing: caller=%s callee=%s kind=%s", callerID, ev.CalleeID, ev.Kind)
}

// Accept moves a ringing call to accepted and relays CALL_ACCEPTED to the
// caller only. Accepts from anyone but the invited callee, or for a call that
// is not ringing, are ignored.
func (s *Signaler) Accept(senderID, callerID string) {
	var out []delivery

	s.mu.Lock()
	key := keyFor(senderID, callerID)
	sess, ok := s.sessions[key]
	if !ok || sess.state != stateRinging || sess.calleeID != senderID {
		log.Printf("Ignoring accept from %s for caller %s: no ringing call", senderID, callerID)
		s.mu.Unlock()
		return
	}

	sess.state = stateAccepted
	sess.ringTimer.Stop()

	if callerConn, online := s.registry.Lookup(sess.callerID); online {
		out = append(out, delivery{callerConn, &types.CallSignal{
			Type: types.EventCallAccepted,
			From: sess.calleeID,
		}})
	}
	s.mu.Unlock()

	s.send(out)
	log.Printf("Call accepted: caller=%s callee=%s", callerID, senderID)
}

// Decline relays CALL_DECLINED to the caller only and discards the session.
// Declined is terminal; any later event for this pair is a no-op.
func (s *Signaler) Decline(senderID, callerID string) {
	var out []delivery

	s.mu.Lock()
	key := keyFor(senderID, callerID)
	sess, ok := s.sessions[key]
	if !ok || sess.state != stateRinging || sess.calleeID != senderID {
		log.Printf("Ignoring decline from %s for caller %s: no ringing call", senderID, callerID)
		s.mu.Unlock()
		return
	}

	sess.ringTimer.Stop()
	delete(s.sessions, key)

	if callerConn, online := s.registry.Lookup(sess.callerID); online {
		out = append(out, delivery{callerConn, &types.CallSignal{
			Type: types.EventCallDeclined,
			From: sess.calleeID,
		}})
	}
	s.mu.Unlock()

	s.send(out)
	log.Printf("Call declined: caller=%s callee=%s", callerID, senderID)
}

// Relay forwards an opaque signaling payload to the other party of an
// accepted or active call. Payloads for any other phase are silently dropped;
// that guards against stale network retries arriving after a call finished.
// The first relayed payload marks the session active.
func (s *Signaler) Relay(senderID string, ev types.SignalingEvent) {
	var out []delivery

	s.mu.Lock()
	key := keyFor(senderID, ev.TargetID)
	sess, ok := s.sessions[key]
	if !ok || (sess.state != stateAccepted && sess.state != stateActive) {
		s.mu.Unlock()
		return
	}

	if sess.state == stateAccepted {
		sess.state = stateActive
	}

	if targetConn, online := s.registry.Lookup(ev.TargetID); online {
		out = append(out, delivery{targetConn, &types.SignalingDelivery{
			Type:    types.EventSignalingPayload,
			From:    senderID,
			Target:  ev.TargetID,
			Payload: ev.Payload,
		}})
	}
	s.mu.Unlock()

	s.send(out)
}

// End terminates the call with otherID from either side, relaying CALL_ENDED
// to the remaining party. A second End for the same pair finds no session and
// does nothing: termination is idempotent even when both parties hang up
// concurrently.
func (s *Signaler) End(senderID, otherID string) {
	var out []delivery

	s.mu.Lock()
	key := keyFor(senderID, otherID)
	sess, ok := s.sessions[key]
	if !ok {
		s.mu.Unlock()
		return
	}

	sess.ringTimer.Stop()
	delete(s.sessions, key)

	if otherConn, online := s.registry.Lookup(sess.other(senderID)); online {
		out = append(out, delivery{otherConn, &types.CallSignal{
			Type: types.EventCallEnded,
			From: senderID,
		}})
	}
	s.mu.Unlock()

	s.send(out)
	log.Printf("Call ended: by=%s other=%s", senderID, otherID)
}

// HandleDisconnect tears down every call the dropped participant was party
// to. A callee dropping mid-ring fails the call to the caller; in every other
// phase the survivor receives CALL_ENDED.
func (s *Signaler) HandleDisconnect(userID string) {
	var out []delivery

	s.mu.Lock()
	for key, sess := range s.sessions {
		if sess.callerID != userID && sess.calleeID != userID {
			continue
		}

		sess.ringTimer.Stop()
		delete(s.sessions, key)

		otherID := sess.other(userID)
		otherConn, online := s.registry.Lookup(otherID)
		if !online {
			continue
		}

		if sess.state == stateRinging && sess.calleeID == userID {
			out = append(out, delivery{otherConn, &types.CallSignal{
				Type:   types.EventCallFailed,
				From:   userID,
				Reason: ReasonDisconnected,
			}})
		} else {
			out = append(out, delivery{otherConn, &types.CallSignal{
				Type: types.EventCallEnded,
				From: userID,
			}})
		}
	}
	s.mu.Unlock()

	s.send(out)
}

// ActiveCalls reports the number of in-flight sessions for monitoring.
func (s *Signaler) ActiveCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// timeout fires when a ringing call was never answered: the caller gets
// CALL_FAILED/no_answer and the callee's ring is cancelled with CALL_ENDED.
func (s *Signaler) timeout(key pairKey) {
	var out []delivery

	s.mu.Lock()
	sess, ok := s.sessions[key]
	if !ok || sess.state != stateRinging {
		s.mu.Unlock()
		return
	}

	delete(s.sessions, key)

	if callerConn, online := s.registry.Lookup(sess.callerID); online {
		out = append(out, delivery{callerConn, &types.CallSignal{
			Type:   types.EventCallFailed,
			From:   sess.calleeID,
			Reason: ReasonNoAnswer,
		}})
	}
	if calleeConn, online := s.registry.Lookup(sess.calleeID); online {
		out = append(out, delivery{calleeConn, &types.CallSignal{
			Type: types.EventCallEnded,
			From: sess.callerID,
		}})
	}
	s.mu.Unlock()

	s.send(out)
	log.Printf("Call timed out ringing: caller=%s callee=%s", sess.callerID, sess.calleeID)
}

// send writes resolved deliveries outside the session lock. Write failures
// are logged and otherwise ignored; the failing connection's own disconnect
// handling performs the cleanup.
func (s *Signaler) send(deliveries []delivery) {
	for _, d := range deliveries {
		if err := d.conn.WriteJSON(d.payload); err != nil {
			log.Printf("Call signal delivery to %s failed: %v", d.conn.UserID(), err)
		}
	}
}
