package websocket

import (
	"sync"
)

// entry is the live association between a participant and its current
// connection plus optional course scope.
type entry struct {
	conn     *Connection
	courseID string
}

// Registry maps participants to their single live connection. It is the only
// shared mutable state in the hub, guarded by one RWMutex; every operation is
// a short map access, so coarse locking is sufficient. All operations are
// total: a lookup miss is a normal outcome, not an error.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry            // userID -> entry
	courses map[string]map[string]*entry // courseID -> userID -> entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		courses: make(map[string]map[string]*entry),
	}
}

// Register installs or replaces the entry for the connection's participant.
// A superseded connection is left open: closing it here would race with its
// own disconnect handling and trigger spurious call-teardown for a user who
// simply reconnected. Its reader notices the replacement when Deregister
// finds a different current connection and leaves the new entry alone.
func (r *Registry) Register(userID, courseID string, conn *Connection) {
	if conn == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, exists := r.entries[userID]; exists {
		r.removeFromCourse(userID, old.courseID)
	}

	e := &entry{conn: conn, courseID: courseID}
	r.entries[userID] = e

	if courseID != "" {
		if r.courses[courseID] == nil {
			r.courses[courseID] = make(map[string]*entry)
		}
		r.courses[courseID][userID] = e
	}
}

// Lookup returns the current connection for a participant. A miss means the
// participant is offline and the caller falls back to best-effort semantics.
func (r *Registry) Lookup(userID string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entries[userID]
	if !exists {
		return nil, false
	}
	return e.conn, true
}

// LookupByScope returns every live connection registered under a course.
// Callers exclude the originator by comparing participant ids; the originator
// gets its own "sent" acknowledgment instead of a "received" event.
func (r *Registry) LookupByScope(courseID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.courses[courseID]
	conns := make([]*Connection, 0, len(members))
	for _, e := range members {
		conns = append(conns, e.conn)
	}
	return conns
}

// ListAll returns every registered connection except the one belonging to
// excludeUserID. Used for hub-wide notification broadcasts.
func (r *Registry) ListAll(excludeUserID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Connection, 0, len(r.entries))
	for userID, e := range r.entries {
		if userID == excludeUserID {
			continue
		}
		conns = append(conns, e.conn)
	}
	return conns
}

// Deregister removes every entry whose connection is conn. Idempotent, and a
// no-op when a newer registration has already superseded conn so a stale
// disconnect can never evict the replacement connection.
func (r *Registry) Deregister(conn *Connection) {
	if conn == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for userID, e := range r.entries {
		if e.conn != conn {
			continue
		}
		delete(r.entries, userID)
		r.removeFromCourse(userID, e.courseID)
	}
}

// Stats reports registry size for the health endpoint.
func (r *Registry) Stats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return map[string]int{
		"connections":    len(r.entries),
		"active_courses": len(r.courses),
	}
}

// removeFromCourse drops a member from its course index and cleans up empty
// course maps. Callers hold the write lock.
func (r *Registry) removeFromCourse(userID, courseID string) {
	if courseID == "" {
		return
	}
	members, exists := r.courses[courseID]
	if !exists {
		return
	}
	delete(members, userID)
	if len(members) == 0 {
		delete(r.courses, courseID)
	}
}
