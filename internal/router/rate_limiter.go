package router

import (
	"sync"
	"time"
)

const (
	rateLimitPerWindow = 100
	rateLimitWindow    = time.Minute
	senderStateTTL     = 5 * time.Minute
)

// RateLimiter caps how many sends a participant may submit per window.
// State lives per sender and resets when a fresh window starts.
type RateLimiter struct {
	mu      sync.Mutex
	senders map[string]*senderWindow
}

type senderWindow struct {
	count       int
	windowStart time.Time
}

// NewRateLimiter creates an empty rate limiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		senders: make(map[string]*senderWindow),
	}
}

// Allow reports whether userID may submit another send in the current window.
func (rl *RateLimiter) Allow(userID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	w, exists := rl.senders[userID]
	if !exists || now.Sub(w.windowStart) >= rateLimitWindow {
		rl.senders[userID] = &senderWindow{count: 1, windowStart: now}
		return true
	}

	if w.count >= rateLimitPerWindow {
		return false
	}

	w.count++
	return true
}

// Cleanup drops sender state idle for longer than senderStateTTL. Called
// periodically so disconnected participants do not accumulate.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for userID, w := range rl.senders {
		if now.Sub(w.windowStart) > senderStateTTL {
			delete(rl.senders, userID)
		}
	}
}
