// Package interfaces declares the contracts the hub consumes from external
// collaborators. The hub never reaches a data store directly; chat durability
// and user identity belong to implementations of these interfaces.
package interfaces

import (
	"context"

	"campushub/pkg/types"
)

// MessageStore persists chat messages and serves the history fetch path that
// makes best-effort real-time delivery safe: anything missed live is visible
// on the next fetch.
type MessageStore interface {
	// SaveMessage persists a message. It must complete before any fan-out;
	// a failure aborts the whole send.
	SaveMessage(ctx context.Context, message *types.ChatMessage) error

	// CourseHistory returns the most recent course-wide messages in
	// chronological order, capped at limit.
	CourseHistory(ctx context.Context, courseID string, limit int) ([]*types.ChatMessage, error)

	// PrivateHistory returns the conversation between two participants in
	// chronological order, capped at limit.
	PrivateHistory(ctx context.Context, userA, userB string, limit int) ([]*types.ChatMessage, error)

	// HealthCheck verifies the store is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases the store's resources after pending writes drain.
	Close() error
}

// UserDirectory resolves participant identity for display-name attachment.
// A lookup miss is expected for participants the directory has never seen;
// callers fall back to the raw identifier.
type UserDirectory interface {
	// GetUser returns the directory record for id, or ErrUserNotFound.
	GetUser(ctx context.Context, id string) (*types.User, error)
}
