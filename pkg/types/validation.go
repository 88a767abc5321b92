package types

import (
	"regexp"
)

const maxContentBytes = 64 * 1024

var userIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,50}$`)

// IsValidUserID reports whether id is acceptable as a participant or course
// identifier: 1-50 characters, alphanumeric plus underscore and hyphen.
func IsValidUserID(id string) bool {
	return userIDPattern.MatchString(id)
}

// Validate checks the structural invariants of a chat message: exactly one of
// course scope or private receiver, non-empty bounded content, and well-formed
// identifiers.
func (m *ChatMessage) Validate() error {
	if !IsValidUserID(m.SenderID) {
		return ErrInvalidUserID
	}

	hasCourse := m.CourseID != ""
	hasReceiver := m.ReceiverID != ""
	if hasCourse == hasReceiver {
		return ErrInvalidScope
	}

	if hasCourse && !IsValidUserID(m.CourseID) {
		return ErrInvalidUserID
	}
	if hasReceiver && !IsValidUserID(m.ReceiverID) {
		return ErrInvalidUserID
	}

	if m.Content == "" {
		return ErrEmptyContent
	}
	if len(m.Content) > maxContentBytes {
		return ErrContentTooLarge
	}

	return nil
}
