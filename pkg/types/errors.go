package types

import "errors"

var (
	ErrMalformedEvent          = errors.New("malformed event frame")
	ErrUnknownEventType        = errors.New("unknown event type")
	ErrMissingField            = errors.New("event missing required field")
	ErrInvalidCallKind         = errors.New("call kind must be voice or video")
	ErrInvalidNotificationKind = errors.New("invalid notification kind")
	ErrInvalidUserID           = errors.New("user ID must be 1-50 characters, alphanumeric + underscore/hyphen only")
	ErrInvalidScope            = errors.New("exactly one of course_id or receiver_id must be set")
	ErrEmptyContent            = errors.New("message content cannot be empty")
	ErrContentTooLarge         = errors.New("message content exceeds 64KB limit")
)
