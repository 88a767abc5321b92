package router

import "errors"

var (
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrInvalidMessage    = errors.New("invalid message")
	ErrPersistenceFailed = errors.New("message could not be persisted")
)
