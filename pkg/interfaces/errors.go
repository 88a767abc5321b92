package interfaces

import "errors"

var (
	ErrUserNotFound = errors.New("user not found in directory")
	ErrStoreClosed  = errors.New("message store is closed")
)
