package shophub_errors

import "errors"

// Common errors
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrConversationClosed = errors.New("conversation closed")
	ErrAlreadyExists      = errors.New("already exists")
)
