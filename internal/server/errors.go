package server

import "errors"

// Server-specific errors
var (
	ErrServerClosed         = errors.New("server is closed")
	ErrServerAlreadyRunning = errors.New("server is already running")
	ErrInvalidConfig        = errors.New("invalid server configuration")
	ErrInvalidMessage       = errors.New("invalid message")
	ErrUnknownMessageType   = errors.New("unknown message type")
)
