package realtime

import "errors"

// Errors produced by the transport layer. ErrNotConnected and
// ErrTransportClosed are expected states, recovered locally by triggering a
// connect or restart; they are never surfaced to callers as hard failures.
var (
	ErrNotConnected    = errors.New("realtime: transport not connected")
	ErrTransportClosed = errors.New("realtime: transport closed")
	ErrNoAccount       = errors.New("realtime: no authenticated account configured")
)
