// Package realtime is the operational core of the chat SDK. It maintains a
// persistent publish/subscribe connection to the broker, subscribes to
// per-room and per-user topics, translates inbound wire messages into typed
// chat events, and republishes local state changes (typing, delivery and
// read receipts, online presence) as outbound messages.
//
// The client serializes all state mutations through a single control loop.
// Every public operation is fire-and-forget: it posts onto the loop and
// returns immediately; results surface later as events on the configured
// sink.
package realtime

import (
	"context"

	"github.com/murmur/chat-sdk/chat"
)

// ConnectionState is the client's broker connection state. Exactly one
// instance exists per client; transitions drive every other component.
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
)

// String returns the string representation of a ConnectionState.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// AccountProvider supplies the locally authenticated account. The second
// return value is false when no account is configured; the client then
// refuses to connect and the heartbeat idles.
type AccountProvider interface {
	Account() (chat.Account, bool)
}

// AppState reports whether the host application is in the foreground. The
// presence heartbeat throttles offline publishes while backgrounded.
type AppState interface {
	Foreground() bool
}

// StatusUpdater is the REST-style collaborator that persists delivery and
// read marks server-side. It is invoked fire-and-forget off the control
// loop; failures are logged and otherwise ignored.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, roomID, readCommentID, deliveredCommentID int64) error
}

// Sink receives every domain event the router emits. Events are handed off
// by value; the sink owns them from there.
type Sink interface {
	Publish(ev chat.Event)
}
