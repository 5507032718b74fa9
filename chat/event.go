package chat

import "time"

// Event is a domain event produced by the realtime message router. The
// concrete types below are handed off by value to the configured sink;
// listeners must not mutate them.
type Event interface {
	event()
}

// CommentReceived is emitted for every comment that arrives on the comment
// stream, including the local account's own.
type CommentReceived struct {
	Comment Comment `json:"comment"`
}

// TypingChanged is emitted when another user starts or stops typing in a room.
type TypingChanged struct {
	RoomID  int64  `json:"room_id"`
	TopicID int64  `json:"topic_id"`
	UserID  string `json:"user_id"`
	Typing  bool   `json:"typing"`
}

// DeliveryReceived is emitted when another user acknowledges delivery of a
// comment.
type DeliveryReceived struct {
	RoomID          int64  `json:"room_id"`
	TopicID         int64  `json:"topic_id"`
	UserID          string `json:"user_id"`
	CommentID       int64  `json:"comment_id"`
	CommentUniqueID string `json:"comment_unique_id"`
}

// ReadReceived is emitted when another user marks a comment as read.
type ReadReceived struct {
	RoomID          int64  `json:"room_id"`
	TopicID         int64  `json:"topic_id"`
	UserID          string `json:"user_id"`
	CommentID       int64  `json:"comment_id"`
	CommentUniqueID string `json:"comment_unique_id"`
}

// PresenceChanged is emitted when a watched user's online status changes.
type PresenceChanged struct {
	UserID       string    `json:"user_id"`
	Online       bool      `json:"online"`
	LastActiveAt time.Time `json:"last_active_at"`
}

func (CommentReceived) event()  {}
func (TypingChanged) event()    {}
func (DeliveryReceived) event() {}
func (ReadReceived) event()     {}
func (PresenceChanged) event()  {}
