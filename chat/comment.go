// Package chat defines the domain records exchanged over the realtime layer:
// accounts, comments, and the typed events the message router emits.
package chat

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	// StateOnServer is the delivery state assigned to freshly received comments.
	StateOnServer = "on-server"

	// TypeButtons marks interactive button comments whose payload may carry
	// replacement display text.
	TypeButtons = "buttons"

	// ChatTypeSingle is the chat_type value for one-on-one rooms; anything
	// else is treated as a group room.
	ChatTypeSingle = "single"

	// TimestampFormat is the wire format for comment timestamps. Values are
	// always UTC; the trailing Z is a literal.
	TimestampFormat = "2006-01-02T15:04:05Z"
)

// Account identifies the locally authenticated user.
type Account struct {
	Email  string
	Token  string
	Name   string
	Avatar string
}

// Comment is a single chat message received on the comment stream.
type Comment struct {
	ID              int64
	TopicID         int64
	RoomID          int64
	UniqueID        string
	CommentBeforeID int64
	Message         string
	SenderName      string
	SenderEmail     string
	SenderAvatar    string
	Timestamp       time.Time
	State           string
	RoomName        string
	RoomAvatar      string
	IsGroup         bool
	Type            string
	Payload         json.RawMessage
}

// ParseError reports a comment payload that could not be decoded into a
// Comment. The message carrying it is lost; the broker does not re-deliver
// on parse failure.
type ParseError struct {
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("chat: invalid comment field %q: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("chat: comment is missing required field %q", e.Field)
}

func (e *ParseError) Unwrap() error { return e.Err }

// commentJSON mirrors the wire shape of a comment. Required fields are
// pointers so that absence can be told apart from a zero value.
type commentJSON struct {
	ID              *int64          `json:"id"`
	TopicID         *int64          `json:"topic_id"`
	RoomID          *int64          `json:"room_id"`
	UniqueID        *string         `json:"unique_temp_id"`
	CommentBeforeID *int64          `json:"comment_before_id"`
	Message         *string         `json:"message"`
	Username        *string         `json:"username"`
	Email           *string         `json:"email"`
	UserAvatar      *string         `json:"user_avatar"`
	Timestamp       *string         `json:"timestamp"`
	RoomName        *string         `json:"room_name"`
	RoomAvatar      *string         `json:"room_avatar"`
	ChatType        *string         `json:"chat_type"`
	Type            *string         `json:"type"`
	Payload         json.RawMessage `json:"payload"`
}

// ParseComment decodes a comment-stream payload into a Comment. A missing or
// malformed required field fails the whole parse; a partial Comment is never
// returned.
func ParseComment(data []byte) (Comment, error) {
	var raw commentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return Comment{}, &ParseError{Field: "(body)", Err: err}
	}

	required := []struct {
		name string
		ok   bool
	}{
		{"id", raw.ID != nil},
		{"topic_id", raw.TopicID != nil},
		{"room_id", raw.RoomID != nil},
		{"unique_temp_id", raw.UniqueID != nil},
		{"comment_before_id", raw.CommentBeforeID != nil},
		{"message", raw.Message != nil},
		{"email", raw.Email != nil},
		{"user_avatar", raw.UserAvatar != nil},
		{"timestamp", raw.Timestamp != nil},
		{"chat_type", raw.ChatType != nil},
	}
	for _, f := range required {
		if !f.ok {
			return Comment{}, &ParseError{Field: f.name}
		}
	}

	ts, err := time.Parse(TimestampFormat, *raw.Timestamp)
	if err != nil {
		return Comment{}, &ParseError{Field: "timestamp", Err: err}
	}

	c := Comment{
		ID:              *raw.ID,
		TopicID:         *raw.TopicID,
		RoomID:          *raw.RoomID,
		UniqueID:        *raw.UniqueID,
		CommentBeforeID: *raw.CommentBeforeID,
		Message:         *raw.Message,
		SenderEmail:     *raw.Email,
		SenderAvatar:    *raw.UserAvatar,
		Timestamp:       ts.UTC(),
		State:           StateOnServer,
		IsGroup:         *raw.ChatType != ChatTypeSingle,
	}
	if raw.Username != nil {
		c.SenderName = *raw.Username
	}
	if raw.RoomName != nil {
		c.RoomName = *raw.RoomName
	} else if !c.IsGroup {
		// One-on-one rooms are displayed under the peer's name.
		c.RoomName = c.SenderName
	}
	if raw.RoomAvatar != nil {
		c.RoomAvatar = *raw.RoomAvatar
	}
	if raw.Type != nil {
		c.Type = *raw.Type
		c.Payload = raw.Payload
		if c.Type == TypeButtons && len(raw.Payload) > 0 {
			applyButtonsText(&c, raw.Payload)
		}
	}
	return c, nil
}

// applyButtonsText overrides the display message of a buttons comment with
// the payload's text field, when present and non-blank.
func applyButtonsText(c *Comment, payload json.RawMessage) {
	var p struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}
	if text := strings.TrimSpace(p.Text); text != "" {
		c.Message = text
	}
}
