// Package topic builds and parses the broker topic strings used by the
// realtime layer.
//
// Grammar (ASCII, slash-delimited):
//
//	{accountToken}/c                        comment stream
//	r/{roomId}/{topicId}/{userId}/t|d|r     room typing / delivered / read
//	u/{userId}/s                            user presence
//
// Room subscriptions wildcard the topic-id and user segments so that one
// subscription per room covers every participant.
package topic

import (
	"strconv"
	"strings"
)

// Kind identifies the topic family a parsed topic belongs to.
type Kind int

const (
	KindUnknown Kind = iota
	KindRoomTyping
	KindRoomDelivery
	KindRoomRead
	KindUserPresence
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindRoomTyping:
		return "typing"
	case KindRoomDelivery:
		return "delivery"
	case KindRoomRead:
		return "read"
	case KindUserPresence:
		return "presence"
	default:
		return "unknown"
	}
}

// Info is the result of parsing a topic string. RoomID and TopicID are set
// only for room kinds; UserID is set for both room and presence kinds.
type Info struct {
	Kind    Kind
	RoomID  int64
	TopicID int64
	UserID  string
}

// CommentStream returns the comment-stream topic for an account token.
func CommentStream(token string) string {
	return token + "/c"
}

// UserPresence returns the presence topic for a user.
func UserPresence(userID string) string {
	return "u/" + userID + "/s"
}

// RoomTyping returns the typing topic a specific user publishes on.
func RoomTyping(roomID, topicID int64, userID string) string {
	return roomTopic(roomID, topicID, userID, "t")
}

// RoomDelivery returns the delivery-ack topic a specific user publishes on.
func RoomDelivery(roomID, topicID int64, userID string) string {
	return roomTopic(roomID, topicID, userID, "d")
}

// RoomRead returns the read-ack topic a specific user publishes on.
func RoomRead(roomID, topicID int64, userID string) string {
	return roomTopic(roomID, topicID, userID, "r")
}

// RoomTypingFilter returns the wildcard subscription filter for typing
// events in a room.
func RoomTypingFilter(roomID int64) string {
	return roomFilter(roomID, "t")
}

// RoomDeliveryFilter returns the wildcard subscription filter for delivery
// acks in a room.
func RoomDeliveryFilter(roomID int64) string {
	return roomFilter(roomID, "d")
}

// RoomReadFilter returns the wildcard subscription filter for read acks in
// a room.
func RoomReadFilter(roomID int64) string {
	return roomFilter(roomID, "r")
}

func roomTopic(roomID, topicID int64, userID, suffix string) string {
	return "r/" + strconv.FormatInt(roomID, 10) + "/" +
		strconv.FormatInt(topicID, 10) + "/" + userID + "/" + suffix
}

func roomFilter(roomID int64, suffix string) string {
	return "r/" + strconv.FormatInt(roomID, 10) + "/+/+/" + suffix
}

// Parse classifies a concrete topic string by shape. It returns ok=false for
// topics outside the grammar, including the comment stream, which is keyed by
// account token and has no fixed shape.
func Parse(s string) (Info, bool) {
	parts := strings.Split(s, "/")
	switch {
	case len(parts) == 5 && parts[0] == "r":
		roomID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return Info{}, false
		}
		topicID, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return Info{}, false
		}
		var kind Kind
		switch parts[4] {
		case "t":
			kind = KindRoomTyping
		case "d":
			kind = KindRoomDelivery
		case "r":
			kind = KindRoomRead
		default:
			return Info{}, false
		}
		return Info{Kind: kind, RoomID: roomID, TopicID: topicID, UserID: parts[3]}, true

	case len(parts) == 3 && parts[0] == "u" && parts[2] == "s":
		if parts[1] == "" {
			return Info{}, false
		}
		return Info{Kind: KindUserPresence, UserID: parts[1]}, true
	}
	return Info{}, false
}
