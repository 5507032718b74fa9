package realtime

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/murmur/chat-sdk/chat"
	"github.com/murmur/chat-sdk/internal/metrics"
	"github.com/murmur/chat-sdk/topic"
)

// route classifies an inbound message by topic shape, converts it to a typed
// chat event, suppresses self-originated room and presence events, and
// republishes a delivery ack for comments sent by other users.
func (c *Client) route(msg Message) {
	if !c.loadAccount() {
		return
	}

	if c.me.Token != "" && msg.Topic == topic.CommentStream(c.me.Token) {
		c.routeComment(msg.Payload)
		return
	}

	info, ok := topic.Parse(msg.Topic)
	if !ok {
		metrics.MessagesRouted.WithLabelValues("unroutable").Inc()
		log.Printf("[realtime] message on unrecognized topic %q", msg.Topic)
		return
	}
	if info.UserID == c.me.Email {
		metrics.MessagesRouted.WithLabelValues("self").Inc()
		return
	}

	switch info.Kind {
	case topic.KindRoomTyping:
		metrics.MessagesRouted.WithLabelValues("typing").Inc()
		c.emit(chat.TypingChanged{
			RoomID:  info.RoomID,
			TopicID: info.TopicID,
			UserID:  info.UserID,
			Typing:  string(msg.Payload) == "1",
		})

	case topic.KindRoomDelivery:
		commentID, uniqueID, err := parseReceipt(msg.Payload)
		if err != nil {
			log.Printf("[realtime] bad delivery payload on %s: %v", msg.Topic, err)
			return
		}
		metrics.MessagesRouted.WithLabelValues("delivery").Inc()
		c.emit(chat.DeliveryReceived{
			RoomID:          info.RoomID,
			TopicID:         info.TopicID,
			UserID:          info.UserID,
			CommentID:       commentID,
			CommentUniqueID: uniqueID,
		})

	case topic.KindRoomRead:
		commentID, uniqueID, err := parseReceipt(msg.Payload)
		if err != nil {
			log.Printf("[realtime] bad read payload on %s: %v", msg.Topic, err)
			return
		}
		metrics.MessagesRouted.WithLabelValues("read").Inc()
		c.emit(chat.ReadReceived{
			RoomID:          info.RoomID,
			TopicID:         info.TopicID,
			UserID:          info.UserID,
			CommentID:       commentID,
			CommentUniqueID: uniqueID,
		})

	case topic.KindUserPresence:
		online, lastActive, err := parsePresence(msg.Payload)
		if err != nil {
			log.Printf("[realtime] bad presence payload on %s: %v", msg.Topic, err)
			return
		}
		metrics.MessagesRouted.WithLabelValues("presence").Inc()
		c.emit(chat.PresenceChanged{
			UserID:       info.UserID,
			Online:       online,
			LastActiveAt: lastActive,
		})
	}
}

// routeComment parses a comment-stream payload and emits CommentReceived.
// Comments sent by other users are acknowledged as delivered before the
// event goes out. A payload that cannot be decoded is lost; the broker does
// not re-deliver on parse failure.
func (c *Client) routeComment(payload []byte) {
	comment, err := chat.ParseComment(payload)
	if err != nil {
		metrics.ParseFailures.Inc()
		log.Printf("[realtime] dropping undecodable comment: %v", err)
		return
	}
	metrics.MessagesRouted.WithLabelValues("comment").Inc()
	if comment.SenderEmail != c.me.Email {
		c.doSetDelivery(comment.RoomID, comment.TopicID, comment.ID, comment.UniqueID)
	}
	c.emit(chat.CommentReceived{Comment: comment})
}

func (c *Client) emit(ev chat.Event) {
	if c.deps.Sink != nil {
		c.deps.Sink.Publish(ev)
	}
}

// parseReceipt decodes a "{commentId}:{commentUniqueId}" payload.
func parseReceipt(payload []byte) (int64, string, error) {
	s := string(payload)
	i := strings.IndexByte(s, ':')
	if i < 0 {
		return 0, "", fmt.Errorf("missing separator in %q", s)
	}
	id, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("bad comment id in %q: %w", s, err)
	}
	return id, s[i+1:], nil
}

// parsePresence decodes a "{0|1}:{epochMillis}" payload.
func parsePresence(payload []byte) (bool, time.Time, error) {
	s := string(payload)
	i := strings.IndexByte(s, ':')
	if i < 0 {
		return false, time.Time{}, fmt.Errorf("missing separator in %q", s)
	}
	millis, err := strconv.ParseInt(s[i+1:], 10, 64)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("bad timestamp in %q: %w", s, err)
	}
	return s[:i] == "1", time.UnixMilli(millis).UTC(), nil
}
