package bus

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/murmur/chat-sdk/chat"
)

// NATS subject patterns the bridge publishes on.
const (
	SubjectComment  = "chat.comment"
	SubjectTyping   = "chat.typing"   // + .<room_id>
	SubjectDelivery = "chat.delivery" // + .<room_id>
	SubjectRead     = "chat.read"     // + .<room_id>
	SubjectPresence = "chat.presence" // + .<user_id>
)

// NATSConfig holds NATS connection settings.
type NATSConfig struct {
	URL           string        // nats://localhost:4222
	Name          string        // client name for identification
	ReconnectWait time.Duration // time between reconnect attempts
	MaxReconnects int           // max reconnect attempts (-1 for infinite)
}

// DefaultNATSConfig returns sensible defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           "nats://localhost:4222",
		Name:          "murmur-bridge",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1,
	}
}

// NATSBridge republishes chat events as JSON onto NATS subjects. It
// satisfies the realtime client's sink interface, so it can be registered
// directly or as a Bus listener.
type NATSBridge struct {
	conn *nats.Conn
}

// NewNATSBridge connects to NATS with the given config and returns a ready
// bridge. It returns an error if the initial connection fails.
func NewNATSBridge(config NATSConfig) (*NATSBridge, error) {
	opts := []nats.Option{
		nats.Name(config.Name),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("[bus] nats disconnected: %v", err)
			} else {
				log.Printf("[bus] nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[bus] nats reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Printf("[bus] nats connection closed")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	log.Printf("[bus] nats connected to %s", nc.ConnectedUrl())
	return &NATSBridge{conn: nc}, nil
}

// Publish serializes the event and publishes it on its subject. Marshal or
// publish failures are logged; the bridge never propagates them back into
// the realtime core.
func (b *NATSBridge) Publish(ev chat.Event) {
	subject := subjectFor(ev)
	if subject == "" {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[bus] marshal event for %s: %v", subject, err)
		return
	}
	if err := b.conn.Publish(subject, data); err != nil {
		log.Printf("[bus] publish %s: %v", subject, err)
	}
}

// Close drains and closes the NATS connection.
func (b *NATSBridge) Close() {
	if err := b.conn.Drain(); err != nil {
		log.Printf("[bus] nats drain: %v", err)
	}
}

// subjectFor maps an event to its NATS subject. Unknown event types map to
// the empty string and are skipped.
func subjectFor(ev chat.Event) string {
	switch e := ev.(type) {
	case chat.CommentReceived:
		return SubjectComment
	case chat.TypingChanged:
		return SubjectTyping + "." + strconv.FormatInt(e.RoomID, 10)
	case chat.DeliveryReceived:
		return SubjectDelivery + "." + strconv.FormatInt(e.RoomID, 10)
	case chat.ReadReceived:
		return SubjectRead + "." + strconv.FormatInt(e.RoomID, 10)
	case chat.PresenceChanged:
		return SubjectPresence + "." + e.UserID
	default:
		return ""
	}
}
