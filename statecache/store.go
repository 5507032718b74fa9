// Package statecache mirrors presence and receipt events into Redis so host
// applications can query last-known user and room state without replaying
// the event stream. It plugs into the realtime client as an event sink.
package statecache

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/murmur/chat-sdk/chat"
)

const (
	// PresencePrefix is the Redis key prefix for per-user presence hashes.
	PresencePrefix = "presence:"

	// MarksPrefix is the Redis key prefix for per-room receipt hashes.
	MarksPrefix = "marks:"

	// PresenceTTL is the time-to-live for presence keys.
	PresenceTTL = 24 * time.Hour

	// MarksTTL is the time-to-live for room receipt keys.
	MarksTTL = 7 * 24 * time.Hour

	// writeTimeout bounds each Redis write issued from the event path.
	writeTimeout = 5 * time.Second
)

// Presence is the last-known online state of a user.
type Presence struct {
	UserID     string `redis:"user_id"`
	Online     bool   `redis:"online"`
	LastActive int64  `redis:"last_active"` // unix millis
}

// Store caches realtime state in Redis.
type Store struct {
	client *redis.Client
}

// NewStore connects to Redis and verifies the connection.
func NewStore(redisAddr string) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("statecache: redis connection failed: %w", err)
	}
	return &Store{client: client}, nil
}

// NewStoreWithClient wraps an existing Redis client.
func NewStoreWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Publish records the event in Redis. Write failures are logged; the cache
// never propagates errors back into the realtime core.
func (s *Store) Publish(ev chat.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	var err error
	switch e := ev.(type) {
	case chat.PresenceChanged:
		err = s.setPresence(ctx, e)
	case chat.DeliveryReceived:
		err = s.setMark(ctx, e.RoomID, markField(e.UserID, "delivered"), e.CommentID)
	case chat.ReadReceived:
		err = s.setMark(ctx, e.RoomID, markField(e.UserID, "read"), e.CommentID)
	default:
		return
	}
	if err != nil {
		log.Printf("[statecache] record %T: %v", ev, err)
	}
}

func (s *Store) setPresence(ctx context.Context, e chat.PresenceChanged) error {
	key := presenceKey(e.UserID)
	fields := map[string]interface{}{
		"user_id":     e.UserID,
		"online":      boolField(e.Online),
		"last_active": e.LastActiveAt.UnixMilli(),
	}
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, PresenceTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) setMark(ctx context.Context, roomID int64, field string, commentID int64) error {
	key := marksKey(roomID)
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, field, commentID)
	pipe.Expire(ctx, key, MarksTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Presence returns the last-known presence of a user, or nil if none is
// cached.
func (s *Store) Presence(ctx context.Context, userID string) (*Presence, error) {
	var p Presence
	if err := s.client.HGetAll(ctx, presenceKey(userID)).Scan(&p); err != nil {
		return nil, err
	}
	if p.UserID == "" {
		return nil, nil // not cached
	}
	return &p, nil
}

// RoomMarks returns the per-user delivery/read comment IDs cached for a
// room. Keys have the form "<user>:delivered" and "<user>:read".
func (s *Store) RoomMarks(ctx context.Context, roomID int64) (map[string]int64, error) {
	raw, err := s.client.HGetAll(ctx, marksKey(roomID)).Result()
	if err != nil {
		return nil, err
	}
	marks := make(map[string]int64, len(raw))
	for field, v := range raw {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		marks[field] = id
	}
	return marks, nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

func presenceKey(userID string) string {
	return PresencePrefix + userID
}

func marksKey(roomID int64) string {
	return MarksPrefix + strconv.FormatInt(roomID, 10)
}

func markField(userID, kind string) string {
	return userID + ":" + kind
}

func boolField(b bool) int {
	if b {
		return 1
	}
	return 0
}
