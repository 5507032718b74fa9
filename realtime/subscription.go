package realtime

import (
	"log"
	"time"

	"github.com/murmur/chat-sdk/topic"
)

// roomSub is a remembered room subscription, replayed after every
// reconnect until explicitly removed.
type roomSub struct {
	roomID int64
	retry  *time.Timer
}

// userSub is a remembered user-presence subscription.
type userSub struct {
	userID string
	retry  *time.Timer
}

// ListenRoom subscribes to the typing, delivery, and read topics of a room.
// The subscription survives reconnects until UnlistenRoom is called; if
// requested while disconnected it becomes active as soon as connectivity is
// regained.
func (c *Client) ListenRoom(roomID int64) {
	c.post(func() {
		sub, ok := c.rooms[roomID]
		if !ok {
			sub = &roomSub{roomID: roomID}
			c.rooms[roomID] = sub
		}
		c.subscribeRoom(sub)
	})
}

// UnlistenRoom unsubscribes the room's three topics best-effort and forgets
// the subscription; later reconnects will not replay it.
func (c *Client) UnlistenRoom(roomID int64) {
	c.post(func() {
		sub, ok := c.rooms[roomID]
		if !ok {
			return
		}
		c.cancelTimer(&sub.retry)
		delete(c.rooms, roomID)
		if t := c.getTransport(); t != nil {
			err := t.Unsubscribe(
				topic.RoomTypingFilter(roomID),
				topic.RoomDeliveryFilter(roomID),
				topic.RoomReadFilter(roomID),
			)
			if err != nil {
				log.Printf("[realtime] unlisten room %d: %v", roomID, err)
			}
		}
	})
}

// ListenUserStatus subscribes to a user's presence topic. Like room
// subscriptions, it is replayed after reconnects until removed.
func (c *Client) ListenUserStatus(userID string) {
	c.post(func() {
		sub, ok := c.users[userID]
		if !ok {
			sub = &userSub{userID: userID}
			c.users[userID] = sub
		}
		c.subscribeUser(sub)
	})
}

// UnlistenUserStatus unsubscribes the user's presence topic and forgets the
// subscription.
func (c *Client) UnlistenUserStatus(userID string) {
	c.post(func() {
		sub, ok := c.users[userID]
		if !ok {
			return
		}
		c.cancelTimer(&sub.retry)
		delete(c.users, userID)
		if t := c.getTransport(); t != nil {
			if err := t.Unsubscribe(topic.UserPresence(userID)); err != nil {
				log.Printf("[realtime] unlisten user %s: %v", userID, err)
			}
		}
	})
}

// listenComment subscribes the account's comment stream. It is intrinsic to
// the session and re-established automatically after every connect.
func (c *Client) listenComment() {
	c.cancelTimer(&c.commentTimer)
	if !c.loadAccount() {
		return
	}
	t := c.getTransport()
	if t == nil || !t.IsConnected() {
		c.deferRetry(&c.commentTimer, "comment stream", func() { c.listenComment() })
		return
	}
	if err := t.Subscribe(topic.CommentStream(c.me.Token), 2); err != nil {
		c.deferRetry(&c.commentTimer, "comment stream", func() { c.listenComment() })
		return
	}
	log.Printf("[realtime] listening comment stream")
}

// subscribeRoom issues the room's three subscriptions, falling back to a
// scheduled retry (racing a fresh connect attempt) when the transport is
// down.
func (c *Client) subscribeRoom(sub *roomSub) {
	c.cancelTimer(&sub.retry)
	roomID := sub.roomID
	t := c.getTransport()
	if t == nil || !t.IsConnected() {
		c.deferRetry(&sub.retry, "room", func() {
			if s, ok := c.rooms[roomID]; ok {
				c.subscribeRoom(s)
			}
		})
		return
	}
	filters := []string{
		topic.RoomTypingFilter(roomID),
		topic.RoomDeliveryFilter(roomID),
		topic.RoomReadFilter(roomID),
	}
	for _, f := range filters {
		if err := t.Subscribe(f, 2); err != nil {
			c.deferRetry(&sub.retry, "room", func() {
				if s, ok := c.rooms[roomID]; ok {
					c.subscribeRoom(s)
				}
			})
			return
		}
	}
	log.Printf("[realtime] listening room %d", roomID)
}

func (c *Client) subscribeUser(sub *userSub) {
	c.cancelTimer(&sub.retry)
	userID := sub.userID
	t := c.getTransport()
	if t == nil || !t.IsConnected() {
		c.deferRetry(&sub.retry, "user status", func() {
			if s, ok := c.users[userID]; ok {
				c.subscribeUser(s)
			}
		})
		return
	}
	if err := t.Subscribe(topic.UserPresence(userID), 2); err != nil {
		c.deferRetry(&sub.retry, "user status", func() {
			if s, ok := c.users[userID]; ok {
				c.subscribeUser(s)
			}
		})
		return
	}
	log.Printf("[realtime] listening user status %s", userID)
}

// deferRetry schedules a subscription retry after RetryPeriod and kicks off
// a connect attempt immediately; whichever succeeds first wins.
func (c *Client) deferRetry(timer **time.Timer, what string, fn func()) {
	log.Printf("[realtime] subscribe %s failed, transport down; retrying in %s", what, c.cfg.RetryPeriod)
	c.doConnect()
	c.cancelTimer(timer)
	*timer = time.AfterFunc(c.cfg.RetryPeriod, func() {
		c.post(fn)
	})
}
