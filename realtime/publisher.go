package realtime

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/murmur/chat-sdk/internal/metrics"
	"github.com/murmur/chat-sdk/topic"
)

// statusUpdateTimeout bounds each fire-and-forget status-update RPC.
const statusUpdateTimeout = 30 * time.Second

// SetUserTyping publishes the local user's typing state for a room.
func (c *Client) SetUserTyping(roomID, topicID int64, typing bool) {
	c.post(func() {
		if !c.loadAccount() {
			return
		}
		c.checkAndConnect()
		payload := "0"
		if typing {
			payload = "1"
		}
		c.publish(topic.RoomTyping(roomID, topicID, c.me.Email), 0, false, []byte(payload))
	})
}

// SetUserDelivery acknowledges delivery of a comment: it publishes the
// delivery receipt and asynchronously persists the mark through the status
// updater.
func (c *Client) SetUserDelivery(roomID, topicID, commentID int64, commentUniqueID string) {
	c.post(func() {
		c.doSetDelivery(roomID, topicID, commentID, commentUniqueID)
	})
}

// SetUserRead marks a comment as read: it publishes the read receipt and
// asynchronously persists the mark through the status updater.
func (c *Client) SetUserRead(roomID, topicID, commentID int64, commentUniqueID string) {
	c.post(func() {
		if !c.loadAccount() {
			return
		}
		c.checkAndConnect()
		payload := fmt.Sprintf("%d:%s", commentID, commentUniqueID)
		c.publish(topic.RoomRead(roomID, topicID, c.me.Email), 0, false, []byte(payload))
		c.updateStatus(roomID, commentID, 0)
	})
}

// doSetDelivery is the loop-side body of SetUserDelivery, also invoked by
// the router when acking another user's comment.
func (c *Client) doSetDelivery(roomID, topicID, commentID int64, commentUniqueID string) {
	if !c.loadAccount() {
		return
	}
	c.checkAndConnect()
	payload := fmt.Sprintf("%d:%s", commentID, commentUniqueID)
	c.publish(topic.RoomDelivery(roomID, topicID, c.me.Email), 0, false, []byte(payload))
	c.updateStatus(roomID, 0, commentID)
}

// publishPresence publishes the local user's online flag with the current
// timestamp; presence messages are retained so late subscribers see the
// last known state.
func (c *Client) publishPresence(online bool) {
	if !c.loadAccount() {
		return
	}
	c.checkAndConnect()
	c.publish(topic.UserPresence(c.me.Email), 2, true, presencePayload(online, time.Now()))
}

// checkAndConnect lazily reconnects when the transport reports disconnected.
func (c *Client) checkAndConnect() {
	t := c.getTransport()
	if t == nil || !t.IsConnected() {
		c.doConnect()
	}
}

// publish sends a message now if connected, or queues it in the
// disconnected buffer for replay after the next successful connect.
func (c *Client) publish(topic string, qos byte, retained bool, payload []byte) {
	t := c.getTransport()
	if t == nil || !t.IsConnected() {
		c.buffer.Add(outboundMessage{topic: topic, qos: qos, retained: retained, payload: payload})
		return
	}
	d, err := t.Publish(topic, qos, retained, payload)
	if err != nil {
		c.buffer.Add(outboundMessage{topic: topic, qos: qos, retained: retained, payload: payload})
		return
	}
	c.trackPublish(d)
}

// flushBuffer replays publishes queued while the transport was down.
func (c *Client) flushBuffer() {
	queued := c.buffer.Drain()
	if len(queued) == 0 {
		return
	}
	t := c.getTransport()
	if t == nil {
		return
	}
	log.Printf("[realtime] flushing %d buffered publishes", len(queued))
	for _, m := range queued {
		d, err := t.Publish(m.topic, m.qos, m.retained, m.payload)
		if err != nil {
			log.Printf("[realtime] buffered publish to %s failed: %v", m.topic, err)
			continue
		}
		c.trackPublish(d)
	}
}

// trackPublish records an in-flight publish until the broker acknowledges
// it. The pending count is what the stall watchdog inspects.
func (c *Client) trackPublish(d Delivery) {
	id := c.nextPub
	c.nextPub++
	c.pending[id] = struct{}{}
	metrics.PendingPublishes.Set(float64(len(c.pending)))

	go func() {
		<-d.Done()
		if err := d.Err(); err != nil {
			log.Printf("[realtime] publish failed: %v", err)
		}
		c.post(func() {
			delete(c.pending, id)
			metrics.PendingPublishes.Set(float64(len(c.pending)))
		})
	}()
}

// updateStatus invokes the REST-style status collaborator off the control
// loop, ignoring its result except for logging failures.
func (c *Client) updateStatus(roomID, readCommentID, deliveredCommentID int64) {
	if c.deps.Status == nil {
		return
	}
	status := c.deps.Status
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), statusUpdateTimeout)
		defer cancel()
		if err := status.UpdateStatus(ctx, roomID, readCommentID, deliveredCommentID); err != nil {
			log.Printf("[realtime] status update room=%d failed: %v", roomID, err)
		}
	}()
}
