package realtime

import "github.com/murmur/chat-sdk/internal/metrics"

// outboundMessage is a publish issued while the transport was down, queued
// for replay once connectivity returns.
type outboundMessage struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// outboundBuffer is a fixed-capacity ring of queued publishes. When full,
// the oldest message is overwritten. It is owned by the control loop and
// needs no locking.
type outboundBuffer struct {
	items []outboundMessage
	pos   int
	count int
}

func newOutboundBuffer(size int) *outboundBuffer {
	return &outboundBuffer{items: make([]outboundMessage, size)}
}

// Add queues a message, dropping the oldest one if the buffer is full.
func (b *outboundBuffer) Add(msg outboundMessage) {
	if b.count == len(b.items) {
		metrics.DroppedPublishes.Inc()
	}
	b.items[b.pos] = msg
	b.pos = (b.pos + 1) % len(b.items)
	if b.count < len(b.items) {
		b.count++
	}
}

// Drain returns the queued messages in chronological order and empties the
// buffer.
func (b *outboundBuffer) Drain() []outboundMessage {
	out := make([]outboundMessage, b.count)
	start := (b.pos - b.count + len(b.items)) % len(b.items)
	for i := 0; i < b.count; i++ {
		out[i] = b.items[(start+i)%len(b.items)]
	}
	b.pos = 0
	b.count = 0
	return out
}

// Len returns the number of queued messages.
func (b *outboundBuffer) Len() int {
	return b.count
}
