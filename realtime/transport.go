package realtime

// Message is a single inbound broker message handed to the router.
type Message struct {
	Topic   string
	Payload []byte
}

// Delivery reports completion of a single publish. Done is closed once the
// broker has acknowledged the message (or the attempt failed); Err is valid
// after Done is closed.
type Delivery interface {
	Done() <-chan struct{}
	Err() error
}

// WillMessage is registered at connect time and published by the broker on
// the client's behalf if the connection dies without a clean disconnect.
type WillMessage struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

// Handlers receive asynchronous transport notifications. Callbacks may be
// invoked from transport-owned goroutines and must not block.
type Handlers struct {
	OnConnect        func()
	OnConnectFailure func(err error)
	OnConnectionLost func(err error)
	OnMessage        func(msg Message)
}

// Transport is the capability the client drives the broker through. Connect
// is asynchronous: a nil return only means the attempt was issued, and the
// outcome arrives later through the Handlers. All other methods are safe to
// call from any goroutine.
type Transport interface {
	// Connect starts a connection attempt. A non-nil error means the
	// attempt could not even be issued (for example, the handle has been
	// closed); completion otherwise arrives via OnConnect/OnConnectFailure.
	Connect(will *WillMessage) error

	// Disconnect tears the connection down gracefully. Safe to call while
	// disconnected.
	Disconnect()

	// Close releases the handle permanently. A closed transport rejects
	// all further calls with ErrTransportClosed.
	Close()

	IsConnected() bool

	// Subscribe registers a topic filter. It fails with ErrNotConnected
	// when the transport is down; broker-side rejection is reported
	// asynchronously through connection loss.
	Subscribe(filter string, qos byte) error

	// Unsubscribe removes topic filters, best effort.
	Unsubscribe(filters ...string) error

	// Publish sends a message and returns a Delivery tracking its
	// acknowledgement.
	Publish(topic string, qos byte, retained bool, payload []byte) (Delivery, error)
}

// TransportFactory builds a fresh transport handle bound to the given
// handlers. A restart tears the old handle down and asks the factory for a
// new one.
type TransportFactory func(cfg Config, h Handlers) Transport
