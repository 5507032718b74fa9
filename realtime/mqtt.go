package realtime

import (
	"log"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// mqttTransport adapts an Eclipse Paho client to the Transport capability.
// The underlying client is built lazily on the first Connect so the will
// message can be included in the connect options.
type mqttTransport struct {
	cfg      Config
	handlers Handlers

	mu     sync.Mutex
	client mqtt.Client
	closed bool
}

// NewMQTTTransport returns a Transport backed by an MQTT client. The
// connection is configured with session persistence across reconnects and
// with automatic reconnection disabled: the realtime client owns the entire
// retry policy.
func NewMQTTTransport(cfg Config, h Handlers) Transport {
	return &mqttTransport{cfg: cfg, handlers: h}
}

func (t *mqttTransport) Connect(will *WillMessage) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrTransportClosed
	}
	if t.client == nil {
		t.client = mqtt.NewClient(t.options(will))
	}
	client := t.client
	t.mu.Unlock()

	token := client.Connect()
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			if t.handlers.OnConnectFailure != nil {
				t.handlers.OnConnectFailure(err)
			}
			return
		}
		if t.handlers.OnConnect != nil {
			t.handlers.OnConnect()
		}
	}()
	return nil
}

func (t *mqttTransport) options(will *WillMessage) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker(t.cfg.BrokerURL).
		SetClientID(t.cfg.ClientID).
		SetCleanSession(false).
		SetAutoReconnect(false).
		SetConnectTimeout(t.cfg.ConnectTimeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			if t.handlers.OnConnectionLost != nil {
				t.handlers.OnConnectionLost(err)
			}
		}).
		SetDefaultPublishHandler(func(_ mqtt.Client, m mqtt.Message) {
			if t.handlers.OnMessage != nil {
				t.handlers.OnMessage(Message{Topic: m.Topic(), Payload: m.Payload()})
			}
		})
	if will != nil {
		opts.SetBinaryWill(will.Topic, will.Payload, will.QoS, will.Retained)
	}
	if t.cfg.StoreDir != "" {
		// In-flight messages survive process restarts.
		opts.SetStore(mqtt.NewFileStore(t.cfg.StoreDir))
	}
	return opts
}

func (t *mqttTransport) Disconnect() {
	if client := t.get(); client != nil && client.IsConnected() {
		client.Disconnect(250)
	}
}

func (t *mqttTransport) Close() {
	t.mu.Lock()
	client := t.client
	t.client = nil
	t.closed = true
	t.mu.Unlock()

	if client != nil && client.IsConnected() {
		client.Disconnect(250)
	}
}

func (t *mqttTransport) IsConnected() bool {
	client := t.get()
	return client != nil && client.IsConnected()
}

func (t *mqttTransport) Subscribe(filter string, qos byte) error {
	client := t.get()
	if client == nil || !client.IsConnected() {
		return ErrNotConnected
	}
	token := client.Subscribe(filter, qos, nil)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			log.Printf("[mqtt] subscribe %s failed: %v", filter, err)
		}
	}()
	return nil
}

func (t *mqttTransport) Unsubscribe(filters ...string) error {
	client := t.get()
	if client == nil || !client.IsConnected() {
		return ErrNotConnected
	}
	token := client.Unsubscribe(filters...)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			log.Printf("[mqtt] unsubscribe %v failed: %v", filters, err)
		}
	}()
	return nil
}

func (t *mqttTransport) Publish(topic string, qos byte, retained bool, payload []byte) (Delivery, error) {
	client := t.get()
	if client == nil {
		return nil, ErrNotConnected
	}
	return pahoDelivery{client.Publish(topic, qos, retained, payload)}, nil
}

func (t *mqttTransport) get() mqtt.Client {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client
}

// pahoDelivery exposes a Paho token as a Delivery.
type pahoDelivery struct {
	token mqtt.Token
}

func (d pahoDelivery) Done() <-chan struct{} { return d.token.Done() }
func (d pahoDelivery) Err() error            { return d.token.Error() }
