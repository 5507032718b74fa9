package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/murmur/chat-sdk/chat"
)

// fakeDelivery is a manually completed Delivery.
type fakeDelivery struct {
	done chan struct{}
	err  error
}

func newFakeDelivery() *fakeDelivery {
	return &fakeDelivery{done: make(chan struct{})}
}

func (d *fakeDelivery) Done() <-chan struct{} { return d.done }
func (d *fakeDelivery) Err() error            { return d.err }
func (d *fakeDelivery) complete()             { close(d.done) }

type pubRecord struct {
	topic    string
	qos      byte
	retained bool
	payload  string
}

// fakeTransport is an in-memory Transport. In the default mode Connect
// succeeds synchronously (the handler posts onto the client's buffered
// control queue, so this cannot deadlock). failAll makes every attempt
// report an asynchronous failure; manual leaves attempts pending until
// completeConnect is called.
type fakeTransport struct {
	h Handlers

	mu         sync.Mutex
	failAll    bool
	manual     bool
	issueErr   error
	connected  bool
	closed     bool
	will       *WillMessage
	connects   int
	subs       []string
	unsubs     []string
	pubs       []pubRecord
	deliveries []*fakeDelivery
	autoAck    bool
}

func (f *fakeTransport) Connect(will *WillMessage) error {
	f.mu.Lock()
	if f.issueErr != nil {
		err := f.issueErr
		f.mu.Unlock()
		return err
	}
	f.connects++
	f.will = will
	fail, manual := f.failAll, f.manual
	if !fail && !manual {
		f.connected = true
	}
	f.mu.Unlock()

	if manual {
		return nil
	}
	if fail {
		f.h.OnConnectFailure(errors.New("connection refused"))
	} else {
		f.h.OnConnect()
	}
	return nil
}

// completeConnect resolves a pending manual connect attempt.
func (f *fakeTransport) completeConnect() {
	f.mu.Lock()
	f.connected = true
	f.mu.Unlock()
	f.h.OnConnect()
}

// lose simulates an asynchronous connection loss.
func (f *fakeTransport) lose() {
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
	f.h.OnConnectionLost(errors.New("broken pipe"))
}

// deliver injects an inbound message.
func (f *fakeTransport) deliver(topic string, payload string) {
	f.h.OnMessage(Message{Topic: topic, Payload: []byte(payload)})
}

func (f *fakeTransport) Disconnect() {
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
}

func (f *fakeTransport) Close() {
	f.mu.Lock()
	f.connected = false
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeTransport) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) Subscribe(filter string, qos byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return ErrNotConnected
	}
	f.subs = append(f.subs, filter)
	return nil
}

func (f *fakeTransport) Unsubscribe(filters ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubs = append(f.unsubs, filters...)
	return nil
}

func (f *fakeTransport) Publish(topic string, qos byte, retained bool, payload []byte) (Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return nil, ErrNotConnected
	}
	f.pubs = append(f.pubs, pubRecord{topic: topic, qos: qos, retained: retained, payload: string(payload)})
	d := newFakeDelivery()
	f.deliveries = append(f.deliveries, d)
	if f.autoAck {
		d.complete()
	}
	return d, nil
}

func (f *fakeTransport) setAutoAck(on bool) {
	f.mu.Lock()
	f.autoAck = on
	f.mu.Unlock()
}

func (f *fakeTransport) setFailAll(on bool) {
	f.mu.Lock()
	f.failAll = on
	f.mu.Unlock()
}

// completeAll resolves every outstanding delivery.
func (f *fakeTransport) completeAll() {
	f.mu.Lock()
	deliveries := append([]*fakeDelivery(nil), f.deliveries...)
	f.deliveries = nil
	f.mu.Unlock()
	for _, d := range deliveries {
		select {
		case <-d.done:
		default:
			d.complete()
		}
	}
}

func (f *fakeTransport) subCount(filter string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.subs {
		if s == filter {
			n++
		}
	}
	return n
}

func (f *fakeTransport) pubsTo(topic string) []pubRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []pubRecord
	for _, p := range f.pubs {
		if p.topic == topic {
			out = append(out, p)
		}
	}
	return out
}

// fakeAccounts is a settable AccountProvider.
type fakeAccounts struct {
	mu   sync.Mutex
	acct chat.Account
	ok   bool
}

func (f *fakeAccounts) Account() (chat.Account, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.acct, f.ok
}

// fakeApp is a settable foreground indicator.
type fakeApp struct {
	mu         sync.Mutex
	foreground bool
}

func (f *fakeApp) Foreground() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.foreground
}

func (f *fakeApp) set(fg bool) {
	f.mu.Lock()
	f.foreground = fg
	f.mu.Unlock()
}

// captureSink records every emitted event.
type captureSink struct {
	mu     sync.Mutex
	events []chat.Event
}

func (s *captureSink) Publish(ev chat.Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *captureSink) all() []chat.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.Event(nil), s.events...)
}

// captureStatus records UpdateStatus calls on a channel so tests can wait
// for the asynchronous invocation.
type captureStatus struct {
	calls chan [3]int64
}

func newCaptureStatus() *captureStatus {
	return &captureStatus{calls: make(chan [3]int64, 16)}
}

func (s *captureStatus) UpdateStatus(_ context.Context, roomID, readID, deliveredID int64) error {
	s.calls <- [3]int64{roomID, readID, deliveredID}
	return nil
}

// fixture wires a client to fake collaborators. The transport factory
// records every handle it creates, one per generation.
type fixture struct {
	t        *testing.T
	c        *Client
	accounts *fakeAccounts
	app      *fakeApp
	sink     *captureSink
	status   *captureStatus

	mu      sync.Mutex
	fakes   []*fakeTransport
	failAll bool
	manual  bool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{
		t: t,
		accounts: &fakeAccounts{
			acct: chat.Account{Email: "bob@x.com", Token: "tok-abc", Name: "Bob"},
			ok:   true,
		},
		app:    &fakeApp{foreground: true},
		sink:   &captureSink{},
		status: newCaptureStatus(),
	}

	cfg := DefaultConfig()
	cfg.BrokerURL = "tcp://broker.test:1883"
	cfg.ClientID = "test-client"

	fx.c = NewClient(cfg, Deps{
		Accounts: fx.accounts,
		App:      fx.app,
		Status:   fx.status,
		Sink:     fx.sink,
		Transport: func(_ Config, h Handlers) Transport {
			fx.mu.Lock()
			defer fx.mu.Unlock()
			ft := &fakeTransport{h: h, autoAck: true, failAll: fx.failAll, manual: fx.manual}
			fx.fakes = append(fx.fakes, ft)
			return ft
		},
	})
	t.Cleanup(fx.c.Close)
	return fx
}

// setManual makes transports created from now on leave connect attempts
// pending until completeConnect is called.
func (fx *fixture) setManual(on bool) {
	fx.mu.Lock()
	fx.manual = on
	fx.mu.Unlock()
}

// setFailAll makes transports created from now on fail every connect
// attempt asynchronously.
func (fx *fixture) setFailAll(on bool) {
	fx.mu.Lock()
	fx.failAll = on
	fx.mu.Unlock()
}

// transport returns the most recently created fake handle.
func (fx *fixture) transport() *fakeTransport {
	fx.mu.Lock()
	defer fx.mu.Unlock()
	if len(fx.fakes) == 0 {
		fx.t.Fatal("no transport created yet")
	}
	return fx.fakes[len(fx.fakes)-1]
}

func (fx *fixture) transportCount() int {
	fx.mu.Lock()
	defer fx.mu.Unlock()
	return len(fx.fakes)
}

// run executes fn on the control loop and waits for it.
func (fx *fixture) run(fn func()) {
	done := make(chan struct{})
	fx.c.post(func() {
		fn()
		close(done)
	})
	<-done
}

// settle drains the control loop a few times so that work queued by
// previously processed calls (connect completions, replays) has run.
func (fx *fixture) settle() {
	for i := 0; i < 4; i++ {
		fx.run(func() {})
	}
}
