package realtime

import (
	"log"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/murmur/chat-sdk/chat"
	"github.com/murmur/chat-sdk/internal/metrics"
	"github.com/murmur/chat-sdk/topic"
)

// Deps are the collaborators the client is wired with at construction.
// Accounts is required; the rest may be nil, disabling the corresponding
// side effect.
type Deps struct {
	Accounts  AccountProvider
	App       AppState      // nil means always foreground
	Status    StatusUpdater // nil disables REST status updates
	Sink      Sink          // nil discards emitted events
	Transport TransportFactory
}

// Client is the realtime core. One instance exists per authenticated
// session; construct it with NewClient and release it with Close.
type Client struct {
	cfg  Config
	deps Deps

	calls chan func()
	done  chan struct{}
	once  sync.Once

	state atomic.Int32

	// transport is the only field shared with other goroutines; everything
	// below is owned by the control loop.
	mu        sync.Mutex
	transport Transport

	gen            uint64
	me             chat.Account
	connecting     bool
	failures       int64
	reconnectTimer *time.Timer
	commentTimer   *time.Timer
	rooms          map[int64]*roomSub
	users          map[string]*userSub
	pending        map[uint64]struct{}
	nextPub        uint64
	buffer         *outboundBuffer
	watchdogStop   chan struct{}
	offlineTicks   int
}

// NewClient constructs a client and starts its control loop and presence
// heartbeat. It does not connect; call Connect once an account is available.
func NewClient(cfg Config, deps Deps) *Client {
	if deps.Transport == nil {
		deps.Transport = NewMQTTTransport
	}
	defaults := DefaultConfig()
	if cfg.RetryPeriod <= 0 {
		cfg.RetryPeriod = defaults.RetryPeriod
	}
	if cfg.FallbackPeriod <= 0 {
		cfg.FallbackPeriod = defaults.FallbackPeriod
	}
	if cfg.HeartbeatPeriod <= 0 {
		cfg.HeartbeatPeriod = defaults.HeartbeatPeriod
	}
	if cfg.MaxPendingPublishes <= 0 {
		cfg.MaxPendingPublishes = defaults.MaxPendingPublishes
	}
	if cfg.OutboundBufferSize <= 0 {
		cfg.OutboundBufferSize = defaults.OutboundBufferSize
	}
	c := &Client{
		cfg:     cfg,
		deps:    deps,
		calls:   make(chan func(), 128),
		done:    make(chan struct{}),
		rooms:   make(map[int64]*roomSub),
		users:   make(map[string]*userSub),
		pending: make(map[uint64]struct{}),
		buffer:  newOutboundBuffer(cfg.OutboundBufferSize),
	}
	go c.run()
	c.startHeartbeat()
	return c
}

// run is the control loop. All client state except the transport pointer is
// touched only from here.
func (c *Client) run() {
	for {
		select {
		case fn := <-c.calls:
			fn()
		case <-c.done:
			return
		}
	}
}

// post hands a closure to the control loop without blocking the caller
// beyond channel admission.
func (c *Client) post(fn func()) {
	select {
	case c.calls <- fn:
	case <-c.done:
	}
}

// Connect asks the client to establish the broker connection. It is a no-op
// when a connect is already in flight or no account is configured.
func (c *Client) Connect() {
	c.post(c.doConnect)
}

// Disconnect publishes offline presence best-effort and tears the
// connection down. Safe to call when already disconnected.
func (c *Client) Disconnect() {
	c.post(c.doDisconnect)
}

// RestartConnection performs an idempotent hard reset: every scheduled
// callback is cancelled, the transport handle is rebuilt, and a fresh
// connect is issued.
func (c *Client) RestartConnection() {
	c.post(c.doRestart)
}

// IsConnected reports whether the transport currently holds a live broker
// connection.
func (c *Client) IsConnected() bool {
	t := c.getTransport()
	return t != nil && t.IsConnected()
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	return ConnectionState(c.state.Load())
}

// Close disconnects and stops the control loop, heartbeat, and watchdog.
// The client cannot be reused afterwards.
func (c *Client) Close() {
	c.once.Do(func() {
		stopped := make(chan struct{})
		c.post(func() {
			c.doDisconnect()
			close(stopped)
		})
		<-stopped
		close(c.done)
	})
}

func (c *Client) setState(s ConnectionState) {
	c.state.Store(int32(s))
	metrics.ConnectionState.Set(float64(s))
}

func (c *Client) getTransport() Transport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transport
}

func (c *Client) setTransport(t Transport) {
	c.mu.Lock()
	c.transport = t
	c.mu.Unlock()
}

// freshTransport replaces the transport handle and bumps the generation so
// that stale notifications from the old handle are discarded.
func (c *Client) freshTransport() Transport {
	c.gen++
	t := c.deps.Transport(c.cfg, c.handlers(c.gen))
	c.setTransport(t)
	return t
}

// handlers binds transport notifications to the control loop. Notifications
// from a superseded transport generation are dropped.
func (c *Client) handlers(gen uint64) Handlers {
	guard := func(fn func()) {
		c.post(func() {
			if gen != c.gen {
				return
			}
			fn()
		})
	}
	return Handlers{
		OnConnect: func() { guard(c.onConnected) },
		OnConnectFailure: func(err error) {
			guard(func() { c.onConnectionDown("connect failed", err) })
		},
		OnConnectionLost: func(err error) {
			guard(func() { c.onConnectionDown("connection lost", err) })
		},
		OnMessage: func(msg Message) {
			guard(func() { c.route(msg) })
		},
	}
}

// loadAccount refreshes the cached local account from the provider.
func (c *Client) loadAccount() bool {
	acct, ok := c.deps.Accounts.Account()
	if !ok {
		return false
	}
	c.me = acct
	return true
}

func (c *Client) doConnect() {
	if c.connecting {
		return
	}
	if t := c.getTransport(); t != nil && t.IsConnected() {
		return
	}
	if !c.loadAccount() {
		return
	}

	c.connecting = true
	c.setState(StateConnecting)

	t := c.getTransport()
	if t == nil {
		t = c.freshTransport()
	}
	will := &WillMessage{
		Topic:    topic.UserPresence(c.me.Email),
		Payload:  presencePayload(false, time.Now()),
		QoS:      2,
		Retained: true,
	}
	if err := t.Connect(will); err != nil {
		// The handle could not even issue the attempt; rebuild it.
		log.Printf("[realtime] connect could not be issued: %v", err)
		c.doRestart()
		return
	}
	log.Printf("[realtime] connecting to %s as %s", c.cfg.BrokerURL, c.me.Email)
}

// onConnected runs after a successful (re)connect: the backoff counter
// resets, buffered publishes flush, the comment stream and every remembered
// room/user subscription replay, and the stall watchdog arms.
func (c *Client) onConnected() {
	log.Printf("[realtime] connected")
	c.connecting = false
	c.failures = 0
	c.setState(StateConnected)

	c.pending = make(map[uint64]struct{})
	metrics.PendingPublishes.Set(0)

	c.flushBuffer()
	c.listenComment()
	for _, sub := range c.rooms {
		c.subscribeRoom(sub)
	}
	for _, sub := range c.users {
		c.subscribeUser(sub)
	}
	c.cancelTimer(&c.reconnectTimer)
	c.startWatchdog()
}

// onConnectionDown handles both a failed connect attempt and an
// asynchronous connection loss: the failure counter grows and a reconnect
// is scheduled with linearly increasing delay.
func (c *Client) onConnectionDown(reason string, err error) {
	c.connecting = false
	c.setState(StateDisconnected)
	c.stopWatchdog()

	c.failures++
	delay := c.cfg.RetryPeriod * time.Duration(c.failures)
	log.Printf("[realtime] %s, retrying in %s: %v", reason, delay, err)
	c.scheduleReconnect(delay)
}

func (c *Client) scheduleReconnect(delay time.Duration) {
	c.cancelTimer(&c.reconnectTimer)
	metrics.ReconnectsTotal.Inc()
	c.reconnectTimer = time.AfterFunc(delay, func() {
		c.post(c.doConnect)
	})
}

func (c *Client) doRestart() {
	log.Printf("[realtime] restarting connection")
	metrics.RestartsTotal.Inc()

	c.connecting = false
	c.stopWatchdog()
	c.cancelAllTimers()

	if t := c.getTransport(); t != nil {
		t.Disconnect()
		t.Close()
	}
	c.pending = make(map[uint64]struct{})
	metrics.PendingPublishes.Set(0)
	c.setState(StateDisconnected)

	c.freshTransport()
	c.doConnect()
}

func (c *Client) doDisconnect() {
	log.Printf("[realtime] disconnecting")
	c.publishPresence(false)

	c.connecting = false
	c.stopWatchdog()
	c.cancelAllTimers()

	if t := c.getTransport(); t != nil {
		t.Disconnect()
		t.Close()
	}
	c.setTransport(nil)
	c.gen++ // drop notifications still in flight from the old handle
	c.pending = make(map[uint64]struct{})
	metrics.PendingPublishes.Set(0)
	c.setState(StateDisconnected)
}

func (c *Client) cancelAllTimers() {
	c.cancelTimer(&c.reconnectTimer)
	c.cancelTimer(&c.commentTimer)
	for _, sub := range c.rooms {
		c.cancelTimer(&sub.retry)
	}
	for _, sub := range c.users {
		c.cancelTimer(&sub.retry)
	}
}

func (c *Client) cancelTimer(t **time.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

// --- stall watchdog ---

// startWatchdog arms the periodic check that force-restarts a connection
// presumed wedged. It is armed only after a successful connect.
func (c *Client) startWatchdog() {
	c.stopWatchdog()
	stop := make(chan struct{})
	c.watchdogStop = stop
	go func() {
		ticker := time.NewTicker(c.cfg.FallbackPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-c.done:
				return
			case <-ticker.C:
				c.post(c.checkPending)
			}
		}
	}()
}

func (c *Client) stopWatchdog() {
	if c.watchdogStop != nil {
		close(c.watchdogStop)
		c.watchdogStop = nil
	}
}

// checkPending restarts the connection when too many publishes sit
// unacknowledged. The restart clears the pending set and disarms the
// watchdog, so a wedged connection triggers exactly one restart per
// incident.
func (c *Client) checkPending() {
	if c.watchdogStop == nil {
		return
	}
	if len(c.pending) >= c.cfg.MaxPendingPublishes {
		log.Printf("[realtime] %d unacknowledged publishes, forcing restart", len(c.pending))
		c.doRestart()
	}
}

// presencePayload encodes an online flag and timestamp as the wire presence
// payload, "{0|1}:{epochMillis}".
func presencePayload(online bool, at time.Time) []byte {
	flag := "0"
	if online {
		flag = "1"
	}
	return []byte(flag + ":" + strconv.FormatInt(at.UTC().UnixMilli(), 10))
}
