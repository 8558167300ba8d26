// Package transport implements the duplex protocol client: JSON
// control messages and tagged binary audio frames over a websocket,
// with liveness probing and exponential-backoff reconnection.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vanch007/voiceflow-sub001/pkg/configutil"
	"github.com/vanch007/voiceflow-sub001/pkg/errorsx"
	"github.com/vanch007/voiceflow-sub001/pkg/logging"
	"github.com/vanch007/voiceflow-sub001/pkg/metrics"
	"github.com/vanch007/voiceflow-sub001/pkg/protocol"
	"github.com/vanch007/voiceflow-sub001/pkg/resilience"
)

// State is the connection lifecycle phase. Transitions have a single
// writer: every change goes through setState under the client mutex.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

// ErrNotConnected rejects sends while the channel is down.
var ErrNotConnected = errors.New("transport not connected")

// Conn is the subset of the websocket connection the client uses,
// narrowed so tests can substitute a fake.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Dialer opens the underlying channel.
type Dialer func(ctx context.Context, rawURL string) (Conn, error)

func wsDialer(ctx context.Context, rawURL string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

type Config struct {
	URL string

	// SettleDelay is how long to wait after the channel opens before
	// probing. Probing immediately after open races the handshake and
	// can classify a live connection as failed, so the delay must
	// cover handshake completion.
	SettleDelay time.Duration

	ProbeTimeout   time.Duration
	WriteTimeout   time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func (c Config) withDefaults() Config {
	c.SettleDelay = configutil.DurationValue(c.SettleDelay, 500*time.Millisecond)
	c.ProbeTimeout = configutil.DurationValue(c.ProbeTimeout, 3*time.Second)
	c.WriteTimeout = configutil.DurationValue(c.WriteTimeout, 5*time.Second)
	c.InitialBackoff = configutil.DurationValue(c.InitialBackoff, 3*time.Second)
	c.MaxBackoff = configutil.DurationValue(c.MaxBackoff, 30*time.Second)
	return c
}

// Client multiplexes control messages and audio frames to the
// transcription backend.
type Client struct {
	cfg     Config
	dial    Dialer
	logger  *slog.Logger
	obs     metrics.Observer
	backoff *resilience.Backoff

	mu          sync.Mutex
	state       State
	conn        Conn
	connGen     uint64
	manual      bool
	retryCancel context.CancelFunc
	lastRetryIn time.Duration

	writeMu sync.Mutex

	onMessage func(protocol.ServerMessage)
	onState   func(State)
	onError   func(error)
}

func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg:     cfg,
		dial:    wsDialer,
		logger:  logging.NewComponentLogger(nil, "transport"),
		obs:     metrics.NoopObserver{},
		backoff: resilience.NewBackoff(cfg.InitialBackoff, cfg.MaxBackoff),
		state:   StateDisconnected,
	}
}

// SetDialer substitutes the channel opener; tests only.
func (c *Client) SetDialer(d Dialer) { c.dial = d }

func (c *Client) SetObserver(obs metrics.Observer) {
	if obs != nil {
		c.obs = obs
	}
}

// OnMessage registers the inbound control-message consumer. Delivered
// on the read goroutine.
func (c *Client) OnMessage(fn func(protocol.ServerMessage)) { c.onMessage = fn }

// OnStateChange registers the connection-state observer.
func (c *Client) OnStateChange(fn func(State)) { c.onState = fn }

// OnError registers the consumer for unrecoverable failures discovered
// inside the retry loop, which have no caller to return to.
func (c *Client) OnError(fn func(error)) { c.onError = fn }

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastRetryDelay reports the backoff delay of the most recently
// scheduled reconnect attempt.
func (c *Client) LastRetryDelay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRetryIn
}

// Connect opens the channel: dial, settle, probe. A fresh Connect
// resets the backoff counter and cancels any pending retry task. On a
// recoverable failure the retry loop is armed and Connect returns nil
// (the failure is observable through state callbacks only);
// unrecoverable failures are returned once and nothing is retried.
func (c *Client) Connect(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	u, err := url.Parse(c.cfg.URL)
	if err != nil || u.Host == "" || (u.Scheme != "ws" && u.Scheme != "wss") {
		return errorsx.Wrap(ErrMalformedURL, errorsx.ReasonTransportURL)
	}

	c.mu.Lock()
	c.manual = false
	c.cancelRetryLocked()
	c.mu.Unlock()
	c.backoff.Reset()

	err = c.attempt(ctx, StateConnecting)
	if err == nil {
		return nil
	}
	if !Recoverable(err) {
		c.setState(StateDisconnected)
		return errorsx.Wrap(err, errorsx.ReasonTransportDial)
	}
	c.scheduleRetry()
	return nil
}

// Disconnect tears the channel down for good: no reconnection will be
// attempted until the next Connect call.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	c.manual = true
	c.cancelRetryLocked()
	conn := c.conn
	c.conn = nil
	c.connGen++
	c.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
	}
	c.setState(StateDisconnected)
	return err
}

// SendControl marshals and sends one JSON control envelope.
func (c *Client) SendControl(msg any) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonProtocolEncode)
	}
	return c.write(websocket.TextMessage, raw)
}

// SendAudio encodes samples into a tagged binary frame and sends it.
func (c *Client) SendAudio(samples []float32, format protocol.FrameFormat) error {
	raw, err := protocol.EncodeAudioFrame(samples, format)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonProtocolEncode)
	}
	return c.write(websocket.BinaryMessage, raw)
}

func (c *Client) write(messageType int, data []byte) error {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == StateConnected
	c.mu.Unlock()
	if conn == nil || !connected {
		return errorsx.Wrap(ErrNotConnected, errorsx.ReasonTransportSend)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteMessage(messageType, data); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonTransportSend)
	}
	return nil
}

// attempt runs one full connect cycle: open, settle, probe.
func (c *Client) attempt(ctx context.Context, via State) error {
	c.setState(via)

	conn, err := c.dial(ctx, c.cfg.URL)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonTransportDial)
	}

	// Let the handshake finish before probing (see Config.SettleDelay).
	select {
	case <-ctx.Done():
		_ = conn.Close()
		return ctx.Err()
	case <-time.After(c.cfg.SettleDelay):
	}

	pong := make(chan struct{}, 1)
	conn.SetPongHandler(func(string) error {
		select {
		case pong <- struct{}{}:
		default:
		}
		return nil
	})

	c.mu.Lock()
	c.conn = conn
	c.connGen++
	gen := c.connGen
	c.mu.Unlock()

	// Pongs only surface while a reader is pumping the connection.
	go c.readLoop(conn, gen)

	deadline := time.Now().Add(c.cfg.ProbeTimeout)
	if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
		c.dropConn(conn, gen)
		return errorsx.Wrap(err, errorsx.ReasonTransportProbe)
	}
	select {
	case <-pong:
	case <-ctx.Done():
		c.dropConn(conn, gen)
		return ctx.Err()
	case <-time.After(c.cfg.ProbeTimeout):
		c.dropConn(conn, gen)
		return errorsx.Wrap(errors.New("liveness probe timed out"), errorsx.ReasonTransportProbe)
	}

	c.backoff.Reset()
	c.setState(StateConnected)
	c.logger.Info("transport_connected", "url", c.cfg.URL)
	return nil
}

// dropConn closes a half-built connection and detaches its read loop.
func (c *Client) dropConn(conn Conn, gen uint64) {
	c.mu.Lock()
	if c.connGen == gen {
		c.conn = nil
		c.connGen++
	}
	c.mu.Unlock()
	_ = conn.Close()
}

func (c *Client) readLoop(conn Conn, gen uint64) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			c.handleReadFailure(gen, err)
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		msg, err := protocol.DecodeServerMessage(data)
		if err != nil {
			c.logger.Warn("transport_bad_message",
				"reason_code", string(errorsx.Reason(err)),
				"error", err.Error())
			continue
		}
		if fn := c.onMessage; fn != nil {
			fn(msg)
		}
	}
}

// handleReadFailure is the internal disconnect handler: it always
// notifies observers of the state change, and re-arms reconnection only
// when the failure is recoverable and the client was not manually
// disconnected.
func (c *Client) handleReadFailure(gen uint64, err error) {
	c.mu.Lock()
	stale := gen != c.connGen
	manual := c.manual
	if !stale {
		c.conn = nil
		c.connGen++
	}
	c.mu.Unlock()
	if stale || manual {
		return
	}

	c.logger.Warn("transport_connection_lost",
		"reason_code", string(errorsx.ReasonTransportClosed),
		"error", err.Error())

	if Recoverable(err) {
		c.scheduleRetry()
		return
	}
	c.setState(StateDisconnected)
	c.surface(errorsx.Wrap(err, errorsx.ReasonTransportClosed))
}

// scheduleRetry arms one background reconnect attempt after the current
// backoff delay; a pending retry task is cancelled first so two cycles
// never race to set state.
func (c *Client) scheduleRetry() {
	delay := c.backoff.Next()

	c.mu.Lock()
	if c.manual {
		c.mu.Unlock()
		return
	}
	c.cancelRetryLocked()
	ctx, cancel := context.WithCancel(context.Background())
	c.retryCancel = cancel
	c.lastRetryIn = delay
	c.mu.Unlock()

	c.setState(StateReconnecting)
	c.logger.Info("transport_retry_scheduled", "delay", delay.String())
	c.obs.RecordEvent(metrics.Event{
		Name:  metrics.EventReconnectRetry,
		Time:  time.Now(),
		Value: delay.Seconds(),
	})

	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		err := c.attempt(ctx, StateReconnecting)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		if Recoverable(err) {
			c.scheduleRetry()
			return
		}
		c.setState(StateDisconnected)
		c.surface(err)
	}()
}

func (c *Client) cancelRetryLocked() {
	if c.retryCancel != nil {
		c.retryCancel()
		c.retryCancel = nil
	}
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	fn := c.onState
	c.mu.Unlock()

	c.obs.RecordEvent(metrics.Event{
		Name: metrics.EventTransportState,
		Time: time.Now(),
		Tags: map[string]string{"state": string(s)},
	})
	if fn != nil {
		fn(s)
	}
}

func (c *Client) surface(err error) {
	if c.onError != nil {
		c.onError(err)
	} else {
		c.logger.Error("transport_unrecoverable",
			"reason_code", string(errorsx.Reason(err)),
			"error", err.Error())
	}
}
