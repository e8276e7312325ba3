package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/jet-ipc/jet-go/pkg/fetch"
	"github.com/jet-ipc/jet-go/pkg/log"
	"github.com/jet-ipc/jet-go/pkg/wire"
)

// Client errors.
var (
	ErrClientClosed   = errors.New("client is closed")
	ErrRequestTimeout = errors.New("request timed out")
	ErrNotConnected   = errors.New("not connected")
	ErrInvalidURL     = errors.New("invalid daemon url")
)

// Default timeouts.
const (
	DefaultRequestTimeout   = 5 * time.Second
	DefaultWriteTimeout     = 10 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
)

// NotificationHandler receives inbound notifications in arrival order.
type NotificationHandler func(n *wire.Notification)

// Config configures a daemon connection.
type Config struct {
	// URL is the daemon websocket endpoint (ws:// or wss://).
	URL string

	// Header is sent with the websocket handshake.
	Header http.Header

	// TLS configures wss connections. Nil uses the system defaults.
	TLS *TLSConfig

	// HandshakeTimeout bounds the websocket handshake (default: 10s).
	HandshakeTimeout time.Duration

	// RequestTimeout bounds calls that carry no timeout of their own (default: 5s).
	RequestTimeout time.Duration

	// WriteTimeout bounds each frame write (default: 10s).
	WriteTimeout time.Duration

	// KeepAlive configuration. Zero fields take the defaults.
	KeepAlive KeepAliveConfig

	// Logger is the optional logger for debug output.
	Logger *slog.Logger

	// ProtocolLogger receives frame, message, control and state events.
	ProtocolLogger log.Logger
}

func (c *Config) applyDefaults() {
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.KeepAlive.PingInterval == 0 {
		c.KeepAlive.PingInterval = DefaultPingInterval
	}
	if c.KeepAlive.PongTimeout == 0 {
		c.KeepAlive.PongTimeout = DefaultPongTimeout
	}
}

// ValidateURL checks that raw is an absolute ws or wss URL.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%w: scheme must be ws or wss, got %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}

// pendingCall is a request awaiting its response.
type pendingCall struct {
	ch     chan *wire.Response
	sentAt time.Time
}

// Client is a JSON-RPC client for one Jet daemon connection.
// It implements fetch.Invoker.
type Client struct {
	config    Config
	conn      *websocket.Conn
	connID    string
	keepAlive *keepAlive

	state   atomic.Int32
	writeMu sync.Mutex

	nextMsgID atomic.Int64

	pendingMu sync.Mutex
	pending   map[int]*pendingCall
	closed    bool
	closeErr  error
	closeCh   chan struct{}

	queue     *notificationQueue
	handlerMu sync.RWMutex
	handler   NotificationHandler

	group     *errgroup.Group
	cancel    context.CancelFunc
	closing   atomic.Bool
	closeOnce sync.Once
}

var _ fetch.Invoker = (*Client)(nil)

// Dial connects to the daemon at config.URL and starts the client's
// read, keep-alive and notification goroutines.
func Dial(ctx context.Context, config Config) (*Client, error) {
	if err := ValidateURL(config.URL); err != nil {
		return nil, err
	}
	config.applyDefaults()

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: config.HandshakeTimeout,
	}
	if config.TLS != nil {
		tlsConf, err := NewClientTLSConfig(config.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		dialer.TLSClientConfig = tlsConf
	}

	c := &Client{
		config:  config,
		connID:  uuid.New().String(),
		pending: make(map[int]*pendingCall),
		closeCh: make(chan struct{}),
		queue:   newNotificationQueue(),
	}
	c.setState(StateConnecting, "dial")

	conn, _, err := dialer.DialContext(ctx, config.URL, config.Header)
	if err != nil {
		c.setState(StateDisconnected, err.Error())
		return nil, fmt.Errorf("dial %s: %w", config.URL, err)
	}
	c.conn = conn

	conn.SetPongHandler(c.handlePong)
	conn.SetCloseHandler(c.handleClose)
	c.extendReadDeadline()

	loopCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	group, gctx := errgroup.WithContext(loopCtx)
	c.group = group

	c.setState(StateConnected, "")
	c.debugLog("connected", "url", config.URL, "conn_id", c.connID)

	if config.KeepAlive.Enabled() {
		c.keepAlive = newKeepAlive(config.KeepAlive.PingInterval, c.sendPing)
	}

	group.Go(c.readLoop)
	group.Go(func() error { return c.notifyLoop(gctx) })
	if c.keepAlive != nil {
		group.Go(func() error { return c.keepAlive.run(gctx) })
	}

	return c, nil
}

// ConnectionID returns the UUID assigned to this connection.
func (c *Client) ConnectionID() string {
	return c.connID
}

// URL returns the daemon URL.
func (c *Client) URL() string {
	return c.config.URL
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	return ConnectionState(c.state.Load())
}

// KeepAliveStats returns ping statistics. The zero value is returned when
// pings are disabled.
func (c *Client) KeepAliveStats() KeepAliveStats {
	if c.keepAlive == nil {
		return KeepAliveStats{}
	}
	return c.keepAlive.stats()
}

// OnNotification sets the handler for inbound notifications.
// Pass nil to drop notifications.
func (c *Client) OnNotification(handler NotificationHandler) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.handler = handler
}

// Invoke sends call as a JSON-RPC request and waits for the response.
//
// call.OnResponse, if set, is invoked exactly once: with the result on
// success, with the encoded error object on an error response, and with a
// nil result when the call fails locally. An error response is returned
// together with its *wire.Error.
func (c *Client) Invoke(call fetch.Call) (*wire.Response, error) {
	id := int(c.nextMsgID.Add(1))
	timeout := call.Timeout
	if timeout <= 0 {
		timeout = c.config.RequestTimeout
	}

	data, err := wire.EncodeRequest(&wire.Request{ID: id, Method: call.Method, Params: call.Params})
	if err != nil {
		notify(call.OnResponse, false, nil)
		return nil, err
	}

	p := &pendingCall{ch: make(chan *wire.Response, 1), sentAt: time.Now()}

	c.pendingMu.Lock()
	if c.closed {
		err := c.closeErr
		c.pendingMu.Unlock()
		notify(call.OnResponse, false, nil)
		return nil, err
	}
	c.pending[id] = p
	c.pendingMu.Unlock()

	c.logRequest(id, call.Method, call.Params)
	if err := c.send(data); err != nil {
		c.removePending(id)
		notify(call.OnResponse, false, nil)
		return nil, fmt.Errorf("send %s: %w", call.Method, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp, ok := <-p.ch:
		if !ok {
			notify(call.OnResponse, false, nil)
			return nil, c.closeError()
		}
		if resp.Error != nil {
			encoded, _ := json.Marshal(resp.Error)
			notify(call.OnResponse, false, encoded)
			return resp, resp.Error
		}
		notify(call.OnResponse, true, resp.Result)
		return resp, nil
	case <-timer.C:
		c.removePending(id)
		notify(call.OnResponse, false, nil)
		return nil, fmt.Errorf("%w: %s after %v", ErrRequestTimeout, call.Method, timeout)
	}
}

// Close closes the connection, fails pending calls with ErrClientClosed and
// waits for the client's goroutines. It must not be called from a
// notification handler.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		old := c.State()
		c.setState(StateClosing, "local close")
		c.shutdown(ErrClientClosed)

		if old.Open() {
			code := websocket.CloseNormalClosure
			msg := websocket.FormatCloseMessage(code, "")
			if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.config.WriteTimeout)); err == nil {
				c.logControl(log.ControlMsgClose, log.DirectionOut, &code)
			}
		}

		c.cancel()
		c.conn.Close()
		_ = c.group.Wait()
		c.setState(StateDisconnected, "closed")
	})
	return nil
}

// Wait blocks until the connection ends and returns the error that ended it.
// It returns nil after Close.
func (c *Client) Wait() error {
	return c.group.Wait()
}

// Done is closed when the client stops accepting calls.
func (c *Client) Done() <-chan struct{} {
	return c.closeCh
}

func (c *Client) readLoop() error {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.closing.Load() {
				return nil
			}
			c.logError(log.LayerTransport, err, "read")
			c.shutdown(ErrNotConnected)
			c.setState(StateDisconnected, err.Error())
			c.conn.Close()
			c.debugLog("connection lost", "error", err)
			return fmt.Errorf("read: %w", err)
		}

		c.extendReadDeadline()
		c.logFrame(data, log.DirectionIn)

		msgs, err := wire.DecodeMessages(data)
		if err != nil {
			c.logError(log.LayerWire, err, "decode")
			c.debugLog("dropping undecodable frame", "error", err)
			continue
		}
		for _, msg := range msgs {
			c.handleMessage(msg)
		}
	}
}

func (c *Client) handleMessage(msg *wire.Message) {
	switch msg.Kind() {
	case wire.KindResponse:
		resp, err := msg.Response()
		if err != nil {
			c.logError(log.LayerWire, err, "response")
			return
		}
		c.handleResponse(resp)

	case wire.KindNotification:
		n, err := msg.Notification()
		if err != nil {
			c.logError(log.LayerWire, err, "notification")
			return
		}
		c.logNotification(n)
		c.queue.push(n)

	default:
		c.debugLog("ignoring inbound message", "kind", msg.Kind().String())
	}
}

func (c *Client) handleResponse(resp *wire.Response) {
	c.pendingMu.Lock()
	p, ok := c.pending[resp.ID]
	if ok {
		delete(c.pending, resp.ID)
	}
	c.pendingMu.Unlock()

	if !ok {
		c.logResponse(resp, nil)
		c.debugLog("response for unknown request", "id", resp.ID)
		return
	}

	elapsed := time.Since(p.sentAt)
	c.logResponse(resp, &elapsed)
	p.ch <- resp
}

func (c *Client) notifyLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.queue.signal:
			for _, n := range c.queue.drain() {
				c.handlerMu.RLock()
				handler := c.handler
				c.handlerMu.RUnlock()
				if handler != nil {
					handler(n)
				}
			}
		}
	}
}

// send writes one text frame.
func (c *Client) send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout)); err != nil {
		return err
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	c.logFrame(data, log.DirectionOut)
	return nil
}

func (c *Client) sendPing(payload []byte) error {
	if err := c.conn.WriteControl(websocket.PingMessage, payload, time.Now().Add(c.config.WriteTimeout)); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	c.logControl(log.ControlMsgPing, log.DirectionOut, nil)
	return nil
}

func (c *Client) handlePong(appData string) error {
	if c.keepAlive != nil {
		c.keepAlive.pongReceived(appData)
	}
	c.logControl(log.ControlMsgPong, log.DirectionIn, nil)
	c.extendReadDeadline()
	return nil
}

func (c *Client) handleClose(code int, text string) error {
	c.logControl(log.ControlMsgClose, log.DirectionIn, &code)
	c.debugLog("daemon closed connection", "code", code, "text", text)
	msg := websocket.FormatCloseMessage(code, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.config.WriteTimeout))
	return nil
}

func (c *Client) extendReadDeadline() {
	if !c.config.KeepAlive.Enabled() {
		return
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(c.config.KeepAlive.PongTimeout))
}

// shutdown stops accepting calls and fails every pending one with reason.
// Only the first call has an effect.
func (c *Client) shutdown(reason error) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.closeErr = reason
	close(c.closeCh)

	for id, p := range c.pending {
		close(p.ch)
		delete(c.pending, id)
	}
}

func (c *Client) closeError() error {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	return c.closeErr
}

func (c *Client) removePending(id int) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

func (c *Client) setState(state ConnectionState, reason string) {
	old := ConnectionState(c.state.Swap(int32(state)))
	if old == state {
		return
	}
	c.logState(old, state, reason)
}

// debugLog logs a debug message if a logger is configured.
func (c *Client) debugLog(msg string, args ...any) {
	if c.config.Logger != nil {
		c.config.Logger.Debug(msg, args...)
	}
}

func notify(fn fetch.ResponseFunc, ok bool, result json.RawMessage) {
	if fn != nil {
		fn(ok, result)
	}
}
