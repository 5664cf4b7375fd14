package feedme

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/auriora/feedme-client/pkg/errors"
	"github.com/auriora/feedme-client/pkg/logging"
	"github.com/auriora/feedme-client/pkg/retry"
)

// dialRetryConfig bounds the dial-level retry loop: short, few, and capped
// well under any reasonable connectTimeoutMs, since it runs underneath the
// Session's own connect timer.
var dialRetryConfig = retry.Config{
	MaxRetries:      2,
	InitialDelay:    200 * time.Millisecond,
	MaxDelay:        1 * time.Second,
	Multiplier:      2.0,
	Jitter:          0.2,
	RetryableErrors: []retry.RetryableError{retry.IsRetryableNetworkError, retry.IsRetryableTimeoutError},
}

// WSTransportOptions configures WSTransport.
type WSTransportOptions struct {
	URL          string
	Header       http.Header
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

// WSTransport is the production Transport (spec §6): one websocket connection
// per Connect() call, with only a short dial-level retry (see dialRetryConfig)
// to absorb a transient failure. It never reconnects on its own once
// connected or once the dial retries are exhausted: reconnect policy belongs
// to the Session (spec §4.4), grounded on the same separation-of-concerns the
// teacher's socketio.EngineTransport collapses into one object but which this
// package keeps split so the reconnect backoff math lives in exactly one
// place (session.go).
type WSTransport struct {
	opts WSTransportOptions

	mu      sync.Mutex
	handler TransportHandler
	state   TransportState
	conn    *websocket.Conn
	writeMu sync.Mutex

	dialer *websocket.Dialer
}

// NewWSTransport constructs a WSTransport. opts.URL must be a ws:// or wss://
// endpoint.
func NewWSTransport(opts WSTransportOptions) *WSTransport {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 10 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	return &WSTransport{
		opts:   opts,
		state:  TransportDisconnected,
		dialer: &websocket.Dialer{HandshakeTimeout: opts.DialTimeout},
	}
}

// SetHandler implements Transport.
func (t *WSTransport) SetHandler(h TransportHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = h
}

// State implements Transport.
func (t *WSTransport) State() TransportState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Connect implements Transport: dials asynchronously and reports connecting,
// then connect or disconnect(err), exactly once each, never both. Every
// handler callback fires from the dial goroutine, never from the caller's own
// stack, since the caller (Session) may already hold the Client's lock.
func (t *WSTransport) Connect() {
	t.mu.Lock()
	if t.state != TransportDisconnected {
		t.mu.Unlock()
		return
	}
	t.state = TransportConnecting
	t.mu.Unlock()

	go t.dial()
}

func (t *WSTransport) dial() {
	t.mu.Lock()
	handler := t.handler
	t.mu.Unlock()
	if handler != nil {
		handler.OnConnecting()
	}

	// A few short, backed-off retries (dialRetryConfig) absorb a transient dial failure (DNS hiccup,
	// connection reset) before reporting disconnect up to the Session, whose
	// own retry policy (spec §4.4) is for the coarser reconnect-after-drop
	// case and backs off far more slowly.
	conn, err := retry.DoWithResult(context.Background(), func() (*websocket.Conn, error) {
		c, _, dialErr := t.dialer.Dial(t.opts.URL, t.opts.Header)
		return c, dialErr
	}, dialRetryConfig)
	t.mu.Lock()
	if t.state != TransportConnecting {
		// A Disconnect() raced us before the dial resolved.
		t.mu.Unlock()
		if err == nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		t.state = TransportDisconnected
		handler := t.handler
		t.mu.Unlock()
		logging.Warn().Err(err).Str("url", t.opts.URL).Msg("websocket dial failed")
		if handler != nil {
			handler.OnDisconnect(errors.NewTypedWrap(errors.KindDisconnected, "dial failed", err))
		}
		return
	}
	t.conn = conn
	t.state = TransportConnected
	handler := t.handler
	t.mu.Unlock()

	if handler != nil {
		handler.OnConnect()
	}
	t.readLoop(conn, handler)
}

func (t *WSTransport) readLoop(conn *websocket.Conn, handler TransportHandler) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			wasConnected := t.state == TransportConnected
			t.state = TransportDisconnected
			t.conn = nil
			t.mu.Unlock()
			_ = conn.Close()
			if wasConnected && handler != nil {
				handler.OnDisconnect(errors.NewTypedWrap(errors.KindDisconnected, "websocket read failed", err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if handler != nil {
			handler.OnMessage(string(data))
		}
	}
}

// Disconnect implements Transport. The handler callback, if any, fires on its
// own goroutine: the caller (Session) may already hold the Client's lock, and
// OnDisconnect routes back through it.
func (t *WSTransport) Disconnect(err error) {
	t.mu.Lock()
	conn := t.conn
	wasDisconnected := t.state == TransportDisconnected
	t.state = TransportDisconnected
	t.conn = nil
	handler := t.handler
	t.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}
	if !wasDisconnected && handler != nil {
		go handler.OnDisconnect(err)
	}
}

// Send implements Transport.
func (t *WSTransport) Send(frame string) error {
	t.mu.Lock()
	conn := t.conn
	connected := t.state == TransportConnected
	t.mu.Unlock()
	if !connected || conn == nil {
		return errors.NewTyped(errors.KindDisconnected, "cannot send while not connected")
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(t.opts.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, []byte(frame))
}
