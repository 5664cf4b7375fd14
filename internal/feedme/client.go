// Package feedme implements the core of a bidirectional messaging client
// speaking the Feedme protocol: a transport-backed session lifecycle, feed
// lifecycle reconciliation, action request/response correlation, and
// delta-based feed-data updates with MD5 integrity verification.
package feedme

import (
	"sync"

	"github.com/auriora/feedme-client/pkg/logging"
)

// ClientEventHandler receives Client-level events (spec §6's event surface).
type ClientEventHandler interface {
	OnConnecting()
	OnConnect()
	OnDisconnect(err error)
	OnBadServerMessage(err error)
	OnBadClientMessage(diagnostics string)
	OnTransportError(err error)
}

// NopClientEventHandler is an embeddable no-op ClientEventHandler; callers
// only interested in some events can embed this and override the rest.
type NopClientEventHandler struct{}

func (NopClientEventHandler) OnConnecting()                         {}
func (NopClientEventHandler) OnConnect()                            {}
func (NopClientEventHandler) OnDisconnect(err error)                {}
func (NopClientEventHandler) OnBadServerMessage(err error)          {}
func (NopClientEventHandler) OnBadClientMessage(diagnostics string) {}
func (NopClientEventHandler) OnTransportError(err error)            {}

// Client is the Public Surface (spec §4.7): the root object owning the
// Session, the Registry, and the Deferred Dispatcher. All state mutation
// funnels through c.mu, giving the single-threaded cooperative scheduling
// model spec §5 requires even though transport callbacks and timers fire on
// arbitrary goroutines — every entry point (public method, transport event,
// timer fire) takes c.mu, mutates state to completion, drains the
// dispatcher, then releases the lock.
type Client struct {
	mu sync.Mutex

	opts     Options
	handler  ClientEventHandler
	session  *session
	registry *registry
	dispatch *dispatcher
}

// NewClient constructs a Client from partial options (merged against
// DefaultOptions()) and an application event handler. opts.Transport is
// required; NewClient panics if it is nil, matching the public-surface-misuse
// contract of spec §4.7 ("Public-surface misuse is thrown synchronously").
func NewClient(partial Options, handler ClientEventHandler) *Client {
	if partial.Transport == nil {
		panic("feedme: Options.Transport is required")
	}
	if handler == nil {
		handler = NopClientEventHandler{}
	}
	opts := NewOptions(partial)

	c := &Client{
		opts:    opts,
		handler: handler,
	}
	c.dispatch = newDispatcher()
	c.session = newSession(opts, c, c.schedule)
	c.registry = newRegistry(opts, c.session.SendFrame, c.dispatch, c.schedule, c)
	return c
}

// schedule re-enters the Client's lock to run fn, then drains the
// dispatcher. Used by Session/registry timers, which fire on their own
// goroutine (time.AfterFunc), to rejoin the single-threaded model.
func (c *Client) schedule(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
	c.dispatch.run()
}

// Connect initiates the session transition (spec §4.7).
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.session.Connect()
	c.dispatch.run()
	return err
}

// Disconnect initiates a graceful disconnect (spec §4.7).
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.session.Disconnect()
	c.dispatch.run()
	return err
}

// State returns the current session state.
func (c *Client) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.State()
}

// Action issues an action request with a callback. Fails INVALID_ARGUMENT
// synchronously on malformed input (spec §4.7).
func (c *Client) Action(name string, args interface{}, cb ActionCallback) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.registry.Action(c.session.State() == SessionConnected, name, args, cb)
	c.dispatch.run()
	return err
}

// ActionAsync issues an action request and returns a settlable future
// instead of taking a callback (spec §4.7).
func (c *Client) ActionAsync(name string, args interface{}) (*ActionResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, err := c.registry.Action(c.session.State() == SessionConnected, name, args, nil)
	c.dispatch.run()
	return res, err
}

// Feed returns a fresh handle for (name, args); not deduplicated against
// other handles on the same identity (spec §4.7).
func (c *Client) Feed(name string, args map[string]string, handler FeedEventHandler) *Feed {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := c.registry.NewFeed(FeedIdentity{Name: name, Args: args}, handler)
	c.dispatch.run()
	return f
}

// --- sessionEvents ---

func (c *Client) onSessionConnecting() {
	c.dispatch.defer_(func() { c.handler.OnConnecting() })
}

func (c *Client) onSessionConnected() {
	c.registry.onSessionConnected()
	c.dispatch.defer_(func() { c.handler.OnConnect() })
}

func (c *Client) onSessionDisconnected(err error) {
	// Ordering contract (spec §4.6 rule 1, scenario 5): action settlements,
	// then feed closes, then the client disconnect event. registry's method
	// enqueues the first two in that relative order; the client event is
	// enqueued afterward, so it drains last within the same tick.
	c.registry.onSessionDisconnected()
	c.dispatch.defer_(func() { c.handler.OnDisconnect(err) })
}

func (c *Client) onInboundMessage(frame string) {
	msg, err := decodeInbound(frame)
	if err != nil {
		logging.Warn().Err(err).Msg("dropping malformed inbound frame")
		c.dispatch.defer_(func() { c.handler.OnBadServerMessage(err) })
		return
	}
	if hr, ok := msg.(*handshakeResponseMessage); ok {
		c.session.onHandshakeResponse(hr.Success)
		return
	}
	c.registry.onInboundMessage(msg)
}

func (c *Client) onTransportError(err error) {
	c.dispatch.defer_(func() { c.handler.OnTransportError(err) })
}

// --- registryEvents ---

func (c *Client) onBadServerMessage(err error) {
	c.dispatch.defer_(func() { c.handler.OnBadServerMessage(err) })
}

func (c *Client) onBadClientMessage(diagnostics string) {
	c.dispatch.defer_(func() { c.handler.OnBadClientMessage(diagnostics) })
}
