package feedme

import "sync"

// FakeTransport is a deterministic Transport double for tests, grounded on
// the teacher's internal/socketio.FakeTransport. Unlike a real transport it
// never emits on its own: tests drive it explicitly via SimulateConnecting,
// SimulateConnect, SimulateMessage, and SimulateDisconnect, and record every
// outbound frame sent through it via Sent().
type FakeTransport struct {
	mu      sync.Mutex
	state   TransportState
	handler TransportHandler
	sent    []string

	// ConnectFunc, if set, is invoked synchronously by Connect instead of the
	// default no-op. Session calls Connect with the Client's lock held, so a
	// ConnectFunc that calls SimulateConnecting/SimulateConnect on its own
	// stack re-enters that lock; it has to hand those calls to another
	// goroutine.
	ConnectFunc func()
}

// NewFakeTransport returns a FakeTransport starting in the disconnected state.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{state: TransportDisconnected}
}

func (f *FakeTransport) SetHandler(h TransportHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = h
}

func (f *FakeTransport) Connect() {
	if f.ConnectFunc != nil {
		f.ConnectFunc()
	}
}

// Disconnect implements Transport. The handler callback fires on its own
// goroutine, matching WSTransport: the caller (Session) may already hold the
// Client's lock, and OnDisconnect routes back through it.
func (f *FakeTransport) Disconnect(err error) {
	f.mu.Lock()
	wasDisconnected := f.state == TransportDisconnected
	f.state = TransportDisconnected
	h := f.handler
	f.mu.Unlock()
	if !wasDisconnected && h != nil {
		go h.OnDisconnect(err)
	}
}

func (f *FakeTransport) Send(frame string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, frame)
	return nil
}

func (f *FakeTransport) State() TransportState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Sent returns every frame passed to Send so far, in order.
func (f *FakeTransport) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	copy(out, f.sent)
	return out
}

// LastSent returns the most recently sent frame, or "" if none.
func (f *FakeTransport) LastSent() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1]
}

// SimulateConnecting fires the `connecting` emission.
func (f *FakeTransport) SimulateConnecting() {
	f.mu.Lock()
	f.state = TransportConnecting
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h.OnConnecting()
	}
}

// SimulateConnect fires the `connect` emission.
func (f *FakeTransport) SimulateConnect() {
	f.mu.Lock()
	f.state = TransportConnected
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h.OnConnect()
	}
}

// SimulateMessage fires a `message` emission carrying frame.
func (f *FakeTransport) SimulateMessage(frame string) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h.OnMessage(frame)
	}
}

// SimulateDisconnect fires the `disconnect` emission with the given error
// (nil for a clean disconnect).
func (f *FakeTransport) SimulateDisconnect(err error) {
	f.mu.Lock()
	f.state = TransportDisconnected
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h.OnDisconnect(err)
	}
}
