package feedme

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auriora/feedme-client/pkg/errors"
)

// recordingSessionEvents is a sessionEvents double that records every
// callback under a mutex, since timers fire on their own goroutine even in
// tests (session.schedule is wired to acquire this same mutex).
type recordingSessionEvents struct {
	mu          sync.Mutex
	connecting  int
	connected   int
	disconnects []error
	messages    []string
	transportErrs []error
}

func (r *recordingSessionEvents) onSessionConnecting() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connecting++
}
func (r *recordingSessionEvents) onSessionConnected() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connected++
}
func (r *recordingSessionEvents) onSessionDisconnected(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnects = append(r.disconnects, err)
}
func (r *recordingSessionEvents) onInboundMessage(frame string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, frame)
}
func (r *recordingSessionEvents) onTransportError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transportErrs = append(r.transportErrs, err)
}

func (r *recordingSessionEvents) disconnectCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.disconnects)
}

func (r *recordingSessionEvents) connectedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected
}

// lockedSchedule gives the test session the same re-entrant-safe schedule
// semantics Client.schedule provides in production: a single mutex guards
// every state mutation, including ones that originate from a timer's own
// goroutine.
func lockedSchedule(mu *sync.Mutex) schedulerFunc {
	return func(fn func()) {
		mu.Lock()
		defer mu.Unlock()
		fn()
	}
}

// TestUT_FM_05_01_Session_ConnectHandshake_ReachesConnected walks the happy
// path: app Connect -> transport connecting/connect -> Handshake sent ->
// HandshakeResponse(success) -> connected (spec §4.4, scenario 1).
func TestUT_FM_05_01_Session_ConnectHandshake_ReachesConnected(t *testing.T) {
	var mu sync.Mutex
	events := &recordingSessionEvents{}
	ft := NewFakeTransport()
	opts := NewOptions(Options{Transport: ft})
	s := newSession(opts, events, lockedSchedule(&mu))

	mu.Lock()
	require.NoError(t, s.Connect())
	assert.Equal(t, SessionConnecting, s.State())
	mu.Unlock()

	ft.SimulateConnecting()
	ft.SimulateConnect()

	mu.Lock()
	assert.Equal(t, SessionHandshaking, s.State())
	assert.Contains(t, ft.LastSent(), `"MessageType":"Handshake"`)
	mu.Unlock()

	s.onHandshakeResponse(true)

	mu.Lock()
	assert.Equal(t, SessionConnected, s.State())
	mu.Unlock()
	assert.Equal(t, 1, events.connectedCount())
}

// TestUT_FM_05_02_Session_HandshakeRejected_NoRetryScheduled verifies that a
// rejected handshake disconnects and never schedules a retry, regardless of
// retry configuration (spec §4.4, scenario 6).
func TestUT_FM_05_02_Session_HandshakeRejected_NoRetryScheduled(t *testing.T) {
	var mu sync.Mutex
	events := &recordingSessionEvents{}
	ft := NewFakeTransport()
	opts := NewOptions(Options{Transport: ft, ConnectRetryMs: intPtr(5)})
	s := newSession(opts, events, lockedSchedule(&mu))

	mu.Lock()
	_ = s.Connect()
	mu.Unlock()
	ft.SimulateConnecting()
	ft.SimulateConnect()

	s.onHandshakeResponse(false)

	// FakeTransport reports the resulting disconnect on its own goroutine;
	// the session sits in disconnecting until that event arrives.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return s.State() == SessionDisconnected
	}, time.Second, time.Millisecond)

	// Give any (incorrectly) scheduled retry timer a chance to fire.
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, SessionDisconnected, s.State(), "handshake rejection must never trigger a reconnect attempt")
	require.Len(t, events.disconnects, 1)
	assert.True(t, errors.HasKind(events.disconnects[0], errors.KindHandshakeRejected))
}

// TestUT_FM_05_03_Session_ConnectTimeout_DisconnectsWithTimeout verifies the
// connect timer fires TIMEOUT when the transport never reaches connected.
func TestUT_FM_05_03_Session_ConnectTimeout_DisconnectsWithTimeout(t *testing.T) {
	var mu sync.Mutex
	events := &recordingSessionEvents{}
	ft := NewFakeTransport()
	opts := NewOptions(Options{Transport: ft, ConnectTimeoutMs: intPtr(10), ConnectRetryMs: intPtr(-1)})
	s := newSession(opts, events, lockedSchedule(&mu))

	mu.Lock()
	_ = s.Connect()
	mu.Unlock()
	// The transport starts connecting but never connects.
	ft.SimulateConnecting()

	require.Eventually(t, func() bool {
		return events.disconnectCount() == 1
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events.disconnects, 1)
	assert.True(t, errors.HasKind(events.disconnects[0], errors.KindTimeout))
}

// TestUT_FM_05_04_Session_RetryDelay_LinearCappedBackoff verifies
// scheduleRetry computes min(base+attempt*step, cap).
func TestUT_FM_05_04_Session_RetryDelay_LinearCappedBackoff(t *testing.T) {
	var mu sync.Mutex
	events := &recordingSessionEvents{}
	ft := NewFakeTransport()
	opts := NewOptions(Options{
		Transport:             ft,
		ConnectRetryMs:        intPtr(10),
		ConnectRetryBackoffMs: intPtr(1000),
		ConnectRetryMaxMs:     intPtr(50),
	})
	s := newSession(opts, events, lockedSchedule(&mu))
	s.attempt = 5 // would be 10+5*1000=5010 uncapped
	s.scheduleRetry()
	// With the 50ms cap, a retry attempt fires well under the uncapped delay.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return s.state == SessionConnecting
	}, 200*time.Millisecond, time.Millisecond)
}
