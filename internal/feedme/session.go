package feedme

import (
	"time"

	"github.com/auriora/feedme-client/pkg/errors"
	"github.com/auriora/feedme-client/pkg/logging"
)

// SessionState is the session-level state machine (spec §3, §4.4).
type SessionState string

const (
	SessionDisconnected SessionState = "disconnected"
	SessionConnecting   SessionState = "connecting"
	SessionHandshaking  SessionState = "handshaking"
	SessionConnected    SessionState = "connected"
	SessionDisconnecting SessionState = "disconnecting"
)

// sessionEvents is implemented by Client; Session calls back into it for
// every externally observable effect, under the caller's lock (see
// Client.schedule), so the whole core behaves as the single-threaded
// cooperative machine spec §5 requires.
type sessionEvents interface {
	onSessionConnecting()
	onSessionConnected()
	onSessionDisconnected(err error)
	onInboundMessage(frame string)
	onTransportError(err error)
}

// schedulerFunc re-enters the Client's lock to run fn; used by timers, which
// fire on their own goroutine.
type schedulerFunc func(fn func())

// session owns the transport-level state machine and handshake (spec §4.4).
// It never touches server-feed records (spec §5: "The Session never touches
// server-feed records").
type session struct {
	opts      Options
	events    sessionEvents
	schedule  schedulerFunc
	transport *TransportAdapter

	state   SessionState
	attempt int // zero-based retry index within the current failure streak

	connectTimerGen int
	retryTimerGen   int

	disconnectRequested bool // true only for an app-initiated Disconnect
}

func newSession(opts Options, events sessionEvents, schedule schedulerFunc) *session {
	s := &session{
		opts:     opts,
		events:   events,
		schedule: schedule,
		state:    SessionDisconnected,
	}
	// Transport callbacks may arrive on any goroutine (spec §6); routing
	// them through schedule rejoins the Client's lock and drains the
	// dispatcher exactly like a timer fire does. Tests that drive a
	// FakeTransport must do so from outside any held lock (i.e. not from
	// within a Transport.Connect() call), the same constraint a real
	// Transport's asynchronous dial already satisfies.
	s.transport = NewTransportAdapter(opts.Transport, func(ev transportEvent) {
		s.schedule(func() { s.handleTransportEvent(ev) })
	})
	return s
}

func (s *session) State() SessionState { return s.state }

// Connect initiates the session transition out of disconnected (spec §4.7).
func (s *session) Connect() error {
	if s.state != SessionDisconnected {
		return errors.NewTyped(errors.KindInvalidState, "session is not disconnected")
	}
	s.disconnectRequested = false
	s.attempt = 0
	s.enterConnecting()
	return nil
}

// Disconnect initiates a graceful, app-requested disconnect (spec §4.7): the
// eventual disconnect event carries no error and no retry is scheduled.
func (s *session) Disconnect() error {
	if s.state == SessionDisconnected {
		return errors.NewTyped(errors.KindInvalidState, "session is already disconnected")
	}
	s.disconnectRequested = true
	s.cancelConnectTimer()
	s.cancelRetryTimer()
	s.state = SessionDisconnecting
	s.transport.Disconnect(nil)
	return nil
}

// SendFrame hands frame to the transport. Callers (registry) must only call
// this while state == connected (spec: "No FeedOpen/FeedClose/Action
// messages are sent unless Session is connected").
func (s *session) SendFrame(frame string) error {
	if s.state != SessionConnected {
		return errors.NewTyped(errors.KindInvalidState, "session is not connected")
	}
	return s.transport.Send(frame)
}

func (s *session) enterConnecting() {
	s.state = SessionConnecting
	s.armConnectTimer()
	s.events.onSessionConnecting()
	s.transport.Connect()
}

func (s *session) armConnectTimer() {
	if *s.opts.ConnectTimeoutMs <= 0 {
		return
	}
	s.connectTimerGen++
	gen := s.connectTimerGen
	time.AfterFunc(time.Duration(*s.opts.ConnectTimeoutMs)*time.Millisecond, func() {
		s.schedule(func() { s.onConnectTimeout(gen) })
	})
}

func (s *session) cancelConnectTimer() {
	s.connectTimerGen++
}

func (s *session) onConnectTimeout(gen int) {
	if gen != s.connectTimerGen {
		return // stale: canceled or already fired for a different arc
	}
	if s.state != SessionConnecting && s.state != SessionHandshaking {
		return
	}
	logging.Warn().Msg("connect timed out")
	s.state = SessionDisconnecting
	s.transport.Disconnect(errors.NewTyped(errors.KindTimeout, "connect timed out"))
}

func (s *session) cancelRetryTimer() {
	s.retryTimerGen++
}

// scheduleRetry arms a reconnect attempt per the linear-capped retry policy
// (spec §4.4: "delay min(base + attempt*step, cap)").
func (s *session) scheduleRetry() {
	if *s.opts.ConnectRetryMs < 0 {
		return // retries disabled
	}
	if *s.opts.ConnectRetryMaxAttempts > 0 && s.attempt >= *s.opts.ConnectRetryMaxAttempts {
		return
	}
	delay := *s.opts.ConnectRetryMs + s.attempt*(*s.opts.ConnectRetryBackoffMs)
	if *s.opts.ConnectRetryMaxMs > 0 && delay > *s.opts.ConnectRetryMaxMs {
		delay = *s.opts.ConnectRetryMaxMs
	}
	s.attempt++

	s.retryTimerGen++
	gen := s.retryTimerGen
	time.AfterFunc(time.Duration(delay)*time.Millisecond, func() {
		s.schedule(func() { s.onRetryFire(gen) })
	})
}

func (s *session) onRetryFire(gen int) {
	if gen != s.retryTimerGen {
		return
	}
	if s.state != SessionDisconnected {
		return
	}
	s.enterConnecting()
}

func (s *session) handleTransportEvent(ev transportEvent) {
	switch ev.kind {
	case "connecting":
		// transport-level connecting; session is already in `connecting`
		// (app-initiated) and stays there per the state table.
	case "connect":
		if s.state != SessionConnecting {
			return
		}
		s.state = SessionHandshaking
		handshake, _ := encodeOutbound(handshakeMessage{MessageType: MessageTypeHandshake, Versions: []string{"0.1"}})
		_ = s.transport.Send(handshake)
	case "disconnect":
		s.onTransportDisconnect(ev.err)
	case "message":
		if s.state == SessionHandshaking || s.state == SessionConnected {
			s.events.onInboundMessage(ev.msg)
		}
		// A message arriving outside handshaking/connected is ignored:
		// the TransportAdapter already guarantees `message` only fires
		// while the transport itself reports connected, and any residual
		// race is a silent no-op rather than a crash (spec §7 propagation
		// policy).
	case "transportError":
		s.events.onTransportError(ev.err)
	}
}

func (s *session) onTransportDisconnect(err error) {
	wasConnected := s.state == SessionConnected
	appRequested := s.disconnectRequested
	s.cancelConnectTimer()
	s.state = SessionDisconnected
	s.disconnectRequested = false

	s.events.onSessionDisconnected(err)

	if appRequested {
		return
	}
	if errors.HasKind(err, errors.KindHandshakeRejected) {
		return // terminal failure for this attempt; no retry (spec §4.4)
	}
	if wasConnected && !*s.opts.Reconnect {
		return
	}
	s.scheduleRetry()
}

// onHandshakeResponse is invoked by Client once it has decoded a
// HandshakeResponse addressed to this session.
func (s *session) onHandshakeResponse(success bool) {
	if s.state != SessionHandshaking {
		// Open Question (spec §9): a HandshakeResponse arriving after the
		// transport has silently moved to disconnected is discarded, since
		// no state action is available.
		return
	}
	s.cancelConnectTimer()
	if success {
		s.state = SessionConnected
		s.attempt = 0
		s.events.onSessionConnected()
		return
	}
	s.state = SessionDisconnecting
	s.transport.Disconnect(errors.NewTyped(errors.KindHandshakeRejected, "server rejected handshake"))
}
