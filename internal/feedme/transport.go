package feedme

import (
	"fmt"

	"github.com/auriora/feedme-client/pkg/errors"
	"github.com/auriora/feedme-client/pkg/logging"
)

// TransportState mirrors the three states a Transport reports (spec §3, §6).
type TransportState string

const (
	TransportDisconnected TransportState = "disconnected"
	TransportConnecting   TransportState = "connecting"
	TransportConnected    TransportState = "connected"
)

// TransportHandler receives the transport's lifecycle and message emissions.
// A Transport implementation calls exactly one of these methods at a time,
// from any goroutine; the adapter marshals them onto the single-threaded
// dispatcher.
type TransportHandler interface {
	OnConnecting()
	OnConnect()
	OnDisconnect(err error)
	OnMessage(frame string)
}

// Transport is the external capability the core consumes (spec §6): an
// out-of-scope collaborator (socket, websocket, long-polling) normalized to
// this narrow surface. Implementations: FakeTransport (tests), WSTransport
// (production, gorilla/websocket).
type Transport interface {
	Connect()
	Disconnect(err error)
	Send(frame string) error
	State() TransportState
	SetHandler(h TransportHandler)
}

// TransportAdapter wraps a Transport and enforces the monotonic
// state-emission invariants spec §4.1 requires: `connecting` only from
// disconnected, `connect` only from connecting, `disconnect` from any
// non-disconnected state, `message` only while connected. A transport that
// violates sequencing (UNEXPECTED_EVENT) or throws (panics, THREW_ON_CALL) is
// never allowed to corrupt Session state: the violation is converted into a
// transportError and the adapter keeps the core running, per spec §7's
// propagation policy ("transport-contract violations never crash the core").
// The adapter never queries Transport.State(), and an error returned by Send
// is handed back to the caller rather than raised, so no BAD_RETURN
// transportError is produced.
type TransportAdapter struct {
	transport Transport
	observed  TransportState
	onEvent   func(transportEvent)
}

// transportEvent is the normalized event surfaced to the Session.
type transportEvent struct {
	kind string // "connecting", "connect", "disconnect", "message", "transportError"
	err  error
	msg  string
}

// NewTransportAdapter wraps transport and begins forwarding its events,
// validated, to onEvent.
func NewTransportAdapter(transport Transport, onEvent func(transportEvent)) *TransportAdapter {
	a := &TransportAdapter{
		transport: transport,
		observed:  TransportDisconnected,
		onEvent:   onEvent,
	}
	transport.SetHandler(a)
	return a
}

func (a *TransportAdapter) Connect() {
	a.guardCall(func() error {
		a.transport.Connect()
		return nil
	})
}

func (a *TransportAdapter) Disconnect(err error) {
	a.guardCall(func() error {
		a.transport.Disconnect(err)
		return nil
	})
}

func (a *TransportAdapter) Send(frame string) error {
	var sendErr error
	a.guardCall(func() error {
		sendErr = a.transport.Send(frame)
		return nil
	})
	return sendErr
}

// guardCall invokes fn, converting a panic escaping the underlying transport
// into a THREW_ON_CALL transportError instead of letting it propagate.
func (a *TransportAdapter) guardCall(fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			a.raiseTransportError(errors.KindThrewOnCall, fmt.Sprintf("transport panicked: %v", r))
		}
	}()
	if err := fn(); err != nil {
		a.raiseTransportError(errors.KindBadReturn, err.Error())
	}
}

func (a *TransportAdapter) raiseTransportError(kind errors.Kind, msg string) {
	logging.Error().Str("kind", string(kind)).Str("detail", msg).Msg("transport error")
	a.onEvent(transportEvent{kind: "transportError", err: errors.NewTyped(kind, msg)})
}

// OnConnecting implements TransportHandler.
func (a *TransportAdapter) OnConnecting() {
	if a.observed != TransportDisconnected {
		a.raiseTransportError(errors.KindUnexpectedEvent, fmt.Sprintf("connecting emitted from state %s", a.observed))
		return
	}
	a.observed = TransportConnecting
	a.onEvent(transportEvent{kind: "connecting"})
}

// OnConnect implements TransportHandler.
func (a *TransportAdapter) OnConnect() {
	if a.observed != TransportConnecting {
		a.raiseTransportError(errors.KindUnexpectedEvent, fmt.Sprintf("connect emitted from state %s", a.observed))
		return
	}
	a.observed = TransportConnected
	a.onEvent(transportEvent{kind: "connect"})
}

// OnDisconnect implements TransportHandler.
func (a *TransportAdapter) OnDisconnect(err error) {
	if a.observed == TransportDisconnected {
		a.raiseTransportError(errors.KindUnexpectedEvent, "disconnect emitted while already disconnected")
		return
	}
	a.observed = TransportDisconnected
	a.onEvent(transportEvent{kind: "disconnect", err: err})
}

// OnMessage implements TransportHandler.
func (a *TransportAdapter) OnMessage(frame string) {
	if a.observed != TransportConnected {
		a.raiseTransportError(errors.KindUnexpectedEvent, fmt.Sprintf("message emitted from state %s", a.observed))
		return
	}
	a.onEvent(transportEvent{kind: "message", msg: frame})
}
