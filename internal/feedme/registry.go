package feedme

import (
	"time"

	"github.com/auriora/feedme-client/pkg/errors"
	"github.com/auriora/feedme-client/pkg/logging"
)

// registryEvents is implemented by Client. The registry calls back into it
// to emit client-level bad-message events; feed/action effects are enqueued
// directly on the shared dispatcher.
type registryEvents interface {
	onBadServerMessage(err error)
	onBadClientMessage(diagnostics string)
}

// registry is the Client/Feed Registry (spec §4.5): it owns every per-identity
// serverFeed record, reconciles desired vs. server state, correlates action
// requests, and applies reopen throttling.
type registry struct {
	opts       Options
	sendFrame  func(frame string) error
	dispatch   *dispatcher
	schedule   schedulerFunc
	events     registryEvents

	serverFeeds map[string]*serverFeed
	actions     map[string]*actionRequest

	feedOpenTimerGen map[string]int
	reopenTimerGen   map[string]int
}

func newRegistry(opts Options, sendFrame func(string) error, dispatch *dispatcher, schedule schedulerFunc, events registryEvents) *registry {
	return &registry{
		opts:             opts,
		sendFrame:        sendFrame,
		dispatch:         dispatch,
		schedule:         schedule,
		events:           events,
		serverFeeds:      make(map[string]*serverFeed),
		actions:          make(map[string]*actionRequest),
		feedOpenTimerGen: make(map[string]int),
		reopenTimerGen:   make(map[string]int),
	}
}

// NewFeed creates a fresh handle for identity, not deduplicated against
// other handles on the same identity (spec §4.7).
func (r *registry) NewFeed(identity FeedIdentity, handler FeedEventHandler) *Feed {
	f := &Feed{identity: identity, registry: r, desired: DesireClosed}
	sf := r.serverFeedFor(identity)
	sf.handles[f] = struct{}{}
	if handler != nil {
		sf.handlers()[f] = handler
	}
	return f
}

func (r *registry) serverFeedFor(identity FeedIdentity) *serverFeed {
	key := identity.key()
	sf, ok := r.serverFeeds[key]
	if !ok {
		sf = newServerFeed(identity)
		r.serverFeeds[key] = sf
	}
	return sf
}

func (r *registry) serverFeedState(identity FeedIdentity) ServerFeedState {
	sf, ok := r.serverFeeds[identity.key()]
	if !ok {
		return ServerFeedClosed
	}
	return sf.state
}

func (r *registry) serverFeedStateAndData(identity FeedIdentity) (ServerFeedState, interface{}) {
	sf, ok := r.serverFeeds[identity.key()]
	if !ok {
		return ServerFeedClosed, nil
	}
	return sf.state, sf.data
}

func (r *registry) onDesireChange(f *Feed) {
	sf := r.serverFeedFor(f.identity)
	r.reconcile(sf)
}

func (r *registry) onDestroy(f *Feed) {
	sf, ok := r.serverFeeds[f.identity.key()]
	if !ok {
		return
	}
	delete(sf.handles, f)
	if sf.handlerMap != nil {
		delete(sf.handlerMap, f)
	}
	r.reconcile(sf)
	if len(sf.handles) == 0 && sf.state == ServerFeedClosed {
		delete(r.serverFeeds, f.identity.key())
	}
}

// onSessionConnected resets the session-lifetime reopen counters and
// re-evaluates every server feed (spec §4.5: "Reconciliation is evaluated
// at... every Session state change").
func (r *registry) onSessionConnected() {
	for _, sf := range r.serverFeeds {
		if *r.opts.ReopenMaxAttempts != 0 {
			sf.reopenCountSinceReconnect = 0
			sf.deferredReopen = false
		}
		r.reconcile(sf)
	}
}

// onSessionDisconnected settles every in-flight action with DISCONNECTED and
// closes every open/opening/closing feed with DISCONNECTED, in that order,
// before the caller (Client) emits the client-level disconnect event — the
// ordering contract of spec §4.6 rule 1 and scenario 5.
func (r *registry) onSessionDisconnected() {
	for _, act := range r.actions {
		if act.settled {
			continue
		}
		req := act
		r.dispatch.defer_(func() { req.settle(nil, errors.NewTyped(errors.KindDisconnected, "session disconnected")) })
	}
	for _, sf := range r.serverFeeds {
		switch sf.state {
		case ServerFeedOpening, ServerFeedOpen, ServerFeedClosing:
			r.closeHandles(sf, errors.NewTyped(errors.KindDisconnected, "session disconnected"))
		}
		sf.state = ServerFeedClosed
		sf.pendingOpen = false
		sf.pendingClose = false
		sf.deferredReopen = false
	}
}

func (r *registry) closeHandles(sf *serverFeed, err error) {
	for h := range sf.handles {
		if h.destroyed {
			continue
		}
		handler := sf.handlers()[h]
		if handler == nil {
			continue
		}
		ee := err
		hh := handler
		r.dispatch.defer_(func() { hh.OnClose(ee) })
	}
}

// reconcile drives sf toward its desired steady state (spec §4.5 table).
func (r *registry) reconcile(sf *serverFeed) {
	anyOpen := sf.anyDesiredOpen()
	switch sf.state {
	case ServerFeedClosed:
		if anyOpen {
			r.sendFeedOpen(sf)
		}
	case ServerFeedOpening:
		if !anyOpen {
			sf.pendingClose = true
		}
	case ServerFeedOpen:
		if !anyOpen {
			r.sendFeedClose(sf, ServerFeedClosed)
		}
	case ServerFeedClosing:
		if anyOpen {
			sf.pendingOpen = true
		}
	case ServerFeedTerminated:
		if anyOpen && !sf.deferredReopen {
			r.sendFeedOpen(sf)
		}
	}
}

func (r *registry) sendFeedOpen(sf *serverFeed) {
	sf.state = ServerFeedOpening
	sf.pendingOpen = false
	for h := range sf.handles {
		if h.destroyed || h.desired != DesireOpen {
			continue
		}
		handler := sf.handlers()[h]
		if handler != nil {
			r.dispatch.defer_(func() { handler.OnOpening() })
		}
	}
	frame, _ := encodeOutbound(feedOpenMessage{MessageType: MessageTypeFeedOpen, FeedName: sf.identity.Name, FeedArgs: sf.identity.Args})
	_ = r.sendFrame(frame)
	r.armFeedOpenTimer(sf)
}

func (r *registry) sendFeedClose(sf *serverFeed, nextState ServerFeedState) {
	sf.state = ServerFeedClosing
	sf.pendingClose = false
	sf.nextCloseState = nextState
	frame, _ := encodeOutbound(feedCloseMessage{MessageType: MessageTypeFeedClose, FeedName: sf.identity.Name, FeedArgs: sf.identity.Args})
	_ = r.sendFrame(frame)
}

func (r *registry) armFeedOpenTimer(sf *serverFeed) {
	if *r.opts.FeedTimeoutMs <= 0 {
		return
	}
	key := sf.identity.key()
	r.feedOpenTimerGen[key]++
	gen := r.feedOpenTimerGen[key]
	time.AfterFunc(time.Duration(*r.opts.FeedTimeoutMs)*time.Millisecond, func() {
		r.schedule(func() { r.onFeedOpenTimeout(key, gen) })
	})
}

func (r *registry) onFeedOpenTimeout(key string, gen int) {
	if r.feedOpenTimerGen[key] != gen {
		return
	}
	sf, ok := r.serverFeeds[key]
	if !ok || sf.state != ServerFeedOpening {
		return
	}
	r.closeHandles(sf, errors.NewTyped(errors.KindTimeout, "feed open timed out"))
	sf.state = ServerFeedClosed
	frame, _ := encodeOutbound(feedCloseMessage{MessageType: MessageTypeFeedClose, FeedName: sf.identity.Name, FeedArgs: sf.identity.Args})
	_ = r.sendFrame(frame)
	r.reconcile(sf)
}

// Action sends an Action message and correlates the response by callback id
// (spec §4.5). If cb is nil, a future form is returned instead.
func (r *registry) Action(sessionConnected bool, actionName string, args interface{}, cb ActionCallback) (*ActionResult, error) {
	if actionName == "" {
		return nil, errors.NewTyped(errors.KindInvalidArgument, "action name must not be empty")
	}

	id := newCallbackID()
	req := &actionRequest{callbackID: id, actionName: actionName, cb: cb}
	var future *ActionResult
	if cb == nil {
		future = newActionResult()
		req.future = future
	}

	if !sessionConnected {
		r.dispatch.defer_(func() { req.settle(nil, errors.NewTyped(errors.KindDisconnected, "session is not connected")) })
		return future, nil
	}

	r.actions[id] = req
	frame, _ := encodeOutbound(actionMessage{MessageType: MessageTypeAction, ActionName: actionName, ActionArgs: args, CallbackId: id})
	if err := r.sendFrame(frame); err != nil {
		delete(r.actions, id)
		return nil, err
	}

	if *r.opts.ActionTimeoutMs > 0 {
		timerGen := new(int)
		*timerGen = 1
		req.cancelTimer = func() { *timerGen = 0 }
		timer := time.AfterFunc(time.Duration(*r.opts.ActionTimeoutMs)*time.Millisecond, func() {
			r.schedule(func() {
				if *timerGen == 0 {
					return
				}
				if req.settled {
					return
				}
				req.settle(nil, errors.NewTyped(errors.KindTimeout, "action timed out"))
			})
		})
		prevCancel := req.cancelTimer
		req.cancelTimer = func() {
			prevCancel()
			timer.Stop()
		}
	}

	return future, nil
}

// onInboundMessage routes one inbound message that Client has already
// decoded. HandshakeResponse is handled by the session, not here; Client
// routes it there directly.
func (r *registry) onInboundMessage(msg interface{}) {
	switch m := msg.(type) {
	case *actionResponseMessage:
		r.handleActionResponse(m)
	case *feedOpenResponseMessage:
		r.handleFeedOpenResponse(m)
	case *feedCloseResponseMessage:
		r.handleFeedCloseResponse(m)
	case *actionRevelationMessage:
		r.handleActionRevelation(m)
	case *feedTerminationMessage:
		r.handleFeedTermination(m)
	case *violationResponseMessage:
		r.events.onBadClientMessage(m.Diagnostics)
	default:
		r.events.onBadServerMessage(errors.NewTyped(errors.KindUnexpectedMessage, "message not valid in this context"))
	}
}

func (r *registry) handleActionResponse(m *actionResponseMessage) {
	req, ok := r.actions[m.CallbackId]
	if !ok {
		// An id that was never issued is a genuine protocol violation (spec
		// §4.5: "Unknown ids yield badServerMessage/UNEXPECTED_MESSAGE").
		r.events.onBadServerMessage(errors.NewTyped(errors.KindUnexpectedMessage, "ActionResponse for unknown CallbackId"))
		return
	}
	if req.settled {
		// Late response to an already timed-out/disconnected action (spec
		// §5 late-arrival rule, scenario 2): silently dropped.
		return
	}
	if m.Success {
		r.dispatch.defer_(func() { req.settle(m.ActionData, nil) })
		return
	}
	err := errors.NewRejected(m.ErrorCode, m.ErrorData)
	r.dispatch.defer_(func() { req.settle(nil, err) })
}

func (r *registry) handleFeedOpenResponse(m *feedOpenResponseMessage) {
	identity := FeedIdentity{Name: m.FeedName, Args: m.FeedArgs}
	sf, ok := r.serverFeeds[identity.key()]
	if !ok || sf.state != ServerFeedOpening {
		return // late response to an already-timed-out/closed exchange
	}
	if !m.Success {
		sf.state = ServerFeedClosed
		r.closeHandles(sf, errors.NewRejected(m.ErrorCode, m.ErrorData))
		r.reconcile(sf)
		return
	}
	sf.state = ServerFeedOpen
	sf.data = m.FeedData
	if sf.pendingClose {
		r.sendFeedClose(sf, ServerFeedClosed)
		return
	}
	for h := range sf.handles {
		if h.destroyed || h.desired != DesireOpen {
			continue
		}
		handler := sf.handlers()[h]
		data := sf.data
		if handler != nil {
			r.dispatch.defer_(func() { handler.OnOpen(data) })
		}
	}
}

func (r *registry) handleFeedCloseResponse(m *feedCloseResponseMessage) {
	identity := FeedIdentity{Name: m.FeedName, Args: m.FeedArgs}
	sf, ok := r.serverFeeds[identity.key()]
	if !ok || sf.state != ServerFeedClosing {
		return
	}
	target := sf.nextCloseState
	if target == "" {
		target = ServerFeedClosed
	}
	sf.nextCloseState = ""
	sf.data = nil
	if sf.pendingOpen {
		sf.pendingOpen = false
		sf.state = ServerFeedClosed
		r.reconcile(sf)
		return
	}
	sf.state = target
	r.reconcile(sf)
}

func (r *registry) handleFeedTermination(m *feedTerminationMessage) {
	identity := FeedIdentity{Name: m.FeedName, Args: m.FeedArgs}
	sf, ok := r.serverFeeds[identity.key()]
	if !ok {
		return
	}
	if sf.state == ServerFeedClosing {
		return // silently consumed per spec §4.5
	}
	if sf.state != ServerFeedOpen {
		return
	}
	sf.data = nil
	r.closeHandles(sf, errors.NewTyped(errors.KindTerminated, "server terminated feed"))
	r.recordReopenFailure(sf)
	sf.state = ServerFeedTerminated
	r.reconcile(sf)
}

func (r *registry) handleActionRevelation(m *actionRevelationMessage) {
	identity := FeedIdentity{Name: m.FeedName, Args: m.FeedArgs}
	sf, ok := r.serverFeeds[identity.key()]
	if !ok {
		return
	}
	if sf.state == ServerFeedClosing {
		return // silently discarded per spec §4.5
	}
	if sf.state != ServerFeedOpen {
		return
	}

	newTree, err := applyDeltas(sf.data, m.FeedDeltas)
	if err != nil {
		r.events.onBadServerMessage(err)
		r.closeHandles(sf, errors.NewTyped(errors.KindBadActionRevelation, "the server passed an invalid feed delta"))
		r.recordReopenFailure(sf)
		r.sendFeedClose(sf, ServerFeedTerminated)
		return
	}

	if m.FeedMd5 != "" {
		sum, err := canonicalMD5(newTree)
		if err != nil || sum != m.FeedMd5 {
			r.events.onBadServerMessage(errors.NewTyped(errors.KindInvalidHash, "feed hash mismatch"))
			r.closeHandles(sf, errors.NewTyped(errors.KindBadActionRevelation, "hash verification failed"))
			r.recordReopenFailure(sf)
			r.sendFeedClose(sf, ServerFeedTerminated)
			return
		}
	}

	oldData := sf.data
	sf.data = newTree
	for h := range sf.handles {
		if h.destroyed || h.desired != DesireOpen {
			continue
		}
		handler := sf.handlers()[h]
		if handler == nil {
			continue
		}
		actionName, actionData := m.ActionName, m.ActionData
		nd, od := newTree, oldData
		r.dispatch.defer_(func() { handler.OnAction(actionName, actionData, nd, od) })
	}
}

// recordReopenFailure records one reopen-inducing event (spec §4.5) and
// decides, per the throttle parameters, whether the subsequent reopen
// attempt may proceed immediately or must be deferred until the trailing
// window frees a slot or the session reconnects. The decision is made
// against the count *before* this event is added (Open Question in spec §9:
// "strictly less-than R permits reopen"), then the event is recorded.
func (r *registry) recordReopenFailure(sf *serverFeed) {
	R := *r.opts.ReopenMaxAttempts
	T := *r.opts.ReopenTrailingMs

	allowed := true
	switch {
	case R < 0:
		allowed = true
	case R == 0:
		allowed = false
	case T > 0:
		r.pruneReopenWindow(sf)
		allowed = len(sf.reopenEvents) < R
	default: // R > 0, T == 0: session-lifetime cap
		allowed = sf.reopenCountSinceReconnect < R
	}

	now := time.Now()
	sf.reopenEvents = append(sf.reopenEvents, reopenEvent{at: now})
	sf.reopenCountSinceReconnect++
	sf.deferredReopen = !allowed

	if !allowed && T > 0 {
		r.armReopenWindowTimer(sf, T)
	}
}

func (r *registry) pruneReopenWindow(sf *serverFeed) {
	if *r.opts.ReopenTrailingMs <= 0 {
		return
	}
	cutoff := time.Now().Add(-time.Duration(*r.opts.ReopenTrailingMs) * time.Millisecond)
	kept := sf.reopenEvents[:0]
	for _, ev := range sf.reopenEvents {
		if ev.at.After(cutoff) {
			kept = append(kept, ev)
		}
	}
	sf.reopenEvents = kept
}

func (r *registry) armReopenWindowTimer(sf *serverFeed, trailingMs int) {
	key := sf.identity.key()
	r.reopenTimerGen[key]++
	gen := r.reopenTimerGen[key]
	logging.Debug().Str("feed", sf.identity.Name).Int("trailingMs", trailingMs).Msg("reopen deferred, arming window timer")
	time.AfterFunc(time.Duration(trailingMs)*time.Millisecond, func() {
		r.schedule(func() { r.onReopenWindowExpiry(key, gen) })
	})
}

func (r *registry) onReopenWindowExpiry(key string, gen int) {
	if r.reopenTimerGen[key] != gen {
		return
	}
	sf, ok := r.serverFeeds[key]
	if !ok {
		return
	}
	r.pruneReopenWindow(sf)
	sf.deferredReopen = false
	r.reconcile(sf)
}
