package feedme

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auriora/feedme-client/pkg/errors"
)

func newTestRegistry(t *testing.T, opts Options) (*registry, *dispatcher, *[]string) {
	t.Helper()
	disp := newDispatcher()
	sent := &[]string{}
	sendFrame := func(frame string) error {
		*sent = append(*sent, frame)
		return nil
	}
	r := newRegistry(NewOptions(opts), sendFrame, disp, func(fn func()) { fn() }, noopRegistryEvents{})
	return r, disp, sent
}

// soleCallbackID returns the one in-flight action's callback id, for tests
// that issue exactly one Action and need to address it from a simulated
// server response.
func soleCallbackID(r *registry) string {
	for id := range r.actions {
		return id
	}
	return ""
}

// TestUT_FM_07_01_Action_SuccessResponse_SettlesCallback verifies the happy
// path: Action sends a frame and a matching ActionResponse settles it.
func TestUT_FM_07_01_Action_SuccessResponse_SettlesCallback(t *testing.T) {
	r, disp, _ := newTestRegistry(t, Options{Transport: NewFakeTransport(), ActionTimeoutMs: intPtr(0), FeedTimeoutMs: intPtr(0)})

	var gotErr error
	var gotData interface{}
	_, err := r.Action(true, "doThing", map[string]string{"x": "1"}, func(e error, d interface{}) {
		gotErr, gotData = e, d
	})
	require.NoError(t, err)

	r.onInboundMessage(&actionResponseMessage{
		MessageType: MessageTypeActionResponse,
		CallbackId:  soleCallbackID(r),
		Success:     true,
		ActionData:  "ok",
	})
	disp.run()

	assert.NoError(t, gotErr)
	assert.Equal(t, "ok", gotData)
}

// TestUT_FM_07_02_Action_LateResponseAfterTimeout_SilentlyDropped verifies
// scenario 2: a timed-out action settles with TIMEOUT, and a subsequent
// late ActionResponse for the same callback id is silently ignored (no
// second settlement, no badServerMessage).
func TestUT_FM_07_02_Action_LateResponseAfterTimeout_SilentlyDropped(t *testing.T) {
	var mu sync.Mutex
	disp := newDispatcher()
	r := newRegistry(NewOptions(Options{Transport: NewFakeTransport(), ActionTimeoutMs: intPtr(5)}),
		func(string) error { return nil }, disp, lockedSchedule(&mu), noopRegistryEvents{})

	settleCount := 0
	var lastErr error
	mu.Lock()
	_, err := r.Action(true, "doThing", nil, func(e error, d interface{}) {
		settleCount++
		lastErr = e
	})
	require.NoError(t, err)
	callbackID := soleCallbackID(r)
	mu.Unlock()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return settleCount == 1
	}, time.Second, time.Millisecond)
	mu.Lock()
	assert.True(t, errors.HasKind(lastErr, errors.KindTimeout))
	mu.Unlock()

	mu.Lock()
	r.onInboundMessage(&actionResponseMessage{MessageType: MessageTypeActionResponse, CallbackId: callbackID, Success: true, ActionData: "late"})
	disp.run()
	assert.Equal(t, 1, settleCount, "late response must not re-settle an already-timed-out action")
	mu.Unlock()
}

// TestUT_FM_07_03_Action_UnknownCallbackId_RaisesBadServerMessage verifies
// an ActionResponse for an id that was never issued is a protocol
// violation, distinct from a late-but-known id (spec §4.5).
func TestUT_FM_07_03_Action_UnknownCallbackId_RaisesBadServerMessage(t *testing.T) {
	disp := newDispatcher()
	recorder := &badMessageRecorder{}
	r := newRegistry(NewOptions(Options{Transport: NewFakeTransport(), ActionTimeoutMs: intPtr(0), FeedTimeoutMs: intPtr(0)}), func(string) error { return nil }, disp, func(fn func()) { fn() }, recorder)

	r.onInboundMessage(&actionResponseMessage{MessageType: MessageTypeActionResponse, CallbackId: "never-issued", Success: true})

	require.Len(t, recorder.badServer, 1)
	assert.True(t, errors.HasKind(recorder.badServer[0], errors.KindUnexpectedMessage))
}

// TestUT_FM_07_04_ActionRevelation_HashMismatch_ClosesFeedAsTerminated
// verifies scenario 3: an ActionRevelation whose declared MD5 does not
// match the post-delta tree closes every handle with BAD_ACTION_REVELATION
// and issues a FeedClose.
func TestUT_FM_07_04_ActionRevelation_HashMismatch_ClosesFeedAsTerminated(t *testing.T) {
	r, disp, _ := newTestRegistry(t, Options{Transport: NewFakeTransport(), ActionTimeoutMs: intPtr(0), FeedTimeoutMs: intPtr(0)})

	var closeErrs []error
	f := r.NewFeed(FeedIdentity{Name: "widgets"}, &recordingFeedHandler{onClose: func(err error) { closeErrs = append(closeErrs, err) }})
	require.NoError(t, f.DesireOpen())

	sf := r.serverFeeds[f.identity.key()]
	require.Equal(t, ServerFeedOpening, sf.state)

	r.onInboundMessage(&feedOpenResponseMessage{
		MessageType: MessageTypeFeedOpenResponse,
		FeedName:    "widgets",
		Success:     true,
		FeedData:    map[string]interface{}{"count": float64(1)},
	})
	disp.run()
	require.Equal(t, ServerFeedOpen, sf.state)

	r.onInboundMessage(&actionRevelationMessage{
		MessageType: MessageTypeActionRevelation,
		ActionName:  "increment",
		FeedName:    "widgets",
		FeedDeltas:  []Delta{{Operation: DeltaSet, Path: []string{"count"}, Value: float64(2)}},
		FeedMd5:     "deadbeef",
	})
	disp.run()

	require.Len(t, closeErrs, 1)
	assert.True(t, errors.HasKind(closeErrs[0], errors.KindBadActionRevelation))
	assert.Equal(t, ServerFeedClosing, sf.state)
}

// TestUT_FM_07_05_ReopenThrottle_SixthFailureDeferredUntilWindowExpires
// verifies scenario 4 with the trailing window shortened to 50ms: with
// ReopenMaxAttempts=5 and ReopenTrailingMs=50, the sixth FeedTermination
// within the trailing window defers the reopen until the window clears.
func TestUT_FM_07_05_ReopenThrottle_SixthFailureDeferredUntilWindowExpires(t *testing.T) {
	var mu sync.Mutex
	disp := newDispatcher()
	r := newRegistry(NewOptions(Options{Transport: NewFakeTransport(), ReopenMaxAttempts: intPtr(5), ReopenTrailingMs: intPtr(50)}),
		func(string) error { return nil }, disp, lockedSchedule(&mu), noopRegistryEvents{})

	mu.Lock()
	f := r.NewFeed(FeedIdentity{Name: "widgets"}, &recordingFeedHandler{})
	require.NoError(t, f.DesireOpen())
	sf := r.serverFeeds[f.identity.key()]

	for i := 0; i < 5; i++ {
		sf.state = ServerFeedOpen
		r.onInboundMessage(&feedTerminationMessage{MessageType: MessageTypeFeedTermination, FeedName: "widgets"})
		disp.run()
		assert.Equal(t, ServerFeedOpening, sf.state, "attempt %d should reopen immediately", i+1)
	}

	sf.state = ServerFeedOpen
	r.onInboundMessage(&feedTerminationMessage{MessageType: MessageTypeFeedTermination, FeedName: "widgets"})
	disp.run()
	assert.Equal(t, ServerFeedTerminated, sf.state, "sixth failure must defer the reopen")
	assert.True(t, sf.deferredReopen)
	mu.Unlock()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return sf.state == ServerFeedOpening
	}, time.Second, time.Millisecond, "reopen must proceed once the trailing window clears")
}

// TestUT_FM_07_06_OnSessionDisconnected_SettlesActionsAndClosesFeeds
// verifies the effects of a single-tick disconnect (spec §4.6 rule 1,
// scenario 5): every in-flight action settles with DISCONNECTED and every
// open/opening feed closes with DISCONNECTED. Their relative order is
// checked by TestIT_FM_08_02.
func TestUT_FM_07_06_OnSessionDisconnected_SettlesActionsAndClosesFeeds(t *testing.T) {
	r, disp, _ := newTestRegistry(t, Options{Transport: NewFakeTransport(), ActionTimeoutMs: intPtr(0), FeedTimeoutMs: intPtr(0)})

	var actionErr error
	_, err := r.Action(true, "doThing", nil, func(e error, d interface{}) { actionErr = e })
	require.NoError(t, err)

	var feedErr error
	f := r.NewFeed(FeedIdentity{Name: "widgets"}, &recordingFeedHandler{onClose: func(e error) { feedErr = e }})
	require.NoError(t, f.DesireOpen())
	r.serverFeeds[f.identity.key()].state = ServerFeedOpen

	r.onSessionDisconnected()
	disp.run()

	assert.True(t, errors.HasKind(actionErr, errors.KindDisconnected))
	assert.True(t, errors.HasKind(feedErr, errors.KindDisconnected))
}

type badMessageRecorder struct {
	badServer []error
	badClient []string
}

func (b *badMessageRecorder) onBadServerMessage(err error)          { b.badServer = append(b.badServer, err) }
func (b *badMessageRecorder) onBadClientMessage(diagnostics string) { b.badClient = append(b.badClient, diagnostics) }

type recordingFeedHandler struct {
	onClose func(error)
}

func (h *recordingFeedHandler) OnOpening() {}
func (h *recordingFeedHandler) OnOpen(data interface{}) {}
func (h *recordingFeedHandler) OnClose(err error) {
	if h.onClose != nil {
		h.onClose(err)
	}
}
func (h *recordingFeedHandler) OnAction(actionName string, actionData, newData, oldData interface{}) {}
