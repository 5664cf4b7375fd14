package feedme

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingClientHandler struct {
	NopClientEventHandler
	connects     int
	disconnects  []error
	onDisconnect func(error)
}

func (h *recordingClientHandler) OnConnect() { h.connects++ }
func (h *recordingClientHandler) OnDisconnect(err error) {
	h.disconnects = append(h.disconnects, err)
	if h.onDisconnect != nil {
		h.onDisconnect(err)
	}
}

// connectAndHandshake drives ft through connecting/connect and a successful
// HandshakeResponse. Must be called after c.Connect() has returned (i.e.
// from outside the Client's lock), matching the contract a real
// asynchronously-dialing Transport satisfies on its own.
func connectAndHandshake(c *Client, ft *FakeTransport) {
	ft.SimulateConnecting()
	ft.SimulateConnect()
	ft.SimulateMessage(`{"MessageType":"HandshakeResponse","Success":true}`)
}

// TestIT_FM_08_01_Client_HappyPath_OpensFeedAndRunsAction exercises scenario
// 1 end to end: Connect, handshake, feed open with data, then a successful
// action.
func TestIT_FM_08_01_Client_HappyPath_OpensFeedAndRunsAction(t *testing.T) {
	ft := NewFakeTransport()
	handler := &recordingClientHandler{}
	c := NewClient(Options{Transport: ft}, handler)

	require.NoError(t, c.Connect())
	connectAndHandshake(c, ft)
	require.Contains(t, ft.LastSent(), `"MessageType":"Handshake"`)
	assert.Equal(t, SessionConnected, c.State())
	assert.Equal(t, 1, handler.connects)

	feedHandler := &recordingFeedHandler{}
	f := c.Feed("widgets", nil, feedHandler)
	require.NoError(t, f.DesireOpen())
	require.Contains(t, ft.LastSent(), `"MessageType":"FeedOpen"`)

	ft.SimulateMessage(`{"MessageType":"FeedOpenResponse","FeedName":"widgets","Success":true,"FeedData":{"count":1}}`)
	state, err := f.State()
	require.NoError(t, err)
	assert.Equal(t, ServerFeedOpen, state)
	openedData, err := f.Data()
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"count": float64(1)}, openedData)

	var actionErr error
	var actionData interface{}
	require.NoError(t, c.Action("increment", nil, func(err error, data interface{}) {
		actionErr, actionData = err, data
	}))
	require.Contains(t, ft.LastSent(), `"MessageType":"Action"`)

	// Pull the callback id straight from the registry to build the response,
	// mirroring how a real server would echo it back.
	var callbackID string
	for id := range c.registry.actions {
		callbackID = id
	}
	ft.SimulateMessage(`{"MessageType":"ActionResponse","CallbackId":"` + callbackID + `","Success":true,"ActionData":"done"}`)

	assert.NoError(t, actionErr)
	assert.Equal(t, "done", actionData)
}

// TestIT_FM_08_02_Client_Disconnect_ClosesFeedsAndSettlesActionsBeforeEvent
// verifies scenario 5's ordering contract from the Public Surface: a
// transport drop closes open feeds and settles in-flight actions before the
// client-level OnDisconnect fires.
func TestIT_FM_08_02_Client_Disconnect_ClosesFeedsAndSettlesActionsBeforeEvent(t *testing.T) {
	ft := NewFakeTransport()
	var order []string
	handler := &recordingClientHandler{onDisconnect: func(error) { order = append(order, "client-disconnect") }}
	c := NewClient(Options{Transport: ft, Reconnect: boolPtr(false)}, handler)
	require.NoError(t, c.Connect())
	connectAndHandshake(c, ft)

	feedHandler := &recordingFeedHandler{onClose: func(error) { order = append(order, "feed-close") }}
	f := c.Feed("widgets", nil, feedHandler)
	require.NoError(t, f.DesireOpen())
	ft.SimulateMessage(`{"MessageType":"FeedOpenResponse","FeedName":"widgets","Success":true,"FeedData":{}}`)

	require.NoError(t, c.Action("slow", nil, func(err error, data interface{}) {
		order = append(order, "action-settle")
	}))

	ft.SimulateDisconnect(nil)

	require.Len(t, handler.disconnects, 1)
	require.Len(t, order, 3)
	assert.Equal(t, []string{"action-settle", "feed-close", "client-disconnect"}, order)
}

// TestIT_FM_08_03_Client_HandshakeRejected_NeverReconnects verifies
// scenario 6 through the Public Surface.
func TestIT_FM_08_03_Client_HandshakeRejected_NeverReconnects(t *testing.T) {
	ft := NewFakeTransport()
	handler := &recordingClientHandler{}
	c := NewClient(Options{Transport: ft, ConnectRetryMs: intPtr(5)}, handler)
	require.NoError(t, c.Connect())
	ft.SimulateConnecting()
	ft.SimulateConnect()

	ft.SimulateMessage(`{"MessageType":"HandshakeResponse","Success":false}`)
	// FakeTransport reports the resulting disconnect on its own goroutine;
	// the session sits in disconnecting until that event arrives.
	require.Eventually(t, func() bool { return c.State() == SessionDisconnected }, time.Second, time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, SessionDisconnected, c.State(), "handshake rejection must not trigger a reconnect")
}
