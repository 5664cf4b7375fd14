package feedme

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/auriora/feedme-client/pkg/errors"
)

// FeedDesire is the application's intent for a feed handle (spec §3).
type FeedDesire string

const (
	DesireOpen   FeedDesire = "open"
	DesireClosed FeedDesire = "closed"
)

// ServerFeedState is the server-feed lifecycle (spec §3, §4.5).
type ServerFeedState string

const (
	ServerFeedClosed     ServerFeedState = "closed"
	ServerFeedOpening    ServerFeedState = "opening"
	ServerFeedOpen       ServerFeedState = "open"
	ServerFeedClosing    ServerFeedState = "closing"
	ServerFeedTerminated ServerFeedState = "terminated"
)

// FeedIdentity is the (FeedName, FeedArgs) pair identifying a server feed
// (spec §3). FeedArgs is canonicalized to a stable string key for map
// storage, since Go maps cannot be compared or hashed by value.
type FeedIdentity struct {
	Name string
	Args map[string]string
}

func (id FeedIdentity) key() string {
	keys := make([]string, 0, len(id.Args))
	for k := range id.Args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(id.Name)
	for _, k := range keys {
		fmt.Fprintf(&b, "\x00%s\x01%s", k, id.Args[k])
	}
	return b.String()
}

// reopenEvent is one timestamped reopen-inducing failure, kept for the
// trailing-window throttle (spec §4.5).
type reopenEvent struct {
	at time.Time
}

// serverFeed is the per-identity record the Registry owns exclusively (spec
// §3, §5: "Server-feed records are exclusively owned by the Registry").
type serverFeed struct {
	identity     FeedIdentity
	state        ServerFeedState
	nextCloseState ServerFeedState // state to adopt once the in-flight FeedClose settles
	data         interface{}
	handles      map[*Feed]struct{}
	handlerMap   map[*Feed]FeedEventHandler
	pendingOpen  bool
	pendingClose bool

	reopenEvents              []reopenEvent
	reopenCountSinceReconnect int
	deferredReopen            bool
}

func newServerFeed(identity FeedIdentity) *serverFeed {
	return &serverFeed{
		identity:   identity,
		state:      ServerFeedClosed,
		handles:    make(map[*Feed]struct{}),
		handlerMap: make(map[*Feed]FeedEventHandler),
	}
}

// handlers returns the identity's handler map, lazily initializing it (a
// serverFeed may be constructed before its first handle is registered).
func (sf *serverFeed) handlers() map[*Feed]FeedEventHandler {
	if sf.handlerMap == nil {
		sf.handlerMap = make(map[*Feed]FeedEventHandler)
	}
	return sf.handlerMap
}

func (sf *serverFeed) anyDesiredOpen() bool {
	for h := range sf.handles {
		if !h.destroyed && h.desired == DesireOpen {
			return true
		}
	}
	return false
}

// Feed is the application-facing handle (spec §3, §4.7).
type Feed struct {
	identity  FeedIdentity
	registry  *registry
	desired   FeedDesire
	destroyed bool
}

// Identity returns the feed's (name, args) identity.
func (f *Feed) Identity() FeedIdentity { return f.identity }

// DesireOpen marks the handle as desiring the feed open. Fails
// INVALID_FEED_STATE if already desired open (spec §4.7: "idempotent only at
// the desired-state level").
func (f *Feed) DesireOpen() error {
	if f.destroyed {
		return errors.NewTyped(errors.KindDestroyed, "feed handle is destroyed")
	}
	if f.desired == DesireOpen {
		return errors.NewTyped(errors.KindInvalidFeedState, "feed is already desired open")
	}
	f.desired = DesireOpen
	f.registry.onDesireChange(f)
	return nil
}

// DesireClosed marks the handle as desiring the feed closed.
func (f *Feed) DesireClosed() error {
	if f.destroyed {
		return errors.NewTyped(errors.KindDestroyed, "feed handle is destroyed")
	}
	if f.desired == DesireClosed {
		return errors.NewTyped(errors.KindInvalidFeedState, "feed is already desired closed")
	}
	f.desired = DesireClosed
	f.registry.onDesireChange(f)
	return nil
}

// Destroy releases the handle. Requires desired == closed and not already
// destroyed (spec §4.7).
func (f *Feed) Destroy() error {
	if f.destroyed {
		return errors.NewTyped(errors.KindDestroyed, "feed handle is already destroyed")
	}
	if f.desired != DesireClosed {
		return errors.NewTyped(errors.KindInvalidFeedState, "feed must be desired closed before destroy")
	}
	f.destroyed = true
	f.registry.onDestroy(f)
	return nil
}

// State returns the underlying server-feed's state.
func (f *Feed) State() (ServerFeedState, error) {
	if f.destroyed {
		return "", errors.NewTyped(errors.KindDestroyed, "feed handle is destroyed")
	}
	return f.registry.serverFeedState(f.identity), nil
}

// DesiredState returns this handle's desire.
func (f *Feed) DesiredState() (FeedDesire, error) {
	if f.destroyed {
		return "", errors.NewTyped(errors.KindDestroyed, "feed handle is destroyed")
	}
	return f.desired, nil
}

// Data returns the feed's current data tree. Succeeds only if the server
// feed is open AND this handle itself is desired open (spec §3).
func (f *Feed) Data() (interface{}, error) {
	if f.destroyed {
		return nil, errors.NewTyped(errors.KindDestroyed, "feed handle is destroyed")
	}
	if f.desired != DesireOpen {
		return nil, errors.NewTyped(errors.KindInvalidFeedState, "feed is not desired open")
	}
	state, data := f.registry.serverFeedStateAndData(f.identity)
	if state != ServerFeedOpen {
		return nil, errors.NewTyped(errors.KindInvalidFeedState, "feed is not open")
	}
	return data, nil
}

// FeedEventHandler receives events for one Feed handle (spec §6's event
// surface, "Feed emits opening, open(data), close([error]), action(...)").
type FeedEventHandler interface {
	OnOpening()
	OnOpen(data interface{})
	OnClose(err error)
	OnAction(actionName string, actionData, newData, oldData interface{})
}
