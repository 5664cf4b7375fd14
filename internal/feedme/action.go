package feedme

import (
	"github.com/google/uuid"
)

// ActionCallback is the callback form of action completion.
type ActionCallback func(err error, data interface{})

// ActionResult is returned by Client.Action when no callback is supplied; it
// is a single-settlement future.
type ActionResult struct {
	done chan struct{}
	err  error
	data interface{}
}

func newActionResult() *ActionResult {
	return &ActionResult{done: make(chan struct{})}
}

// Wait blocks until the action settles and returns its outcome.
func (r *ActionResult) Wait() (interface{}, error) {
	<-r.done
	return r.data, r.err
}

func (r *ActionResult) settle(data interface{}, err error) {
	r.data = data
	r.err = err
	close(r.done)
}

// actionRequest tracks one in-flight Action message. Spec §3: "unique
// callback id, action name, arguments, completion continuation, deadline."
// Callback and future forms share this single continuation object so a late
// server response arriving after settlement is simply dropped (spec §9,
// "Callbacks vs. promises").
type actionRequest struct {
	callbackID string
	actionName string
	settled    bool
	cb         ActionCallback
	future     *ActionResult
	cancelTimer func()
}

func newCallbackID() string {
	return uuid.NewString()
}

// settle runs the continuation exactly once; subsequent calls are no-ops,
// which is what makes a late ActionResponse after a TIMEOUT settlement safe
// to ignore (spec scenario 2).
func (r *actionRequest) settle(data interface{}, err error) {
	if r.settled {
		return
	}
	r.settled = true
	if r.cancelTimer != nil {
		r.cancelTimer()
	}
	if r.cb != nil {
		r.cb(err, data)
	} else if r.future != nil {
		r.future.settle(data, err)
	}
}
