package feedme

// dispatcher is the single-threaded cooperative scheduler of spec §4.6: it
// serializes application-observable effects (callbacks, feed events, client
// events) so that, for any single triggering edge, every derived effect is
// emitted after the trigger's state mutations complete, and in the order the
// effects were enqueued. A deferred emission enqueued while the queue is
// already draining is appended and drained within the same tick (spec §4.6
// rule 3), which the re-entrant drain loop below gives for free: run()
// re-checks the queue length on every iteration rather than snapshotting it
// up front.
type dispatcher struct {
	queue    []func()
	draining bool
}

func newDispatcher() *dispatcher {
	return &dispatcher{}
}

// defer_ enqueues fn for delivery. The name avoids colliding with the defer
// keyword.
func (d *dispatcher) defer_(fn func()) {
	d.queue = append(d.queue, fn)
}

// run drains the queue to quiescence, executing newly-enqueued work items
// appended during the drain. Callers invoke run once per triggering edge
// (one inbound message, one app call, one timer fire) after all of that
// edge's synchronous state mutations are complete.
func (d *dispatcher) run() {
	if d.draining {
		// A nested run() call during an active drain; the outer call
		// will pick up anything enqueued here on its next iteration.
		return
	}
	d.draining = true
	defer func() { d.draining = false }()

	for len(d.queue) > 0 {
		fn := d.queue[0]
		d.queue = d.queue[1:]
		fn()
	}
}
