// Package dispatch marshals externally-triggered commands onto the host's UI
// thread. Transport goroutines enqueue from anywhere; the host's own idle/tick
// callback drains, one entry per tick, so a burst of commands can never stall
// the event loop for longer than a single command.
package dispatch

import (
	"context"
	"sync"

	"github.com/modelship/cadbridge"
)

type entry struct {
	cmd cadbridge.Command
	// done is buffered so the drain step never blocks on an abandoned
	// waiter (e.g. after the client connection dropped mid-flight).
	done chan cadbridge.Result
}

// Pending is the single-use completion slot for one enqueued command.
type Pending struct {
	done <-chan cadbridge.Result
}

// Wait blocks until the command's result is available or ctx is done.
// Abandoning a Pending (cancelled ctx) does not cancel the command: the host
// may already have mutated state, so the eventual result is simply discarded.
func (p *Pending) Wait(ctx context.Context) (cadbridge.Result, error) {
	select {
	case r := <-p.done:
		return r, nil
	case <-ctx.Done():
		return cadbridge.Result{}, ctx.Err()
	}
}

// Queue is the main-thread work queue. Enqueue is safe from any goroutine;
// DrainOne must only be called from the host UI thread.
type Queue struct {
	mu      sync.Mutex
	entries []*entry
	closed  bool
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{}
}

// Enqueue appends a command and returns its completion slot.
// Returns BridgeClosed after Shutdown.
func (q *Queue) Enqueue(cmd cadbridge.Command) (*Pending, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, cadbridge.Errorf(cadbridge.KindBridgeClosed, "bridge is shut down")
	}

	e := &entry{cmd: cmd, done: make(chan cadbridge.Result, 1)}
	q.entries = append(q.entries, e)
	return &Pending{done: e.done}, nil
}

// Len returns the number of queued entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// DrainOne executes at most one queued entry via run and reports whether more
// work remains, so the host can schedule another tick immediately. Entries
// run in FIFO order of enqueue. run is invoked outside the queue lock.
func (q *Queue) DrainOne(run func(cadbridge.Command) cadbridge.Result) bool {
	q.mu.Lock()
	if q.closed || len(q.entries) == 0 {
		q.mu.Unlock()
		return false
	}
	e := q.entries[0]
	q.entries = q.entries[1:]
	more := len(q.entries) > 0
	q.mu.Unlock()

	e.done <- run(e.cmd)
	return more
}

// Shutdown marks the queue closed and resolves every still-queued entry with
// ShutdownError so no waiter hangs forever. Safe to call more than once.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	pending := q.entries
	q.entries = nil
	q.closed = true
	q.mu.Unlock()

	for _, e := range pending {
		e.done <- cadbridge.Result{
			CommandID: e.cmd.ID,
			Err:       cadbridge.Errorf(cadbridge.KindShutdownError, "host shut down before command %d ran", e.cmd.ID),
		}
	}
}
