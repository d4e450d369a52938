// Package task implements the minimal single-threaded cooperative task
// runtime spec.md §4.10 calls the executor's "collaborator": a queue of
// woken futures, each polled in turn, used by the system capability
// layer to await child-process completion, readable file descriptors
// and signal arrival without ever leaving the shell process's single
// logical thread (spec.md §5's scheduling model).
package task

import "container/list"

// Poll is a future's step function. It returns true once the future
// has completed; a false return means the future is not done but has
// arranged (via a Waker captured at spawn time) to be woken again when
// it can make progress.
type Poll func() bool

// ID identifies a spawned task for Wake.
type ID int

// Waker re-enqueues the task it was created for onto the runtime's
// ready queue. Wakers are not safe for concurrent use from another
// goroutine; the whole shell is single-threaded (spec.md §4.10).
type Waker func()

type entry struct {
	id   ID
	poll Poll
	done bool
}

// Runtime is the cooperative scheduler. The zero value is not usable;
// construct with New.
type Runtime struct {
	tasks  map[ID]*entry
	ready  *list.List // of ID
	queued map[ID]bool
	nextID ID
}

// New constructs an empty Runtime.
func New() *Runtime {
	return &Runtime{
		tasks:  map[ID]*entry{},
		ready:  list.New(),
		queued: map[ID]bool{},
	}
}

// SpawnPinned enqueues poll to run, immediately ready, and returns its
// ID along with a Waker that re-enqueues it. poll is called with no
// arguments each time it is polled; a future that needs to suspend
// captures the returned Waker and invokes it from whatever triggers
// its readiness (a completed wait, a readable fd, a caught signal).
func (rt *Runtime) SpawnPinned(poll Poll) (ID, Waker) {
	id := rt.nextID
	rt.nextID++
	e := &entry{id: id, poll: poll}
	rt.tasks[id] = e
	rt.enqueue(id)
	return id, func() { rt.Wake(id) }
}

// Wake re-enqueues task id onto the ready queue if it still exists and
// is not already queued. Waking a finished or unknown task is a no-op.
func (rt *Runtime) Wake(id ID) {
	e, ok := rt.tasks[id]
	if !ok || e.done {
		return
	}
	rt.enqueue(id)
}

func (rt *Runtime) enqueue(id ID) {
	if rt.queued[id] {
		return
	}
	rt.queued[id] = true
	rt.ready.PushBack(id)
}

// Step polls exactly one woken task, if any are ready, and reports
// whether it did so. A task whose poll returns true is removed from
// the runtime; one that returns false is considered suspended again
// until its Waker fires.
func (rt *Runtime) Step() bool {
	front := rt.ready.Front()
	if front == nil {
		return false
	}
	rt.ready.Remove(front)
	id := front.Value.(ID)
	delete(rt.queued, id)

	e, ok := rt.tasks[id]
	if !ok || e.done {
		return true
	}
	if e.poll() {
		e.done = true
		delete(rt.tasks, id)
	}
	return true
}

// RunUntilStalled polls ready tasks until none remain immediately
// ready, returning how many poll calls it made.
func (rt *Runtime) RunUntilStalled() int {
	n := 0
	for rt.Step() {
		n++
	}
	return n
}

// Pending reports how many tasks are still registered (ready or
// suspended awaiting a Waker).
func (rt *Runtime) Pending() int { return len(rt.tasks) }

// Idle reports whether the ready queue is empty (everything remaining
// is suspended, awaiting an external Wake).
func (rt *Runtime) Idle() bool { return rt.ready.Len() == 0 }
