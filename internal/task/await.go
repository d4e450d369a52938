package task

// AwaitChild polls wait (a non-blocking system.Processes.Wait call)
// once per Step until it reports completion, the idiomatic collaborator
// pattern spec.md §4.10 describes for awaiting child-process exit: the
// poll function returns false (not done) while wait reports "not yet",
// letting the runtime move on to other ready tasks.
func AwaitChild(rt *Runtime, wait func() (done bool, err error), onDone func(error)) ID {
	var waker Waker
	var id ID
	poll := func() bool {
		done, err := wait()
		if !done {
			waker()
			return false
		}
		onDone(err)
		return true
	}
	id, waker = rt.SpawnPinned(poll)
	return id
}

// AwaitReadable polls ready once per Step until a file descriptor has
// data (or EOF/error), used for suspension on blocking reads per
// spec.md §5's "reading/writing file descriptors" suspension point.
func AwaitReadable(rt *Runtime, ready func() (bool, error), onReady func(error)) ID {
	var waker Waker
	var id ID
	poll := func() bool {
		ok, err := ready()
		if err != nil {
			onReady(err)
			return true
		}
		if !ok {
			waker()
			return false
		}
		onReady(nil)
		return true
	}
	id, waker = rt.SpawnPinned(poll)
	return id
}
