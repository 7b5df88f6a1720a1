package composable

import (
	"sync"
	"time"
)

// taskState is the shared, goroutine-safe bookkeeping behind a [Task]
// handle. The registry (registry.go) tracks these via weak pointers so a
// Task nothing references any longer can be garbage collected without the
// registry keeping it alive.
//
// Grounded on effects/task.rs's Task{handle, when}: the Rust Task owns a
// RemoteHandle whose Drop cancels the spawned future. Go has no Drop, so
// cancellation is explicit via a stop function instead — a
// context.CancelFunc for goroutine-backed tasks (executor.go), or a
// TimerHandle.Cancel-based closure for Reactor-scheduled tasks
// (scheduler.go).
type taskState struct {
	mu   sync.Mutex
	stop func()
	done bool
	when *time.Time
}

func newTaskState(stop func()) *taskState {
	return &taskState{stop: stop}
}

func (st *taskState) isDone() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.done
}

func (st *taskState) markDone() {
	st.mu.Lock()
	st.done = true
	st.mu.Unlock()
}

// setStop installs the function that Cancel will call to interrupt the
// task. If the task is already done, stop runs immediately instead of
// being stored — needed by callers (like Schedule) that only learn their
// cancellation hook after the task may have already completed.
func (st *taskState) setStop(stop func()) {
	st.mu.Lock()
	if st.done {
		st.mu.Unlock()
		if stop != nil {
			stop()
		}
		return
	}
	st.stop = stop
	st.mu.Unlock()
}

// cancel stops the task if it has not already completed. The taskRegistry
// calls this directly on shutdown (registry.go's cancelAll).
func (st *taskState) cancel() {
	st.mu.Lock()
	if st.done {
		st.mu.Unlock()
		return
	}
	st.done = true
	stop := st.stop
	st.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (st *taskState) setWhen(t time.Time) {
	st.mu.Lock()
	st.when = &t
	st.mu.Unlock()
}

func (st *taskState) whenValue() (time.Time, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.when == nil {
		return time.Time{}, false
	}
	return *st.when, true
}

// Task is a handle over asynchronous work spawned by a Store's Effects —
// a goroutine run by the package's local [Executor], a Reactor-scheduled
// timer firing, or a repeating Scheduler.Every/Schedule stream.
//
// Grounded on effects/task.rs's Task struct; "dropping a Task cancels the
// underlying future" becomes, in Go, "not calling Cancel or Detach leaves
// the task running to completion, same as simply discarding the return
// value of any other Go async-spawning API" — Go has no destructors, so
// there is no implicit drop-cancels behavior. Callers that want Rust's
// drop-cancels semantics must call Cancel explicitly.
type Task struct {
	state *taskState
}

// Cancel stops the task: its context is canceled and it will not enqueue
// any further actions. Safe to call more than once or after the task has
// already completed.
func (t Task) Cancel() {
	if t.state != nil {
		t.state.cancel()
	}
}

// Detach is a documentation-only alias for letting a Task run to
// completion in the background without holding a reference to it —
// provided for readers translating from the original's task.detach().
// Since Go has no drop-cancels semantics, Detach and simply discarding the
// Task value behave identically; it exists so the intent reads explicitly
// at call sites, mirroring the original API's vocabulary.
func (t Task) Detach() {}

// When returns the instant this task is scheduled to fire, for tasks
// created by Scheduler.After/At/Every/Debounce/Throttle. ok is false for a
// task with no associated instant (e.g. one created by Effects.Task or
// Effects.Future).
func (t Task) When() (time.Time, bool) {
	if t.state == nil {
		return time.Time{}, false
	}
	return t.state.whenValue()
}

// isDone reports whether the task has completed, been canceled, or never
// started (zero Task value).
func (t Task) isDone() bool {
	return t.state == nil || t.state.isDone()
}
