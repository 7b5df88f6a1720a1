package composable

import (
	"runtime/debug"
	"time"

	"github.com/stretchr/testify/require"
)

// TestStore drives a Reducer synchronously, one action at a time, on the
// calling goroutine: no drive goroutine, no blocking Sync rendezvous. It
// pairs with a virtual [Reactor] so scheduled/debounced/throttled actions
// fire only when the test explicitly calls [TestStore.Advance].
//
// Grounded on spec.md §4.7's TestStore/TestClock contract (unchanged by the
// expansion): Send reduces one externally supplied action and asserts the
// resulting state diff; Recv dequeues the next action a Reducer emitted as a
// follow-up (via Effects.Action or a fired timer) and asserts both the
// action and the state diff it produces; IntoInner asserts no follow-up
// action was left unconsumed. Assertions use testify/require, the same
// library the donor's own test suite is built on (see DESIGN.md).
type TestStore[S, A any] struct {
	t require.TestingT

	state  S
	reduce func(*S, A, Effects[A])

	effects *storeEffects[A]
	follow  chunkedQueue[A]

	tx Sender[A]
	rx *Receiver[A]

	executor *Executor[A]
	registry *taskRegistry
	reactor  *Reactor
}

// NewTestStore constructs a TestStore over an initial state value and a
// virtual clock starting at start. R is the pointer-to-state Reducer
// implementation, supplied explicitly for the same reason [New] requires it
// — see DESIGN.md's Store runtime entry.
func NewTestStore[S, A any, R interface {
	*S
	Reducer[A]
}](t require.TestingT, state S, start time.Time) *TestStore[S, A] {
	tx, rx := NewChannel[A]()
	reactor := NewVirtualReactor(start)
	registry := newTaskRegistry()

	ts := &TestStore[S, A]{
		t:        t,
		state:    state,
		reduce:   func(s *S, a A, e Effects[A]) { R(s).Reduce(a, e) },
		tx:       tx,
		rx:       rx,
		registry: registry,
		reactor:  reactor,
	}
	ts.executor = NewExecutor[A](tx.Downgrade(), ts.loopGoroutineID)
	ts.effects = newStoreEffects[A](&ts.follow, ts.executor, ts.registry, ts.reactor, tx.Downgrade())

	return ts
}

// loopGoroutineID always reports the calling goroutine as the "loop"
// thread: a TestStore has no separate drive goroutine, every Send/Recv/
// Advance call runs the reducer directly on whichever goroutine calls it.
func (ts *TestStore[S, A]) loopGoroutineID() (uint64, bool) {
	return getGoroutineID(), true
}

// State returns the current state value, for assertions beyond what
// Send/Recv's mutate callback already covers.
func (ts *TestStore[S, A]) State() S { return ts.state }

// Send reduces a directly, then asserts the resulting state equals the
// pre-Send state with mutate applied. Any actions a's Reduce call emits via
// Effects.Action, or that a fired timer delivered since the last drain, are
// queued for a subsequent [TestStore.Recv] — they are never auto-applied.
func (ts *TestStore[S, A]) Send(a A, mutate func(*S)) {
	pre := ts.state
	want := pre
	if mutate != nil {
		mutate(&want)
	}

	ts.reduceOne(a)

	require.Equal(ts.t, want, ts.state, "state after Send(%#v) did not match the expected mutation", a)
}

// Recv dequeues the next pending follow-up action, asserts it equals
// expected, reduces it, then asserts the resulting state equals the
// pre-Recv state with mutate applied. Fails the test if no action is
// queued.
func (ts *TestStore[S, A]) Recv(expected A, mutate func(*S)) {
	a, ok := ts.follow.pop()
	if !ok {
		require.FailNow(ts.t, "no action available to receive", "expected %#v but the follow-up queue is empty", expected)
		return
	}
	require.Equal(ts.t, expected, a, "received action did not match expected")

	pre := ts.state
	want := pre
	if mutate != nil {
		mutate(&want)
	}

	ts.reduceOne(a)

	require.Equal(ts.t, want, ts.state, "state after Recv(%#v) did not match the expected mutation", expected)
}

// Advance moves the virtual clock forward by d, firing every due
// Scheduler-produced action (After/At/Every/Debounce/Throttle) in
// chronological order. Between firings, any action a timer just delivered
// is drained into the pending queue before the next timer is checked —
// each one still requires its own [TestStore.Recv] to assert on and apply.
func (ts *TestStore[S, A]) Advance(d time.Duration) {
	ts.reactor.Advance(d, ts.drainChannel)
	ts.drainChannel()
}

// IntoInner asserts the pending follow-up queue is empty — every action a
// Reduce call or fired timer produced was consumed by a matching Recv —
// cancels any outstanding Task, and returns the final state. Fails the test
// with a listing of unconsumed actions otherwise.
func (ts *TestStore[S, A]) IntoInner() S {
	ts.drainChannel()

	if n := ts.follow.len(); n > 0 {
		leftover := make([]A, 0, n)
		for {
			a, ok := ts.follow.pop()
			if !ok {
				break
			}
			leftover = append(leftover, a)
		}
		require.FailNow(ts.t, "unconsumed actions remain", "%d action(s) were never Recv'd: %#v", n, leftover)
	}

	ts.registry.cancelAll()
	ts.reactor.Close()

	return ts.state
}

func (ts *TestStore[S, A]) reduceOne(a A) {
	defer func() {
		if r := recover(); r != nil {
			pe := &PanicError{Value: r, Stack: string(debug.Stack())}
			require.FailNow(ts.t, "reducer panic", "%v", pe)
		}
	}()
	ts.reduce(&ts.state, a, ts.effects)
	ts.drainChannel()
}

// drainChannel moves every action currently queued on the channel — sent by
// a just-fired timer or a Task/Future/Stream goroutine — into the pending
// follow-up queue, without blocking.
func (ts *TestStore[S, A]) drainChannel() {
	for {
		v, ok := ts.rx.TryNext()
		if !ok {
			return
		}
		ts.follow.push(v)
	}
}
