// Package composable provides a single-writer state-management runtime: a
// [Store] that applies a user-defined [Reducer] to incoming actions, a
// many-sender/single-receiver action channel ([Sender]/[Receiver]), a local
// [Executor] for spawning cancelable tasks, and a [Reactor] that schedules
// time-based actions (after/at/every/debounce/throttle) against either a
// real or virtual clock.
//
// # Architecture
//
// A [Store] owns exactly one piece of state and drives a single goroutine
// that drains its action channel, invokes the reducer, and feeds any
// synchronously emitted follow-up actions back through the same drive step
// before yielding to the next externally sent action. Reducers never see
// concurrent state; the drive goroutine enforces that invariant the same way
// a single-threaded event loop does.
//
// Reducers compose recursively: a parent reducer's own logic runs first,
// then each non-skipped child field is routed its slice of the action space
// via [ReduceField] or, for map-like collections, [ReduceKeyedField]. There
// is no code generation step — composition is ordinary Go generic function
// calls a parent's Reduce method makes explicitly.
//
// # Effects and scheduling
//
// Reducers receive an [Effects] handle, never the channel or executor
// directly. Effects can enqueue a follow-up action, spawn a task that
// forwards a stream of actions, or schedule time-based actions via a
// [Scheduler]: [Scheduler.After], [Scheduler.At], [Scheduler.Every],
// [Scheduler.Debounce], [Scheduler.Throttle].
//
// # Testing
//
// [TestStore] drives a reducer directly on the calling goroutine against a
// virtual clock, without a [Store] or drive goroutine. [TestStore.Send]
// and [TestStore.Recv] assert the exact state delta each step produces;
// [TestStore.Advance] moves the virtual clock forward, firing due timers in
// order and draining synchronous fan-out between firings.
//
// # Thread safety
//
// [Sender.Send] and [Sender.Sync] are safe to call from any goroutine.
// [Sender.Sync] blocks the calling goroutine until the action and its full
// synchronous fan-out have been processed by the Store's drive goroutine. A
// reducer itself runs exclusively on that drive goroutine and must not
// retain the [Effects] handle past its own return.
//
// # Usage
//
//	func (s *State) Reduce(action Action, effects composable.Effects[Action]) {
//	    // ...
//	}
//
//	store := composable.New[State, Action, *State](State{})
//	store.Send(Action{...})
//	store.Sync(Action{...})
//	final, err := store.IntoInner()
package composable
